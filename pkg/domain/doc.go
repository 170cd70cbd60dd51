// Package domain holds the shared vocabulary of chronoshift: technique
// metadata, the probed environment, applied-state records and the error
// taxonomy. It has no dependencies on the engine or the adapters so that
// every layer can speak it.
package domain
