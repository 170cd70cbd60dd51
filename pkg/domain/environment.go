package domain

// Environment is a read-only snapshot of the facts technique selection
// depends on. It is computed once per invocation by the probe.
type Environment struct {
	IsRoot      bool
	HasSystemd  bool
	InContainer bool
}
