package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the application logger. It writes to stderr so engine
// diagnostics never mix with the payload's stdout, and standardizes the
// "error" key to "err".
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// FromFlags maps the CLI verbosity flags to a logger: quiet discards
// everything, verbose enables debug, default shows warnings and up (the
// tui printer carries the normal operator narration).
func FromFlags(verbose, quiet bool) *slog.Logger {
	switch {
	case quiet:
		return NewNop()
	case verbose:
		return New(slog.LevelDebug)
	default:
		return New(slog.LevelWarn)
	}
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
