package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Launcher starts the payload and waits for it.
type Launcher interface {
	// Launch runs argv as a child process. It returns the child's exit
	// code, or an error if the child could not start at all.
	Launch(ctx context.Context, argv []string) (int, error)
}

// ExecLauncher runs the payload attached to the invoking terminal: the
// child owns stdin/stdout/stderr so interactive shells and command output
// pass through untouched. The engine never interprets the child's output.
type ExecLauncher struct {
	Logger *slog.Logger
}

// NewExecLauncher returns a launcher bound to the process's own streams.
func NewExecLauncher(logger *slog.Logger) *ExecLauncher {
	return &ExecLauncher{Logger: logger}
}

func (l *ExecLauncher) Launch(ctx context.Context, argv []string) (int, error) {
	if len(argv) == 0 {
		return -1, fmt.Errorf("no payload command given")
	}
	l.Logger.Debug("launching payload", "cmd", strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()

	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("failed to launch payload: %w", err)
	}
	err := cmd.Wait()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("payload wait failed: %w", err)
	}
	return 0, nil
}

// ResolveShell maps a requested shell to an executable path. Bare names
// are resolved via PATH; empty falls back to $SHELL and then /bin/bash,
// matching the quick-shell behavior operators expect.
func ResolveShell(name string) (string, error) {
	path := name
	switch {
	case path == "":
		path = os.Getenv("SHELL")
		if path == "" {
			path = "/bin/bash"
		}
	case !strings.Contains(path, "/"):
		resolved, err := exec.LookPath(path)
		if err != nil {
			return "", fmt.Errorf("could not find shell %q: %w", name, err)
		}
		path = resolved
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("could not find shell %q: %w", path, err)
	}
	return path, nil
}
