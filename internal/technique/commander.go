package technique

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
)

// CmdResult captures one external command invocation.
type CmdResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Commander is the port adapters shell out through. Keeping it narrow lets
// tests substitute a fake and record the exact command sequence.
type Commander interface {
	// Run executes the command and waits. A non-zero exit returns the
	// populated CmdResult together with a non-nil error.
	Run(ctx context.Context, name string, args ...string) (CmdResult, error)
	// LookPath resolves a binary on PATH.
	LookPath(name string) (string, error)
}

// ExecCommander runs commands via os/exec with captured output.
type ExecCommander struct {
	Logger *slog.Logger
}

// NewExecCommander returns a Commander bound to the real host.
func NewExecCommander(logger *slog.Logger) *ExecCommander {
	return &ExecCommander{Logger: logger}
}

func (c *ExecCommander) Run(ctx context.Context, name string, args ...string) (CmdResult, error) {
	c.Logger.Debug("running command", "cmd", name+" "+strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	res := CmdResult{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		c.Logger.Debug("command failed", "cmd", name, "exit", res.ExitCode, "stderr", res.Stderr)
		return res, err
	}

	if res.Stdout != "" {
		c.Logger.Debug("command output", "cmd", name, "stdout", res.Stdout)
	}
	return res, nil
}

func (c *ExecCommander) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
