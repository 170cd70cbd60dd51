// Package tui renders operator-facing output: timestamped status lines,
// fallback diagnostics and the technique failure matrix. Everything goes
// to stderr; the payload owns stdout.
package tui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/aretw0/chronoshift/pkg/domain"
)

// Printer writes status lines in the `[HH:MM:SS] LEVEL: message` shape.
// Quiet mode suppresses all of it; verbose adds the per-attempt fallback
// narration.
type Printer struct {
	out     io.Writer
	profile termenv.Profile
	quiet   bool
	verbose bool
}

// NewPrinter builds a printer for the current terminal. Colors are
// disabled when colorless is set or stderr is not a TTY (piped output).
func NewPrinter(quiet, verbose, colorless bool) *Printer {
	profile := termenv.ColorProfile()
	if colorless || !term.IsTerminal(int(os.Stderr.Fd())) {
		profile = termenv.Ascii
	}
	return &Printer{out: os.Stderr, profile: profile, quiet: quiet, verbose: verbose}
}

func (p *Printer) line(level, color, msg string) {
	if p.quiet {
		return
	}
	ts := time.Now().Format("15:04:05")
	text := fmt.Sprintf("[%s] %s: %s", ts, level, msg)
	if color != "" {
		text = termenv.String(text).Foreground(p.profile.Color(color)).String()
	}
	fmt.Fprintln(p.out, text)
}

func (p *Printer) Info(format string, args ...any) {
	p.line("INFO", "4", fmt.Sprintf(format, args...))
}

func (p *Printer) Success(format string, args ...any) {
	p.line("SUCCESS", "2", fmt.Sprintf(format, args...))
}

func (p *Printer) Warning(format string, args ...any) {
	p.line("WARNING", "3", fmt.Sprintf(format, args...))
}

func (p *Printer) Error(format string, args ...any) {
	p.line("ERROR", "1", fmt.Sprintf(format, args...))
}

// Verbose prints only when verbose mode is on.
func (p *Printer) Verbose(format string, args ...any) {
	if !p.verbose {
		return
	}
	p.line("VERBOSE", "6", fmt.Sprintf(format, args...))
}

// FailureMatrix prints the per-technique failure summary after fallback
// exhaustion.
func (p *Printer) FailureMatrix(attempts []domain.Attempt) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Technique Failure Summary:")
	fmt.Fprintf(p.out, "%-4s %-22s %s\n", "No.", "Technique Name", "Reason")
	fmt.Fprintln(p.out, "------------------------------------------------------------")
	for _, a := range attempts {
		fmt.Fprintf(p.out, "%-4d %-22s %s\n", a.Technique, a.Name, a.Reason)
	}
}

// The engine Reporter contract.

func (p *Printer) AttemptFailed(t domain.Technique, reason error) {
	p.Verbose("technique %d (%s) skipped: %v", t.ID, t.Name, reason)
}

func (p *Printer) Selected(t domain.Technique) {
	p.Success("using technique %d: %s", t.ID, t.Name)
}

func (p *Printer) RevertFailed(t domain.Technique, err error) {
	p.Error("automatic reset of technique %d (%s) FAILED: %v", t.ID, t.Name, err)
	p.Error("the system is still shifted; run 'chronoshift reset' as root to restore it")
}

func (p *Printer) Exhausted(attempts []domain.Attempt) {
	p.FailureMatrix(attempts)
	p.Error("time synchronization failed: no technique succeeded")
}
