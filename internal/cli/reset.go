package cli

import (
	"context"
	"errors"

	"github.com/aretw0/chronoshift/internal/config"
	"github.com/aretw0/chronoshift/internal/engine"
	"github.com/aretw0/chronoshift/internal/journal"
	"github.com/aretw0/chronoshift/internal/logging"
	"github.com/aretw0/chronoshift/internal/presentation/tui"
	"github.com/aretw0/chronoshift/internal/probe"
	"github.com/aretw0/chronoshift/internal/technique"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// ResetOptions carries the reset command flags.
type ResetOptions struct {
	Quiet      bool
	Verbose    bool
	Colorless  bool
	ConfigPath string
}

// ExecuteReset replays the journal and restores normal time sync,
// returning the process exit code.
func ExecuteReset(ctx context.Context, opts ResetOptions) int {
	printer := tui.NewPrinter(opts.Quiet, opts.Verbose, opts.Colorless)
	logger := logging.FromFlags(opts.Verbose, opts.Quiet)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		printer.Error("%v", err)
		return ExitUsage
	}

	commander := technique.NewExecCommander(logger)
	registry := technique.NewRegistry(technique.Deps{
		Commander:       commander,
		Logger:          logger,
		FallbackServers: cfg.FallbackServers,
	})
	store := journal.NewStore(cfg.JournalDir)

	resetter := engine.NewResetter(probe.New(), registry, store, commander, logger)

	printer.Info("replaying journal and restoring system time sync...")
	report, err := resetter.Reset(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			printer.Error("%v", err)
			return ExitPermissionDenied
		}
		printer.Error("reset failed: %v", err)
		return 1
	}

	for _, e := range report.Resolved {
		printer.Success("reverted journal entry %s (technique %d)", e.ID, e.Technique)
	}
	for _, k := range report.Kept {
		printer.Error("entry %s (technique %d) could not be reverted: %v", k.Entry.ID, k.Entry.Technique, k.Err)
	}

	if !report.Clean() {
		printer.Error("some entries remain; fix the cause and run reset again")
		return ExitRevertFailed
	}
	printer.Success("time sync restored")
	return ExitOK
}
