// Package cli wires flags, configuration and collaborators into the
// engine, and maps outcomes to exit codes. The cobra commands under
// cmd/chronoshift stay thin and delegate here.
package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/aretw0/chronoshift/internal/config"
	"github.com/aretw0/chronoshift/internal/engine"
	"github.com/aretw0/chronoshift/internal/journal"
	"github.com/aretw0/chronoshift/internal/logging"
	"github.com/aretw0/chronoshift/internal/presentation/tui"
	"github.com/aretw0/chronoshift/internal/probe"
	"github.com/aretw0/chronoshift/internal/technique"
	"github.com/aretw0/chronoshift/internal/timesource"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// RunOptions carries everything the run command collected.
type RunOptions struct {
	Server     string
	Port       int
	Technique  int
	Quiet      bool
	Verbose    bool
	Colorless  bool
	Shell      bool
	ShellName  string
	ConfigPath string
	Command    []string
}

// ExecuteRun performs one shifted-time invocation and returns the process
// exit code.
func ExecuteRun(ctx context.Context, opts RunOptions) int {
	printer := tui.NewPrinter(opts.Quiet, opts.Verbose, opts.Colorless)
	logger := logging.FromFlags(opts.Verbose, opts.Quiet)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		printer.Error("%v", err)
		return ExitUsage
	}
	if opts.Server != "" {
		cfg.Server = opts.Server
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}

	if opts.Technique == 7 {
		printer.Error("technique 7 (in-process time virtualization) is not currently supported")
		return ExitUsage
	}
	if opts.Technique != 0 && !domain.TechniqueID(opts.Technique).Valid() {
		printer.Error("invalid technique %d: must be 1-6", opts.Technique)
		return ExitUsage
	}
	if cfg.Server == "" {
		printer.Error("no NTP server specified: use --ip or set the IP environment variable")
		return ExitUsage
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		printer.Error("invalid port %d: must be between 1 and 65535", cfg.Port)
		return ExitUsage
	}
	if !opts.Shell && len(opts.Command) == 0 {
		printer.Error("no command provided: give a command to run, or use --shell")
		return ExitUsage
	}

	commander := technique.NewExecCommander(logger)
	registry := technique.NewRegistry(technique.Deps{
		Commander:       commander,
		Logger:          logger,
		FallbackServers: cfg.FallbackServers,
	})
	store := journal.NewStore(cfg.JournalDir)
	source := timesource.NewClient(cfg.QueryTimeout, logger)

	eng := engine.New(probe.New(), source, registry, store, logger,
		engine.WithReporter(printer),
		engine.WithTimeouts(cfg.ApplyTimeout, cfg.RevertTimeout),
	)

	// An interrupt kills the payload but must not skip the revert: the
	// engine reverts on a detached context after the child dies.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcome := eng.Run(ctx, engine.Request{
		Server:    cfg.Server,
		Port:      cfg.Port,
		Forced:    domain.TechniqueID(opts.Technique),
		Command:   opts.Command,
		Shell:     opts.Shell,
		ShellName: opts.ShellName,
	})

	switch outcome.Status {
	case domain.StatusTimeSourceUnreachable:
		printer.Error("failed to fetch reference time: %v", outcome.Err)
	case domain.StatusEnvironmentBlocked:
		if errors.Is(outcome.Err, domain.ErrJournalConflict) {
			printer.Error("%v", outcome.Err)
			printer.Error("run 'chronoshift reset' to clear the outstanding change first")
		} else {
			printer.Error("%v", outcome.Err)
		}
	case domain.StatusPayloadLaunchFailed:
		printer.Error("could not launch payload: %v", outcome.Err)
	case domain.StatusSuccess:
		if outcome.ExitCode != 0 {
			printer.Error("command failed with exit code %d", outcome.ExitCode)
		}
	}

	return exitCodeFor(outcome)
}
