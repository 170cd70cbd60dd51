// Package engine orchestrates one invocation: probe the environment,
// fetch the reference time, pick a technique, apply it, run the payload in
// the shifted time context and guarantee the system-wide change is undone
// on every exit path, with the journal as the crash fallback.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/chronoshift/internal/journal"
	"github.com/aretw0/chronoshift/internal/technique"
	"github.com/aretw0/chronoshift/internal/timesource"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// Phase labels the engine's progress for logs and hooks. Transitions are
// strictly sequential; Aborted is reachable from any of them.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseProbing   Phase = "probing"
	PhaseSelecting Phase = "selecting"
	PhaseApplying  Phase = "applying"
	PhaseRunning   Phase = "running"
	PhaseReverting Phase = "reverting"
	PhaseDone      Phase = "done"
)

// Prober yields the environment snapshot.
type Prober interface {
	Probe() domain.Environment
}

// TimeSource resolves a server into a captured reference.
type TimeSource interface {
	Fetch(server string, port int) (timesource.Reference, error)
}

// Catalog is the registry surface the engine needs.
type Catalog interface {
	All() []technique.Adapter
	ByID(id domain.TechniqueID) (technique.Adapter, bool)
}

// Reporter receives operator-facing events. The presentation layer
// implements it; a nil reporter silences everything (quiet mode).
type Reporter interface {
	AttemptFailed(t domain.Technique, reason error)
	Selected(t domain.Technique)
	RevertFailed(t domain.Technique, err error)
	Exhausted(attempts []domain.Attempt)
}

// Request describes what to run and how.
type Request struct {
	Server string
	Port   int
	// Forced pins a single technique; zero means auto selection in
	// registry order.
	Forced domain.TechniqueID
	// Command is the payload argv. Ignored in shell mode.
	Command []string
	// Shell switches the payload to an interactive shell.
	Shell     bool
	ShellName string
	// Invocation identifies this run in the journal. Generated when empty.
	Invocation string
}

// Engine is the selection & execution state machine.
type Engine struct {
	probe    Prober
	source   TimeSource
	catalog  Catalog
	journal  *journal.Store
	launcher Launcher
	reporter Reporter
	logger   *slog.Logger

	applyTimeout  time.Duration
	revertTimeout time.Duration
}

// Option configures the engine.
type Option func(*Engine)

// WithReporter registers operator-facing event callbacks.
func WithReporter(r Reporter) Option {
	return func(e *Engine) { e.reporter = r }
}

// WithLauncher replaces the payload launcher (tests).
func WithLauncher(l Launcher) Option {
	return func(e *Engine) { e.launcher = l }
}

// WithTimeouts bounds each adapter apply and revert call.
func WithTimeouts(apply, revert time.Duration) Option {
	return func(e *Engine) {
		e.applyTimeout = apply
		e.revertTimeout = revert
	}
}

// New wires an engine. logger must not be nil; use logging.NewNop to
// silence it.
func New(probe Prober, source TimeSource, catalog Catalog, store *journal.Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		probe:         probe,
		source:        source,
		catalog:       catalog,
		journal:       store,
		logger:        logger,
		applyTimeout:  30 * time.Second,
		revertTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.launcher == nil {
		e.launcher = NewExecLauncher(logger)
	}
	return e
}

// Run drives one invocation through the full state machine and returns its
// outcome. The context cancels the payload; the revert of a system-wide
// change still runs afterwards on a detached context so an interrupt never
// strands the host clock.
func (e *Engine) Run(ctx context.Context, req Request) domain.Outcome {
	if req.Invocation == "" {
		req.Invocation = journal.NewID()
	}
	log := e.logger.With("invocation", req.Invocation)

	// Probing.
	log.Debug("phase transition", "phase", PhaseProbing)
	env := e.probe.Probe()
	log.Debug("environment probed", "root", env.IsRoot, "systemd", env.HasSystemd, "container", env.InContainer)

	ref, err := e.source.Fetch(req.Server, req.Port)
	if err != nil {
		log.Debug("phase transition", "phase", PhaseDone, "aborted", true)
		return domain.Outcome{Status: domain.StatusTimeSourceUnreachable, ExitCode: -1, Err: err}
	}

	// Selecting.
	log.Debug("phase transition", "phase", PhaseSelecting)
	candidates, attempts, err := e.selectCandidates(req, env)
	if err != nil {
		return domain.Outcome{Status: domain.StatusEnvironmentBlocked, ExitCode: -1, Err: err}
	}

	// Applying: walk the candidates until one sticks.
	log.Debug("phase transition", "phase", PhaseApplying)
	target := technique.Target{Server: req.Server, Port: req.Port, Reference: ref}
	chosen, state, attempts := e.applyFirst(ctx, candidates, target, attempts, log)
	if chosen == nil {
		if e.reporter != nil {
			e.reporter.Exhausted(attempts)
		}
		return domain.Outcome{
			Status:   domain.StatusTechniqueExhausted,
			ExitCode: -1,
			Err:      &domain.FallbackError{Attempts: attempts},
		}
	}
	info := chosen.Info()
	if e.reporter != nil {
		e.reporter.Selected(info)
	}

	// Journal before payload. If the entry cannot be made durable the
	// mutation is reversed immediately; running a payload on top of an
	// untracked system-wide change is never acceptable.
	var entry journal.Entry
	if info.SystemWide {
		entry = journal.NewEntry(req.Invocation, *state)
		if err := e.journal.Append(entry); err != nil {
			log.Error("journal write failed, reverting", "err", err)
			e.revertDetached(chosen, state, log)
			return domain.Outcome{Status: domain.StatusEnvironmentBlocked, Technique: info.ID, ExitCode: -1, Err: err}
		}
	}

	// Running.
	log.Debug("phase transition", "phase", PhaseRunning, "technique", info.ID)
	exitCode, launchErr := e.runPayload(ctx, req, chosen, state)

	// Reverting. Process-scoped techniques have nothing to undo.
	outcome := domain.Outcome{Status: domain.StatusSuccess, Technique: info.ID, ExitCode: exitCode}
	if launchErr != nil {
		outcome.Status = domain.StatusPayloadLaunchFailed
		outcome.Err = launchErr
		outcome.ExitCode = -1
	}
	if info.SystemWide {
		log.Debug("phase transition", "phase", PhaseReverting)
		if err := e.resolveEntry(chosen, entry, log); err != nil {
			if e.reporter != nil {
				e.reporter.RevertFailed(info, err)
			}
			if outcome.Status == domain.StatusSuccess {
				outcome.Status = domain.StatusRevertFailed
				outcome.Err = err
			}
		}
	}
	log.Debug("phase transition", "phase", PhaseDone)
	return outcome
}

// selectCandidates builds the ordered candidate list. Forced mode yields
// exactly one candidate or an eligibility abort; auto mode filters the
// registry, recording ineligible techniques for diagnostics.
func (e *Engine) selectCandidates(req Request, env domain.Environment) ([]technique.Adapter, []domain.Attempt, error) {
	if req.Forced != 0 {
		adapter, ok := e.catalog.ByID(req.Forced)
		if !ok {
			return nil, nil, fmt.Errorf("unknown technique %d", req.Forced)
		}
		if err := adapter.Eligible(env); err != nil {
			return nil, nil, fmt.Errorf("technique %d is not usable here: %w", req.Forced, err)
		}
		return []technique.Adapter{adapter}, nil, nil
	}

	var candidates []technique.Adapter
	var attempts []domain.Attempt
	for _, adapter := range e.catalog.All() {
		info := adapter.Info()
		if err := adapter.Eligible(env); err != nil {
			attempts = append(attempts, domain.Attempt{Technique: info.ID, Name: info.Name, Reason: err.Error()})
			if e.reporter != nil {
				e.reporter.AttemptFailed(info, err)
			}
			continue
		}
		candidates = append(candidates, adapter)
	}
	if len(candidates) == 0 {
		if e.reporter != nil {
			e.reporter.Exhausted(attempts)
		}
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrNoEligibleTechnique, &domain.FallbackError{Attempts: attempts})
	}
	return candidates, attempts, nil
}

// applyFirst attempts the candidates in order and returns the first that
// applies, together with the accumulated failure diagnostics. The journal
// invariant is checked before each system-wide attempt so an unresolved
// entry is never clobbered; such a candidate is skipped, not fatal.
func (e *Engine) applyFirst(ctx context.Context, candidates []technique.Adapter, target technique.Target, attempts []domain.Attempt, log *slog.Logger) (technique.Adapter, *domain.AppliedState, []domain.Attempt) {
	for _, adapter := range candidates {
		info := adapter.Info()
		if info.SystemWide {
			existing, err := e.journal.List()
			if err == nil && len(existing) > 0 {
				reason := fmt.Errorf("%w (entry %s)", domain.ErrJournalConflict, existing[0].ID)
				attempts = append(attempts, domain.Attempt{Technique: info.ID, Name: info.Name, Reason: reason.Error()})
				if e.reporter != nil {
					e.reporter.AttemptFailed(info, reason)
				}
				continue
			}
			if err != nil {
				attempts = append(attempts, domain.Attempt{Technique: info.ID, Name: info.Name, Reason: err.Error()})
				continue
			}
		}

		log.Debug("trying technique", "id", info.ID, "name", info.Name)
		applyCtx, cancel := context.WithTimeout(ctx, e.applyTimeout)
		state, err := adapter.Apply(applyCtx, target)
		cancel()
		if err != nil {
			attempts = append(attempts, domain.Attempt{Technique: info.ID, Name: info.Name, Reason: err.Error()})
			if e.reporter != nil {
				e.reporter.AttemptFailed(info, err)
			}
			continue
		}
		return adapter, state, attempts
	}
	return nil, nil, attempts
}

// runPayload launches the command or shell and waits for it. Process-
// scoped techniques wrap the argv; system-wide ones run it as-is under the
// mutated ambient clock.
func (e *Engine) runPayload(ctx context.Context, req Request, adapter technique.Adapter, state *domain.AppliedState) (int, error) {
	argv := req.Command
	if req.Shell {
		shell, err := ResolveShell(req.ShellName)
		if err != nil {
			return -1, err
		}
		argv = []string{shell}
	}
	if wrapper, ok := adapter.(technique.PayloadWrapper); ok {
		wrapped, err := wrapper.WrapPayload(state, argv)
		if err != nil {
			return -1, err
		}
		argv = wrapped
	}
	return e.launcher.Launch(ctx, argv)
}

// resolveEntry reverts the engine's own journal entry. It re-checks under
// the store lock that the entry still exists: a concurrent reset may have
// already cleared it, which counts as already-reverted success.
func (e *Engine) resolveEntry(adapter technique.Adapter, entry journal.Entry, log *slog.Logger) error {
	found, err := e.journal.Resolve(entry.ID, func(je journal.Entry) error {
		ctx, cancel := context.WithTimeout(context.Background(), e.revertTimeout)
		defer cancel()
		return adapter.Revert(ctx, &je.State)
	})
	if err != nil {
		return err
	}
	if !found {
		log.Debug("journal entry already resolved by a concurrent reset", "entry", entry.ID)
	}
	return nil
}

// revertDetached undoes an applied state outside the journal lifecycle
// (used when the journal write itself failed). Errors are logged, not
// returned; the caller is already aborting.
func (e *Engine) revertDetached(adapter technique.Adapter, state *domain.AppliedState, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), e.revertTimeout)
	defer cancel()
	if err := adapter.Revert(ctx, state); err != nil {
		log.Error("emergency revert failed; run reset", "err", err)
		if e.reporter != nil {
			e.reporter.RevertFailed(adapter.Info(), err)
		}
	}
}
