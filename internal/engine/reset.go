package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/chronoshift/internal/journal"
	"github.com/aretw0/chronoshift/internal/technique"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// ResetReport summarizes a standalone reset: which journal entries were
// reverted and which were kept because their revert failed.
type ResetReport struct {
	Resolved []journal.Entry
	Kept     []journal.KeptEntry
}

// Clean reports whether nothing is left to undo.
func (r ResetReport) Clean() bool { return len(r.Kept) == 0 }

// Resetter replays the journal and restores normal time sync. It is the
// recovery path after a crash, a kill, or a failed automatic revert.
type Resetter struct {
	probe     Prober
	catalog   Catalog
	journal   *journal.Store
	commander technique.Commander
	logger    *slog.Logger

	revertTimeout time.Duration
}

// NewResetter wires a standalone reset operation.
func NewResetter(probe Prober, catalog Catalog, store *journal.Store, commander technique.Commander, logger *slog.Logger) *Resetter {
	return &Resetter{
		probe:         probe,
		catalog:       catalog,
		journal:       store,
		commander:     commander,
		logger:        logger,
		revertTimeout: 30 * time.Second,
	}
}

// Reset reverts every unresolved journal entry, then performs the
// universal restore (hand the clock back to the OS time service and
// resync against the public pool, best-effort). Requires root; refuses
// otherwise without touching anything. Safe with zero entries and safe to
// repeat: the journal lock is held for the whole scan so concurrent
// resets cannot double-revert.
func (r *Resetter) Reset(ctx context.Context) (ResetReport, error) {
	env := r.probe.Probe()
	if !env.IsRoot {
		return ResetReport{}, fmt.Errorf("%w: reset changes system time configuration", domain.ErrPermissionDenied)
	}

	resolved, kept, err := r.journal.ResolveAll(func(e journal.Entry) error {
		adapter, ok := r.catalog.ByID(e.Technique)
		if !ok {
			return fmt.Errorf("journal entry %s names unknown technique %d", e.ID, e.Technique)
		}
		r.logger.Debug("reverting journal entry", "entry", e.ID, "technique", e.Technique)
		rctx, cancel := context.WithTimeout(ctx, r.revertTimeout)
		defer cancel()
		return adapter.Revert(rctx, &e.State)
	})
	if err != nil {
		return ResetReport{}, err
	}

	// Universal restore, mirroring the manual remediation an operator
	// would do by hand. Failures here are logged, not fatal: the journal
	// replay above is the authoritative part.
	if _, err := r.commander.Run(ctx, "timedatectl", "set-ntp", "true"); err != nil {
		r.logger.Warn("could not re-enable system NTP", "err", err)
	}
	if _, err := r.commander.Run(ctx, "ntpdate", technique.DefaultFallbackServers[0]); err != nil {
		r.logger.Debug("public pool resync skipped", "err", err)
	}

	return ResetReport{Resolved: resolved, Kept: kept}, nil
}
