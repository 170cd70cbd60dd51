// Package technique implements the closed set of time-shift techniques
// behind a single adapter contract. The engine only ever calls Eligible,
// Apply and Revert; everything an individual technique knows about shell
// commands, config files and services stays here.
package technique

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/aretw0/chronoshift/internal/timesource"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// Target is the input to an apply step: where the reference came from and
// the captured reference itself. Daemon techniques re-point their config at
// Server; offset techniques use Reference directly.
type Target struct {
	Server    string
	Port      int
	Reference timesource.Reference
}

// Adapter is the uniform contract every technique implements.
type Adapter interface {
	// Info returns the immutable catalog entry.
	Info() domain.Technique

	// Eligible is a pure predicate over the catalog metadata and the
	// probed environment. A nil return means the technique may be
	// attempted; otherwise the error names the reason for the failure
	// matrix.
	Eligible(env domain.Environment) error

	// Apply performs the mutation. It is atomic from the engine's view:
	// either it succeeds and the returned AppliedState suffices to reverse
	// the change, or it fails having rolled back any partial work.
	Apply(ctx context.Context, target Target) (*domain.AppliedState, error)

	// Revert undoes exactly the change in state. Idempotent: a second call
	// with the same state is a no-op success.
	Revert(ctx context.Context, state *domain.AppliedState) error
}

// PayloadWrapper is implemented by process-scoped techniques that shift
// time by wrapping the child's execution rather than mutating the host.
// The engine consults it when building the payload argv.
type PayloadWrapper interface {
	WrapPayload(state *domain.AppliedState, argv []string) ([]string, error)
}

// eligibleByMetadata applies the shared metadata checks. Individual
// adapters call it first and may add technique-specific conditions.
func eligibleByMetadata(info domain.Technique, env domain.Environment) error {
	if info.RequiresRoot && !env.IsRoot {
		return fmt.Errorf("root required for %s", info.Name)
	}
	if info.RequiresSystemd && !env.HasSystemd {
		return fmt.Errorf("%s requires systemd", info.Name)
	}
	if !info.ContainerCompatible && env.InContainer {
		return fmt.Errorf("%s does not work in containers", info.Name)
	}
	return nil
}

// applyErr builds a classified ApplyError for a technique.
func applyErr(id domain.TechniqueID, kind domain.ApplyErrorKind, detail string, err error) *domain.ApplyError {
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		kind = domain.ApplyTimeout
	}
	return &domain.ApplyError{Technique: id, Kind: kind, Detail: detail, Err: err}
}

// toolMissing classifies a LookPath failure.
func toolMissing(id domain.TechniqueID, tool string, err error) *domain.ApplyError {
	if errors.Is(err, exec.ErrNotFound) {
		return applyErr(id, domain.ApplyToolMissing, tool+" not found in PATH", nil)
	}
	return applyErr(id, domain.ApplyUnknown, "resolving "+tool, err)
}

// Deps carries the collaborators shared by all adapters.
type Deps struct {
	Commander       Commander
	Logger          *slog.Logger
	FallbackServers []string
}

// Registry holds the six adapters in preference order: most persistent
// first, the process-scoped faketime wrapper last as the universal
// fallback.
type Registry struct {
	adapters []Adapter
}

// NewRegistry builds the static catalog wired to deps.
func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if len(deps.FallbackServers) == 0 {
		deps.FallbackServers = DefaultFallbackServers
	}
	return &Registry{
		adapters: []Adapter{
			NewNTPDate(deps),
			NewNTPD(deps),
			NewTimesyncd(deps),
			NewOpenNTPD(deps),
			NewDateLoop(deps),
			NewFaketime(deps),
		},
	}
}

// All returns the adapters in preference order.
func (r *Registry) All() []Adapter {
	return r.adapters
}

// ByID looks up an adapter by its catalog number.
func (r *Registry) ByID(id domain.TechniqueID) (Adapter, bool) {
	for _, a := range r.adapters {
		if a.Info().ID == id {
			return a, true
		}
	}
	return nil, false
}

// DefaultFallbackServers mirror the public pool written into timesyncd's
// FallbackNTP and used by the post-reset resync.
var DefaultFallbackServers = []string{"pool.ntp.org", "time.nist.gov", "time.google.com"}

// nonSystemdHint is the diagnostic systemd tools print inside containers
// and minimal images. Seeing it reclassifies a failure as an unsupported
// environment so the fallback message can say why techniques 1-5 are out.
const nonSystemdHint = "System has not been booted with systemd"
