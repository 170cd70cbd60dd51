package technique

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/chronoshift/pkg/domain"
)

// DateLoop is technique 5: set the clock directly with date -s against the
// virtual reference. There is no daemon to keep it there, so the shift only
// holds until something resynchronizes; revert hands the clock back to the
// OS time service.
type DateLoop struct {
	deps Deps
}

func NewDateLoop(deps Deps) *DateLoop {
	return &DateLoop{deps: deps}
}

func (t *DateLoop) Info() domain.Technique {
	return domain.Technique{
		ID:                 domain.TechniqueDateLoop,
		Name:               "dynamic date set",
		RequiresRoot:       true,
		SystemWide:         true,
		SupportsCustomPort: true,
	}
}

func (t *DateLoop) Eligible(env domain.Environment) error {
	return eligibleByMetadata(t.Info(), env)
}

func (t *DateLoop) Apply(ctx context.Context, target Target) (*domain.AppliedState, error) {
	id := t.Info().ID
	ts := target.Reference.Target().Unix()
	res, err := t.deps.Commander.Run(ctx, "date", "-s", fmt.Sprintf("@%d", ts))
	if err != nil {
		if strings.Contains(res.Stderr, "Operation not permitted") {
			return nil, applyErr(id, domain.ApplyPermissionDenied, "clock is not settable here", err)
		}
		return nil, applyErr(id, domain.ApplyUnknown, "date command failed", err)
	}
	return &domain.AppliedState{
		Technique: id,
		AppliedAt: time.Now().UTC(),
		Payload:   map[string]any{"set_to_unix": ts},
	}, nil
}

func (t *DateLoop) Revert(ctx context.Context, _ *domain.AppliedState) error {
	if _, err := t.deps.Commander.Run(ctx, "timedatectl", "set-ntp", "true"); err != nil {
		return &domain.RevertError{Technique: t.Info().ID, Step: "timedatectl set-ntp true", Err: err}
	}
	return nil
}
