package technique

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/chronoshift/pkg/domain"
)

// Faketime is technique 6, the process-scoped universal fallback: the
// child runs under the faketime LD_PRELOAD wrapper and only it perceives
// the shifted clock. Nothing on the host changes, so there is no journal
// entry and nothing to revert.
type Faketime struct {
	deps Deps
}

func NewFaketime(deps Deps) *Faketime {
	return &Faketime{deps: deps}
}

func (t *Faketime) Info() domain.Technique {
	return domain.Technique{
		ID:                  domain.TechniqueFaketime,
		Name:                "faketime",
		ContainerCompatible: true,
		SupportsCustomPort:  true,
	}
}

func (t *Faketime) Eligible(env domain.Environment) error {
	return eligibleByMetadata(t.Info(), env)
}

type faketimePayload struct {
	Binary string `mapstructure:"binary"`
	Spec   string `mapstructure:"spec"`
}

func (t *Faketime) Apply(_ context.Context, target Target) (*domain.AppliedState, error) {
	id := t.Info().ID
	bin, err := t.deps.Commander.LookPath("faketime")
	if err != nil {
		return nil, toolMissing(id, "faketime", err)
	}

	state := &domain.AppliedState{Technique: id, AppliedAt: time.Now().UTC()}
	payload := faketimePayload{
		Binary: bin,
		Spec:   fmt.Sprintf("@%d", target.Reference.Target().Unix()),
	}
	if err := state.EncodePayload(payload); err != nil {
		return nil, applyErr(id, domain.ApplyUnknown, "encoding applied state", err)
	}
	return state, nil
}

// WrapPayload prepends the faketime wrapper to the child argv.
func (t *Faketime) WrapPayload(state *domain.AppliedState, argv []string) ([]string, error) {
	var p faketimePayload
	if err := state.DecodePayload(&p); err != nil {
		return nil, err
	}
	if p.Spec == "" {
		return nil, fmt.Errorf("faketime spec not set")
	}
	bin := p.Binary
	if bin == "" {
		bin = "faketime"
	}
	return append([]string{bin, p.Spec}, argv...), nil
}

// Revert is a no-op: the wrapper dies with the child.
func (t *Faketime) Revert(context.Context, *domain.AppliedState) error { return nil }
