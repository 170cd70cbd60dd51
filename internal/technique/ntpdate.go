package technique

import (
	"context"
	"strings"
	"time"

	"github.com/aretw0/chronoshift/internal/timesource"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// NTPDate is technique 1: a one-shot ntpdate sync against the target
// server. System-wide, no config file touched; the undo is handing the
// clock back to the OS time service.
type NTPDate struct {
	deps Deps
}

func NewNTPDate(deps Deps) *NTPDate {
	return &NTPDate{deps: deps}
}

func (t *NTPDate) Info() domain.Technique {
	return domain.Technique{
		ID:           domain.TechniqueNTPDate,
		Name:         "ntpdate",
		RequiresRoot: true,
		SystemWide:   true,
	}
}

func (t *NTPDate) Eligible(env domain.Environment) error {
	return eligibleByMetadata(t.Info(), env)
}

func (t *NTPDate) Apply(ctx context.Context, target Target) (*domain.AppliedState, error) {
	id := t.Info().ID
	if _, err := t.deps.Commander.LookPath("ntpdate"); err != nil {
		return nil, toolMissing(id, "ntpdate", err)
	}
	if target.Port != 0 && target.Port != timesource.DefaultPort {
		t.deps.Logger.Warn("ntpdate does not support custom ports, using 123", "requested", target.Port)
	}

	// Stop the OS from immediately re-correcting the clock. Best-effort:
	// on hosts without timedatectl the one-shot set still works, it is
	// just short-lived.
	if _, err := t.deps.Commander.Run(ctx, "timedatectl", "set-ntp", "off"); err != nil {
		t.deps.Logger.Warn("could not disable system NTP; the shifted time may be reset by the OS at any moment")
	}

	res, err := t.deps.Commander.Run(ctx, "ntpdate", "-u", target.Server)
	if err != nil {
		if strings.Contains(res.Stderr, nonSystemdHint) {
			return nil, applyErr(id, domain.ApplyUnsupportedEnvironment, "systemd is not available (container or minimal OS)", err)
		}
		return nil, applyErr(id, domain.ApplyUnknown, "ntpdate command failed", err)
	}

	return &domain.AppliedState{
		Technique: id,
		AppliedAt: time.Now().UTC(),
		Payload:   map[string]any{"ntp_disabled": true},
	}, nil
}

// Revert re-enables the OS time service, which resynchronizes the clock.
// Safe to call repeatedly.
func (t *NTPDate) Revert(ctx context.Context, _ *domain.AppliedState) error {
	if _, err := t.deps.Commander.Run(ctx, "timedatectl", "set-ntp", "true"); err != nil {
		return &domain.RevertError{Technique: t.Info().ID, Step: "timedatectl set-ntp true", Err: err}
	}
	return nil
}
