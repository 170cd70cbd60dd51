package technique

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/chronoshift/internal/timesource"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// daemonPayload is the typed form of a daemon adapter's AppliedState
// payload. It round-trips through the journal via mapstructure.
type daemonPayload struct {
	ConfigPath  string `mapstructure:"config_path"`
	HadOriginal bool   `mapstructure:"had_original"`
}

// DaemonService covers the three techniques that re-point an NTP daemon at
// the target server by rewriting its config and restarting the unit
// (techniques 2, 3 and 4). They differ only in metadata, config rendering
// and the systemctl verb order, so one adapter type carries all three.
type DaemonService struct {
	deps Deps
	info domain.Technique

	// ConfigPath is the daemon config rewritten by Apply. Overridable so
	// tests can run against a temp directory.
	ConfigPath string

	render func(target Target, fallback []string) []byte
	// steps are the systemctl invocations after the config write, in
	// order. Every step must succeed or Apply rolls the config back.
	steps [][]string
	// available checks the daemon is actually installed.
	available func(c Commander) error
}

// NewNTPD is technique 2: classic ntpd with a rewritten /etc/ntp.conf.
func NewNTPD(deps Deps) *DaemonService {
	return &DaemonService{
		deps: deps,
		info: domain.Technique{
			ID:              domain.TechniqueNTPD,
			Name:            "ntpd",
			RequiresRoot:    true,
			SystemWide:      true,
			RequiresSystemd: true,
		},
		ConfigPath: "/etc/ntp.conf",
		render: func(target Target, _ []string) []byte {
			return []byte(fmt.Sprintf("server %s iburst\n", target.Server))
		},
		steps: [][]string{
			{"systemctl", "restart", "ntp"},
			{"systemctl", "enable", "ntp"},
		},
		available: func(c Commander) error {
			_, err := c.LookPath("ntpd")
			return err
		},
	}
}

// NewTimesyncd is technique 3: systemd-timesyncd with a rewritten
// timesyncd.conf. The fallback pool keeps the daemon functional if the
// target goes away mid-engagement.
func NewTimesyncd(deps Deps) *DaemonService {
	return &DaemonService{
		deps: deps,
		info: domain.Technique{
			ID:              domain.TechniqueTimesync,
			Name:            "systemd-timesyncd",
			RequiresRoot:    true,
			SystemWide:      true,
			RequiresSystemd: true,
		},
		ConfigPath: "/etc/systemd/timesyncd.conf",
		render: func(target Target, fallback []string) []byte {
			return []byte(fmt.Sprintf("[Time]\nNTP=%s\nFallbackNTP=%s\n", target.Server, strings.Join(fallback, " ")))
		},
		steps: [][]string{
			{"systemctl", "enable", "systemd-timesyncd"},
			{"systemctl", "restart", "systemd-timesyncd"},
			{"timedatectl", "set-ntp", "true"},
		},
		available: func(_ Commander) error {
			for _, p := range []string{"/lib/systemd/systemd-timesyncd", "/usr/lib/systemd/systemd-timesyncd"} {
				if _, err := os.Stat(p); err == nil {
					return nil
				}
			}
			return fmt.Errorf("systemd-timesyncd not found")
		},
	}
}

// NewOpenNTPD is technique 4: openntpd with a rewritten
// /etc/openntpd/ntpd.conf.
func NewOpenNTPD(deps Deps) *DaemonService {
	return &DaemonService{
		deps: deps,
		info: domain.Technique{
			ID:              domain.TechniqueOpenNTPD,
			Name:            "openntpd",
			RequiresRoot:    true,
			SystemWide:      true,
			RequiresSystemd: true,
		},
		ConfigPath: "/etc/openntpd/ntpd.conf",
		render: func(target Target, _ []string) []byte {
			return []byte(fmt.Sprintf("servers %s\n", target.Server))
		},
		steps: [][]string{
			{"systemctl", "restart", "openntpd"},
			{"systemctl", "enable", "openntpd"},
		},
		available: func(c Commander) error {
			if _, err := c.LookPath("ntpd"); err != nil {
				return err
			}
			if _, err := os.Stat("/etc/openntpd"); err != nil {
				return fmt.Errorf("openntpd not found")
			}
			return nil
		},
	}
}

func (t *DaemonService) Info() domain.Technique { return t.info }

func (t *DaemonService) Eligible(env domain.Environment) error {
	return eligibleByMetadata(t.info, env)
}

// Apply rewrites the daemon config (after backing it up) and runs the
// service steps. Any step failure restores the config before returning, so
// the engine sees apply as atomic.
func (t *DaemonService) Apply(ctx context.Context, target Target) (*domain.AppliedState, error) {
	id := t.info.ID
	if err := t.available(t.deps.Commander); err != nil {
		return nil, toolMissing(id, t.info.Name, err)
	}
	if target.Port != 0 && target.Port != timesource.DefaultPort {
		t.deps.Logger.Warn("daemon techniques do not support custom ports, using 123",
			"technique", t.info.Name, "requested", target.Port)
	}

	hadOriginal, err := backupConfig(t.ConfigPath)
	if err != nil {
		return nil, applyErr(id, domain.ApplyUnknown, "config backup failed", err)
	}

	if err := writeConfigAtomic(t.ConfigPath, t.render(target, t.deps.FallbackServers), 0644); err != nil {
		// Nothing ran yet; put the original back so the failure is clean.
		_ = restoreConfig(t.ConfigPath, hadOriginal)
		if os.IsPermission(err) {
			return nil, applyErr(id, domain.ApplyPermissionDenied, "cannot write "+t.ConfigPath, err)
		}
		return nil, applyErr(id, domain.ApplyUnknown, "failed to write "+t.ConfigPath, err)
	}

	for _, step := range t.steps {
		res, err := t.deps.Commander.Run(ctx, step[0], step[1:]...)
		if err != nil {
			_ = restoreConfig(t.ConfigPath, hadOriginal)
			if strings.Contains(res.Stderr, nonSystemdHint) {
				return nil, applyErr(id, domain.ApplyUnsupportedEnvironment, "systemd is not available (container or minimal OS)", err)
			}
			return nil, applyErr(id, domain.ApplyUnknown, strings.Join(step, " ")+" failed", err)
		}
	}

	state := &domain.AppliedState{Technique: id, AppliedAt: time.Now().UTC()}
	if err := state.EncodePayload(daemonPayload{ConfigPath: t.ConfigPath, HadOriginal: hadOriginal}); err != nil {
		_ = restoreConfig(t.ConfigPath, hadOriginal)
		return nil, applyErr(id, domain.ApplyUnknown, "encoding applied state", err)
	}
	return state, nil
}

// Revert restores the original config and hands the clock back to the OS
// time service. Both halves tolerate having already run.
func (t *DaemonService) Revert(ctx context.Context, state *domain.AppliedState) error {
	var p daemonPayload
	if err := state.DecodePayload(&p); err != nil {
		return &domain.RevertError{Technique: t.info.ID, Step: "decode applied state", Err: err}
	}
	if p.ConfigPath == "" {
		p.ConfigPath = t.ConfigPath
	}

	if _, err := t.deps.Commander.Run(ctx, "timedatectl", "set-ntp", "true"); err != nil {
		return &domain.RevertError{Technique: t.info.ID, Step: "timedatectl set-ntp true", Err: err}
	}
	if err := restoreConfig(p.ConfigPath, p.HadOriginal); err != nil {
		return &domain.RevertError{Technique: t.info.ID, Step: "restore " + p.ConfigPath, Err: err}
	}
	return nil
}
