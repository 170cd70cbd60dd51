// Package probe reads the OS facts technique selection depends on. The
// probe never fails: ambiguous signals resolve toward the conservative
// value (not root, inside a container) so selection degrades to the
// process-scoped technique instead of attempting a system-wide mutation it
// cannot complete.
package probe

import (
	"os"
	"strings"

	"github.com/aretw0/chronoshift/pkg/domain"
)

// Prober computes an Environment snapshot. The zero value reads the real
// host; tests override the probe points.
type Prober struct {
	// Geteuid reports the effective UID. Defaults to os.Geteuid.
	Geteuid func() int
	// ReadFile reads a file, used for the cgroup heuristic. Defaults to
	// os.ReadFile.
	ReadFile func(string) ([]byte, error)
	// Stat checks for marker files. Defaults to os.Stat.
	Stat func(string) (os.FileInfo, error)
}

// New returns a Prober bound to the real host.
func New() *Prober {
	return &Prober{
		Geteuid:  os.Geteuid,
		ReadFile: os.ReadFile,
		Stat:     os.Stat,
	}
}

// Probe takes the environment snapshot. See package comment for the
// conservative-default rules.
func (p *Prober) Probe() domain.Environment {
	return domain.Environment{
		IsRoot:      p.isRoot(),
		HasSystemd:  p.hasSystemd(),
		InContainer: p.inContainer(),
	}
}

func (p *Prober) isRoot() bool {
	if p.Geteuid == nil {
		return false
	}
	return p.Geteuid() == 0
}

// hasSystemd checks for the systemd control directory that PID 1 creates,
// falling back to the timesyncd binary location the original daemons ship.
func (p *Prober) hasSystemd() bool {
	if p.Stat == nil {
		return false
	}
	for _, path := range []string{
		"/run/systemd/system",
		"/lib/systemd/systemd",
		"/usr/lib/systemd/systemd",
	} {
		if _, err := p.Stat(path); err == nil {
			return true
		}
	}
	return false
}

// inContainer combines the docker/podman marker files with a cgroup scan.
// A read error counts as "in container" (conservative default).
func (p *Prober) inContainer() bool {
	if p.Stat != nil {
		for _, marker := range []string{"/.dockerenv", "/run/.containerenv"} {
			if _, err := p.Stat(marker); err == nil {
				return true
			}
		}
	}
	if p.ReadFile == nil {
		return true
	}
	data, err := p.ReadFile("/proc/1/cgroup")
	if err != nil {
		return true
	}
	content := string(data)
	for _, hint := range []string{"docker", "lxc", "kubepods", "containerd"} {
		if strings.Contains(content, hint) {
			return true
		}
	}
	return false
}
