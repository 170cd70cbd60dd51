package technique

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronoshift/internal/logging"
	"github.com/aretw0/chronoshift/internal/timesource"
	"github.com/aretw0/chronoshift/pkg/domain"
)

// fakeCommander records every invocation and answers from scripted
// results keyed by the command's first words.
type fakeCommander struct {
	calls   []string
	fail    map[string]string // command prefix -> stderr; presence means non-zero exit
	missing map[string]bool   // LookPath answers
}

func newFakeCommander() *fakeCommander {
	return &fakeCommander{fail: map[string]string{}, missing: map[string]bool{}}
}

func (f *fakeCommander) Run(_ context.Context, name string, args ...string) (CmdResult, error) {
	cmd := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.calls = append(f.calls, cmd)
	for prefix, stderr := range f.fail {
		if strings.HasPrefix(cmd, prefix) {
			return CmdResult{Stderr: stderr, ExitCode: 1}, fmt.Errorf("exit status 1")
		}
	}
	return CmdResult{}, nil
}

func (f *fakeCommander) LookPath(name string) (string, error) {
	if f.missing[name] {
		return "", fmt.Errorf("%s: %w", name, exec.ErrNotFound)
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeCommander) ran(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func testDeps(c Commander) Deps {
	return Deps{Commander: c, Logger: logging.NewNop()}
}

func testTarget() Target {
	return Target{
		Server:    "10.0.0.5",
		Port:      123,
		Reference: timesource.NewFixedReference(time.Unix(1700000000, 0)),
	}
}

func TestRegistry_OrderAndLookup(t *testing.T) {
	r := NewRegistry(testDeps(newFakeCommander()))

	all := r.All()
	require.Len(t, all, domain.TechniqueCount)
	for i, a := range all {
		assert.Equal(t, domain.TechniqueID(i+1), a.Info().ID, "registry order encodes preference")
	}

	a, ok := r.ByID(domain.TechniqueFaketime)
	require.True(t, ok)
	assert.Equal(t, "faketime", a.Info().Name)

	_, ok = r.ByID(99)
	assert.False(t, ok)
}

func TestEligibility_Matrix(t *testing.T) {
	r := NewRegistry(testDeps(newFakeCommander()))

	rootBare := domain.Environment{IsRoot: true, HasSystemd: true}
	nonRootContainer := domain.Environment{InContainer: true}

	for _, a := range r.All() {
		info := a.Info()
		assert.NoError(t, a.Eligible(rootBare), "technique %d should run on a root systemd host", info.ID)
		if info.ID == domain.TechniqueFaketime {
			assert.NoError(t, a.Eligible(nonRootContainer), "faketime is the universal fallback")
		} else {
			assert.Error(t, a.Eligible(nonRootContainer), "technique %d must be blocked for non-root containers", info.ID)
		}
	}
}

func TestEligibility_SystemdRequirement(t *testing.T) {
	r := NewRegistry(testDeps(newFakeCommander()))
	rootNoSystemd := domain.Environment{IsRoot: true, HasSystemd: false}

	for _, id := range []domain.TechniqueID{domain.TechniqueNTPD, domain.TechniqueTimesync, domain.TechniqueOpenNTPD} {
		a, ok := r.ByID(id)
		require.True(t, ok)
		err := a.Eligible(rootNoSystemd)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "systemd")
	}

	// The one-shot and direct-set techniques do not need systemd.
	for _, id := range []domain.TechniqueID{domain.TechniqueNTPDate, domain.TechniqueDateLoop} {
		a, ok := r.ByID(id)
		require.True(t, ok)
		assert.NoError(t, a.Eligible(rootNoSystemd))
	}
}

func TestNTPDate_Apply(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		c := newFakeCommander()
		adapter := NewNTPDate(testDeps(c))

		state, err := adapter.Apply(context.Background(), testTarget())
		require.NoError(t, err)
		assert.Equal(t, domain.TechniqueNTPDate, state.Technique)
		assert.True(t, c.ran("timedatectl set-ntp off"))
		assert.True(t, c.ran("ntpdate -u 10.0.0.5"))
	})

	t.Run("ToolMissing", func(t *testing.T) {
		c := newFakeCommander()
		c.missing["ntpdate"] = true
		adapter := NewNTPDate(testDeps(c))

		_, err := adapter.Apply(context.Background(), testTarget())
		var applyErr *domain.ApplyError
		require.ErrorAs(t, err, &applyErr)
		assert.Equal(t, domain.ApplyToolMissing, applyErr.Kind)
		assert.False(t, c.ran("ntpdate"), "missing tool must not be invoked")
	})

	t.Run("NonSystemdReclassified", func(t *testing.T) {
		c := newFakeCommander()
		c.fail["ntpdate"] = "System has not been booted with systemd (PID 1 is sh)"
		adapter := NewNTPDate(testDeps(c))

		_, err := adapter.Apply(context.Background(), testTarget())
		var applyErr *domain.ApplyError
		require.ErrorAs(t, err, &applyErr)
		assert.Equal(t, domain.ApplyUnsupportedEnvironment, applyErr.Kind)
	})
}

func TestNTPDate_RevertIdempotent(t *testing.T) {
	c := newFakeCommander()
	adapter := NewNTPDate(testDeps(c))
	state := &domain.AppliedState{Technique: domain.TechniqueNTPDate}

	require.NoError(t, adapter.Revert(context.Background(), state))
	require.NoError(t, adapter.Revert(context.Background(), state), "second revert is a no-op success")
}

func TestDateLoop_Apply(t *testing.T) {
	c := newFakeCommander()
	adapter := NewDateLoop(testDeps(c))

	state, err := adapter.Apply(context.Background(), testTarget())
	require.NoError(t, err)
	assert.Equal(t, domain.TechniqueDateLoop, state.Technique)
	require.Len(t, c.calls, 1)
	assert.True(t, strings.HasPrefix(c.calls[0], "date -s @17"), "date must target the virtual reference, got %q", c.calls[0])
}

func TestDateLoop_PermissionDenied(t *testing.T) {
	c := newFakeCommander()
	c.fail["date -s"] = "date: cannot set date: Operation not permitted"
	adapter := NewDateLoop(testDeps(c))

	_, err := adapter.Apply(context.Background(), testTarget())
	var applyErr *domain.ApplyError
	require.ErrorAs(t, err, &applyErr)
	assert.Equal(t, domain.ApplyPermissionDenied, applyErr.Kind)
}
