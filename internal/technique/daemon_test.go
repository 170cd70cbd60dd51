package technique

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronoshift/pkg/domain"
)

// testDaemon rehomes a daemon adapter's config into a temp dir and makes
// the availability check pass regardless of what is installed here.
func testDaemon(t *testing.T, build func(Deps) *DaemonService, c Commander) *DaemonService {
	t.Helper()
	d := build(testDeps(c))
	d.ConfigPath = filepath.Join(t.TempDir(), filepath.Base(d.ConfigPath))
	d.available = func(Commander) error { return nil }
	return d
}

func TestDaemonService_ApplyRewritesConfig(t *testing.T) {
	c := newFakeCommander()
	d := testDaemon(t, NewNTPD, c)
	require.NoError(t, os.WriteFile(d.ConfigPath, []byte("server old.example iburst\n"), 0644))

	state, err := d.Apply(context.Background(), testTarget())
	require.NoError(t, err)

	data, err := os.ReadFile(d.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "server 10.0.0.5 iburst\n", string(data))

	backup, err := os.ReadFile(d.ConfigPath + BackupSuffix)
	require.NoError(t, err)
	assert.Equal(t, "server old.example iburst\n", string(backup), "original config must be backed up first")

	assert.True(t, c.ran("systemctl restart ntp"))
	assert.True(t, c.ran("systemctl enable ntp"))

	var p daemonPayload
	require.NoError(t, state.DecodePayload(&p))
	assert.Equal(t, d.ConfigPath, p.ConfigPath)
	assert.True(t, p.HadOriginal)
}

// A failed service step must leave no partial mutation: the config is
// restored before the error is returned.
func TestDaemonService_ApplyRollsBackOnStepFailure(t *testing.T) {
	c := newFakeCommander()
	c.fail["systemctl restart ntp"] = "Failed to restart ntp.service"
	d := testDaemon(t, NewNTPD, c)
	require.NoError(t, os.WriteFile(d.ConfigPath, []byte("server old.example iburst\n"), 0644))

	_, err := d.Apply(context.Background(), testTarget())
	var applyErr *domain.ApplyError
	require.ErrorAs(t, err, &applyErr)

	data, err := os.ReadFile(d.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "server old.example iburst\n", string(data), "config must be rolled back")
	_, err = os.Stat(d.ConfigPath + BackupSuffix)
	assert.True(t, os.IsNotExist(err), "backup is consumed by the rollback")
}

func TestDaemonService_ApplyWithoutOriginalConfig(t *testing.T) {
	c := newFakeCommander()
	d := testDaemon(t, NewOpenNTPD, c)

	state, err := d.Apply(context.Background(), testTarget())
	require.NoError(t, err)

	data, err := os.ReadFile(d.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "servers 10.0.0.5\n", string(data))

	// Revert of a created file removes it instead of restoring.
	require.NoError(t, d.Revert(context.Background(), state))
	_, err = os.Stat(d.ConfigPath)
	assert.True(t, os.IsNotExist(err))
}

func TestDaemonService_RevertIdempotent(t *testing.T) {
	c := newFakeCommander()
	d := testDaemon(t, NewNTPD, c)
	require.NoError(t, os.WriteFile(d.ConfigPath, []byte("server old.example iburst\n"), 0644))

	state, err := d.Apply(context.Background(), testTarget())
	require.NoError(t, err)

	require.NoError(t, d.Revert(context.Background(), state))
	data, err := os.ReadFile(d.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "server old.example iburst\n", string(data))

	// Second revert: backup already consumed, file already restored.
	require.NoError(t, d.Revert(context.Background(), state))
	data, err = os.ReadFile(d.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "server old.example iburst\n", string(data), "state after double revert matches single revert")
	assert.True(t, c.ran("timedatectl set-ntp true"))
}

func TestTimesyncd_ConfigIncludesFallbackPool(t *testing.T) {
	c := newFakeCommander()
	deps := testDeps(c)
	deps.FallbackServers = []string{"pool.ntp.org", "time.nist.gov"}
	d := NewTimesyncd(deps)
	d.ConfigPath = filepath.Join(t.TempDir(), "timesyncd.conf")
	d.available = func(Commander) error { return nil }

	_, err := d.Apply(context.Background(), testTarget())
	require.NoError(t, err)

	data, err := os.ReadFile(d.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "[Time]\nNTP=10.0.0.5\nFallbackNTP=pool.ntp.org time.nist.gov\n", string(data))
	assert.True(t, c.ran("timedatectl set-ntp true"))
}
