package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronoshift/internal/timesource"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("IP", "10.0.0.5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", cfg.Server, "bare IP env var supplies the server")
	assert.Equal(t, timesource.DefaultPort, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 30*time.Second, cfg.ApplyTimeout)
	assert.NotEmpty(t, cfg.JournalDir)
	assert.NotEmpty(t, cfg.FallbackServers)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chronoshift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server: ntp.internal\nport: 8123\nquery_timeout: 2s\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ntp.internal", cfg.Server)
	assert.Equal(t, 8123, cfg.Port)
	assert.Equal(t, 2*time.Second, cfg.QueryTimeout)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("CHRONOSHIFT_SERVER", "env.ntp.internal")
	t.Setenv("CHRONOSHIFT_PORT", "1123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.ntp.internal", cfg.Server)
	assert.Equal(t, 1123, cfg.Port)
}

func TestLoad_ServerFlagBeatsIPEnv(t *testing.T) {
	t.Setenv("CHRONOSHIFT_SERVER", "explicit.internal")
	t.Setenv("IP", "10.0.0.5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "explicit.internal", cfg.Server, "IP is only the fallback")
}

func TestLoad_InvalidPortRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chronoshift.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 70000\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestLoad_MissingExplicitFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
