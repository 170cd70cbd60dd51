package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chronoshift/internal/engine"
	"github.com/aretw0/chronoshift/internal/logging"
)

func TestExecLauncher_ExitCodePassthrough(t *testing.T) {
	l := engine.NewExecLauncher(logging.NewNop())

	code, err := l.Launch(context.Background(), []string{"sh", "-c", "exit 7"})
	require.NoError(t, err, "a non-zero child exit is not a launch error")
	assert.Equal(t, 7, code)

	code, err = l.Launch(context.Background(), []string{"sh", "-c", "exit 0"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}

func TestExecLauncher_LaunchFailures(t *testing.T) {
	l := engine.NewExecLauncher(logging.NewNop())

	_, err := l.Launch(context.Background(), nil)
	require.Error(t, err)

	_, err = l.Launch(context.Background(), []string{"/nonexistent/binary-xyz"})
	require.Error(t, err)
}

func TestResolveShell(t *testing.T) {
	t.Run("ExplicitPath", func(t *testing.T) {
		shell := filepath.Join(t.TempDir(), "mysh")
		require.NoError(t, os.WriteFile(shell, []byte("#!/bin/sh\n"), 0755))

		path, err := engine.ResolveShell(shell)
		require.NoError(t, err)
		assert.Equal(t, shell, path)
	})

	t.Run("EmptyFallsBackToSHELL", func(t *testing.T) {
		shell := filepath.Join(t.TempDir(), "envsh")
		require.NoError(t, os.WriteFile(shell, []byte("#!/bin/sh\n"), 0755))
		t.Setenv("SHELL", shell)

		path, err := engine.ResolveShell("")
		require.NoError(t, err)
		assert.Equal(t, shell, path)
	})

	t.Run("BareNameResolvedViaPATH", func(t *testing.T) {
		dir := t.TempDir()
		shell := filepath.Join(dir, "zish")
		require.NoError(t, os.WriteFile(shell, []byte("#!/bin/sh\n"), 0755))
		t.Setenv("PATH", dir)

		path, err := engine.ResolveShell("zish")
		require.NoError(t, err)
		assert.Equal(t, shell, path)
	})

	t.Run("MissingShellErrors", func(t *testing.T) {
		_, err := engine.ResolveShell("/nonexistent/shell-xyz")
		require.Error(t, err)
	})
}
