package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.CLI.Format)
	assert.False(t, cfg.CLI.NoColor)
	assert.Equal(t, ".flowscript/state", cfg.CLI.StateDir)
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowscript.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cli:\n  format: json\n  no_color: true\n  state_dir: /tmp/state\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.CLI.Format)
	assert.True(t, cfg.CLI.NoColor)
	assert.Equal(t, "/tmp/state", cfg.CLI.StateDir)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flowscript.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cli:\n  format: json\n"), 0o644))
	t.Setenv("FLOWSCRIPT_CLI_FORMAT", "text")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.CLI.Format)
}

func TestApplyFlags(t *testing.T) {
	cfg := Default()
	cfg.ApplyFlags("json", true, true, true)
	assert.Equal(t, "json", cfg.CLI.Format)
	assert.True(t, cfg.CLI.NoColor)
}
