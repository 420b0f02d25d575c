package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cfg")

	cfg, err := Load(dir)
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, dir, cfg.ConfigDir)
	assert.Equal(t, def.ListenAddr, cfg.ListenAddr)
	assert.Equal(t, def.DefaultPageURL, cfg.DefaultPageURL)
	assert.Equal(t, def.DataDir, cfg.DataDir)
	assert.Equal(t, 5, cfg.CommandTimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	body := `{
  "listen_addr": "127.0.0.1:9000",
  "assets_dir": "/srv/page",
  "command_timeout_seconds": 0,
  "logging": {"level": "debug", "format": "json"}
}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(body), 0600))
	t.Setenv("SMARTDOCTOR_DATA_DIR", "/mnt/data")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, "/srv/page", cfg.AssetsDir)
	assert.Equal(t, "/mnt/data", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	// non-positive timeouts fall back to defaults
	assert.Equal(t, 5, cfg.CommandTimeoutSeconds)
}

func TestLoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)
	cfg.ListenAddr = "127.0.0.1:7000"
	require.NoError(t, cfg.Save())

	reloaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", reloaded.ListenAddr)
	assert.Equal(t, filepath.Join(dir, "installation_id"), reloaded.Paths().InstallationID)
}
