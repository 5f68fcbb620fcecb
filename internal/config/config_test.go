package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "cookdex.db", cfg.Store.Path)
	assert.Equal(t, 4, cfg.Fetch.Connections)
	assert.Equal(t, 10, cfg.Fetch.TimeoutSecs)
	assert.Equal(t, "default", cfg.Fetch.Mode)
	assert.Equal(t, 2, cfg.Scrape.MaxRetries)
	assert.InDelta(t, 2.0, cfg.Scrape.RatePerHost, 0.001)
	assert.Equal(t, int64(8<<20), cfg.Scrape.MaxBodyBytes)
	assert.Equal(t, "txt", cfg.Output.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Contains(t, cfg.Scrape.UserAgent, "Firefox")
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/cookdex
fetch:
  connections: 8
  mode: new
output:
  format: md
  include_incomplete: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/cookdex", cfg.Store.DatabaseURL)
	assert.Equal(t, 8, cfg.Fetch.Connections)
	assert.Equal(t, "new", cfg.Fetch.Mode)
	assert.Equal(t, "md", cfg.Output.Format)
	assert.True(t, cfg.Output.IncludeIncomplete)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Untouched keys keep their defaults
	assert.Equal(t, 10, cfg.Fetch.TimeoutSecs)
}

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("COOKDEX_FETCH_CONNECTIONS", "12")
	t.Setenv("COOKDEX_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Fetch.Connections)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))

	err := InitLogger(LogConfig{Level: "nope", Format: "json"})
	assert.Error(t, err)
}
