// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BMX_DATA_DIR", t.TempDir())
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, filepath.Join(cfg.DataDir, "playlists.json"), cfg.PlaylistsFile)
	assert.Equal(t, filepath.Join(cfg.DataDir, "history.db"), cfg.History.Path)
	assert.Equal(t, "4097", cfg.Streams.LiveType)
	assert.Equal(t, 10, cfg.Picons.MaxThreads)
}

func TestLoadFileKeepsUnsetDefaults(t *testing.T) {
	path := writeConfig(t, `
data_dir: /tmp/bmx
bouquets:
  groups: true
provider:
  timeout: 5s
picons:
  size: zzzpicons
  max_threads: 3
autoupdate:
  enabled: true
  wakeup: "05:30"
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bmx", cfg.DataDir)
	assert.True(t, cfg.Bouquets.Groups)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "zzzpicons", cfg.Picons.Size)
	assert.Equal(t, 3, cfg.Picons.MaxThreads)
	assert.Equal(t, "32bit", cfg.Picons.BitDepth)
	assert.Equal(t, "05:30", cfg.AutoUpdate.Wakeup)
	assert.Equal(t, "Enigma2 - BouquetMakerXtream Plugin", cfg.Provider.UserAgent)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := writeConfig(t, "bouquets:\n  grouped: true\n")
	_, err := NewLoader(path, "").Load()
	require.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoadRejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "").Load()
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n---\nlog:\n  level: debug\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
}

func TestLoadEmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log:\n  level: warn\npicons:\n  max_threads: 3\n")
	t.Setenv("BMX_LOG_LEVEL", "debug")
	t.Setenv("BMX_PICONS_MAX_THREADS", "7")
	t.Setenv("BMX_GROUPS", "yes")
	t.Setenv("BMX_STAGE_DELAY", "not-a-duration")

	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Picons.MaxThreads)
	assert.True(t, cfg.Bouquets.Groups)
	assert.Equal(t, Defaults().Pipeline.StageDelay, cfg.Pipeline.StageDelay)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"log level", func(c *AppConfig) { c.Log.Level = "loud" }},
		{"picon size", func(c *AppConfig) { c.Picons.Size = "huge" }},
		{"threads", func(c *AppConfig) { c.Picons.MaxThreads = 0 }},
		{"service type", func(c *AppConfig) { c.Streams.LiveType = "abc" }},
		{"owi url", func(c *AppConfig) { c.OpenWebIF.BaseURL = "receiver" }},
		{"wakeup", func(c *AppConfig) { c.AutoUpdate.Enabled = true; c.AutoUpdate.Wakeup = "4am" }},
		{"exporter", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }},
		{"sampling", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.SamplingRate = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			resolvePaths(&cfg)
			require.NoError(t, Validate(cfg))
			tt.mutate(&cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("BMX_TEST_DOTENV=from-file\nBMX_TEST_PRESET=from-file\n"), 0o600))
	t.Setenv("BMX_TEST_PRESET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("BMX_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("BMX_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("BMX_TEST_PRESET"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
	assert.NoError(t, LoadDotEnv(""))
}

func TestParseHelpers(t *testing.T) {
	t.Setenv("BMX_T_INT", "12")
	t.Setenv("BMX_T_BAD", "x")
	t.Setenv("BMX_T_BOOL", "No")
	t.Setenv("BMX_T_EMPTY", "")

	assert.Equal(t, 12, ParseInt("BMX_T_INT", 1))
	assert.Equal(t, 1, ParseInt("BMX_T_BAD", 1))
	assert.False(t, ParseBool("BMX_T_BOOL", true))
	assert.True(t, ParseBool("BMX_T_BAD", true))
	assert.Equal(t, "d", ParseString("BMX_T_EMPTY", "d"))
	assert.Equal(t, int64(12), ParseInt64("BMX_T_INT", 0))
	assert.InDelta(t, 12.0, ParseFloat("BMX_T_INT", 0), 0.001)
}
