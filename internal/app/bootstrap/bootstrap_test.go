// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	dir := t.TempDir()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.PlaylistsFile = filepath.Join(cfg.DataDir, "playlists.json")
	cfg.History.Path = filepath.Join(cfg.DataDir, "history.db")
	cfg.Enigma2Dir = filepath.Join(dir, "enigma2")
	cfg.EPGImport.Dir = filepath.Join(dir, "epgimport")
	return cfg
}

func TestWireOptionalCollaborators(t *testing.T) {
	cfg := testConfig(t)
	cfg.EPGImport.Enabled = false

	c, err := Wire(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	d := c.Deps(nil)
	assert.Nil(t, d.EPG)
	assert.NotNil(t, d.History)
	assert.NotNil(t, d.Store)
	assert.DirExists(t, cfg.DataDir)
}

func TestBuildOptions(t *testing.T) {
	cfg := testConfig(t)
	cfg.Bouquets.Groups = true
	cfg.Catchup.Enabled = true
	cfg.Pipeline.StageDelay = time.Second

	c, err := Wire(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	opts := c.BuildOptions([]string{"ex"}, "cli")
	assert.Equal(t, []string{"ex"}, opts.Names)
	assert.True(t, opts.Groups)
	assert.True(t, opts.Catchup.Enabled)
	assert.Equal(t, "^", opts.Catchup.Prefix)
	assert.Equal(t, time.Second, opts.StageDelay)
	assert.Equal(t, "cli", opts.Trigger)
}

func TestProviderOptionsRateLimit(t *testing.T) {
	cfg := config.Defaults()
	assert.Zero(t, ProviderOptions(cfg).RateLimit)

	cfg.Provider.RateLimit = 2.5
	opts := ProviderOptions(cfg)
	assert.Equal(t, rate.Limit(2.5), opts.RateLimit)
	assert.Equal(t, 2, opts.RateLimitBurst)
}

func TestPiconConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Picons.MaxThreads = 4
	pc := PiconConfig(cfg)
	assert.Equal(t, 4, pc.MaxThreads)
	assert.Equal(t, cfg.Picons.Dir, pc.Dir)
}

func TestRebindKeepsHistory(t *testing.T) {
	cfg := testConfig(t)
	c, err := Wire(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	require.NotNil(t, c.History)

	next := cfg
	next.Enigma2Dir = filepath.Join(t.TempDir(), "other")
	next.EPGImport.Enabled = false
	r := c.Rebind(next)

	assert.Same(t, c.History, r.History)
	assert.Nil(t, r.EPG)
	assert.Equal(t, next.Enigma2Dir, r.Config.Enigma2Dir)
	assert.NotSame(t, c.Writer, r.Writer)
}
