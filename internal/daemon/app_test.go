// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/config"
	"github.com/ManuGH/bouquetmaker/internal/history"
	"github.com/ManuGH/bouquetmaker/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*App, context.CancelFunc) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "data_dir: " + filepath.Join(dir, "data") + "\n" +
		"enigma2_dir: " + filepath.Join(dir, "enigma2") + "\n" +
		"epgimport:\n  enabled: false\n" +
		"autoupdate:\n  enabled: false\n" +
		"api:\n  enabled: true\n  listen: 127.0.0.1:0\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	loader := config.NewLoader(path, "test")
	cfg, err := loader.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	a, err := NewApp(ctx, config.NewConfigHolder(cfg, loader))
	require.NoError(t, err)
	a.reloadSignal = nil
	return a, cancel
}

func TestAppRunStopsOnCancel(t *testing.T) {
	a, cancel := newTestApp(t)
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()
	_ = waitAddr(t, a.manager)

	stop()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestAppApplySwapsCollaborators(t *testing.T) {
	a, cancel := newTestApp(t)
	defer cancel()
	defer func() { _ = a.current().Close() }()

	before := a.current()
	next := before.Config
	next.Enigma2Dir = filepath.Join(t.TempDir(), "moved")
	a.apply(next)

	after := a.current()
	assert.Equal(t, next.Enigma2Dir, after.Config.Enigma2Dir)
	assert.Same(t, before.History, after.History)
}

func TestScheduledBuildIsRecorded(t *testing.T) {
	a, cancel := newTestApp(t)
	defer cancel()
	defer func() { _ = a.current().Close() }()
	require.NotNil(t, a.current().History)

	a.scheduledBuild(context.Background())
	a.Jobs().Wait()

	runs, err := a.current().History.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, jobs.TriggerSchedule, runs[0].Trigger)
	assert.Equal(t, history.StatusSuccess, runs[0].Status)
	assert.Empty(t, runs[0].Playlists)
}

func TestReadinessChecks(t *testing.T) {
	a, cancel := newTestApp(t)
	defer cancel()
	defer func() { _ = a.current().Close() }()

	hm := a.readiness()
	resp := hm.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Contains(t, resp.Checks, "enigma2_dir")
	assert.Contains(t, resp.Checks, "playlists")

	require.NoError(t, os.WriteFile(a.current().Config.PlaylistsFile, []byte("{broken"), 0o600))
	w := httptest.NewRecorder()
	hm.ServeReady(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
