// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/catalog"
	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/xtream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingFetcher struct {
	*fakeFetcher
	release chan struct{}
}

func (b *blockingFetcher) Snapshot(ctx context.Context, e xtream.Endpoints, kind catalog.Kind) (catalog.Snapshot, error) {
	<-b.release
	return b.fakeFetcher.Snapshot(ctx, e, kind)
}

// gatedFetcher signals the first catalog request and holds it until released.
type gatedFetcher struct {
	*fakeFetcher
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedFetcher) Snapshot(ctx context.Context, e xtream.Endpoints, kind catalog.Kind) (catalog.Snapshot, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return g.fakeFetcher.Snapshot(ctx, e, kind)
}

func TestManagerRejectsConcurrentBuild(t *testing.T) {
	f := newFixture(t, xtreamPlaylist("ex"))
	bf := &blockingFetcher{fakeFetcher: f.fetcher, release: make(chan struct{})}
	f.deps.Fetcher = bf
	f.deps.Observer = nil

	m := NewManager(context.Background(), f.deps, nil)
	id, err := m.Start(Options{Names: []string{"ex"}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, m.Running())

	_, err = m.Start(Options{})
	require.ErrorIs(t, err, ErrRunning)

	close(bf.release)
	m.Wait()
	assert.False(t, m.Running())
	assert.True(t, m.Progress().Done)
	assert.Equal(t, id, m.Progress().RunID)
	assert.False(t, m.Cancel())
}

func TestManagerCancel(t *testing.T) {
	f := newFixture(t, xtreamPlaylist("ex"))
	bf := &blockingFetcher{fakeFetcher: f.fetcher, release: make(chan struct{})}
	f.deps.Fetcher = bf
	f.deps.Observer = nil

	m := NewManager(context.Background(), f.deps, nil)
	_, err := m.Start(Options{Names: []string{"ex"}, StageDelay: time.Millisecond})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.Progress().Stage == StageBuildURLList }, time.Second, time.Millisecond)
	assert.True(t, m.Cancel())
	close(bf.release)
	m.Wait()

	require.Len(t, f.hist.runs, 1)
	assert.Equal(t, "cancelled", f.hist.runs[0].Status)
}

type busyLock struct{}

func (busyLock) TryLock() (func(), error) { return nil, playlists.ErrBusy }

func TestManagerHonoursProcessLock(t *testing.T) {
	f := newFixture(t, xtreamPlaylist("ex"))
	m := NewManager(context.Background(), f.deps, busyLock{})
	_, err := m.Start(Options{})
	require.ErrorIs(t, err, playlists.ErrBusy)
	assert.False(t, m.Running())
}

func TestManagerStartPicons(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)

	p := xtreamPlaylist("ex")
	f := newFixture(t, p)
	snap := liveSnapshot()
	snap.Streams[0].StreamIcon = srv.URL + "/alpha.png"
	f.fetcher.snaps[catalog.Live] = snap

	m := NewManager(context.Background(), f.deps, nil)
	batch, err := m.StartPicons(context.Background(), "ex", picons.Config{Dir: t.TempDir(), MaxThreads: 2}, "")
	require.NoError(t, err)
	require.NoError(t, batch.Wait(context.Background()))
	assert.Equal(t, 1, batch.Stats().Total)
	assert.Equal(t, 1, batch.Stats().Blocked)
	assert.Same(t, batch, m.Picons())

	_, err = m.StartPicons(context.Background(), "missing", picons.Config{Dir: t.TempDir()}, "")
	require.ErrorIs(t, err, playlists.ErrNotFound)
}

func TestManagerStartPiconsReservesSlot(t *testing.T) {
	f := newFixture(t, xtreamPlaylist("ex"))
	gf := &gatedFetcher{fakeFetcher: f.fetcher, entered: make(chan struct{}), release: make(chan struct{})}
	f.deps.Fetcher = gf
	m := NewManager(context.Background(), f.deps, nil)
	cfg := picons.Config{Dir: t.TempDir(), MaxThreads: 1}

	type result struct {
		batch *picons.Batch
		err   error
	}
	first := make(chan result, 1)
	go func() {
		b, err := m.StartPicons(context.Background(), "ex", cfg, "")
		first <- result{b, err}
	}()

	<-gf.entered
	_, err := m.StartPicons(context.Background(), "ex", cfg, "")
	require.ErrorIs(t, err, ErrRunning, "slot is held while the catalog is fetched")

	close(gf.release)
	res := <-first
	require.NoError(t, res.err)
	require.NoError(t, res.batch.Wait(context.Background()))
	assert.Same(t, res.batch, m.Picons())

	again, err := m.StartPicons(context.Background(), "ex", cfg, "")
	require.NoError(t, err, "slot is free once the batch finished")
	require.NoError(t, again.Wait(context.Background()))
}
