// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteRemovesArtifacts(t *testing.T) {
	f := newFixture(t, xtreamPlaylist("ex"), xtreamPlaylist("other"))
	ctx := context.Background()
	require.NoError(t, NewBuild(f.deps, Options{Names: []string{"ex", "other"}}).Run(ctx))
	require.True(t, f.exists("userbouquet.bouquetmakerxtream_live_ex_News.tv"))

	require.NoError(t, Delete(ctx, f.deps, []string{"ex"}))

	assert.False(t, f.exists("userbouquet.bouquetmakerxtream_live_ex_News.tv"))
	assert.False(t, f.exists("userbouquet.bouquetmakerxtream_vod_ex_Movies.tv"))
	assert.True(t, f.exists("userbouquet.bouquetmakerxtream_live_other_News.tv"))
	assert.NoFileExists(t, filepath.Join(f.epgDir, "bouquetmakerxtream.ex.channels.xml"))

	parent, err := os.ReadFile(filepath.Join(f.enigma2, "bouquets.tv"))
	require.NoError(t, err)
	assert.NotContains(t, string(parent), "_ex_")
	assert.Contains(t, string(parent), "_other_")

	sources, err := os.ReadFile(filepath.Join(f.epgDir, "bouquetmakerxtream.sources.xml"))
	require.NoError(t, err)
	assert.NotContains(t, string(sources), "<description>ex</description>")

	assert.False(t, f.store.get(0).Info.Bouquet)
	assert.True(t, f.store.get(1).Info.Bouquet)
	assert.Equal(t, 2, f.refresh.calls)
}

func TestDeleteUnknownName(t *testing.T) {
	p := xtreamPlaylist("ex")
	p.Info.Bouquet = true
	f := newFixture(t, p)

	err := Delete(context.Background(), f.deps, []string{"ex", "nope"})
	require.ErrorIs(t, err, playlists.ErrNotFound)
	assert.False(t, f.store.get(0).Info.Bouquet)
	assert.Equal(t, 1, f.store.saves)

	f.store.saves = 0
	err = Delete(context.Background(), f.deps, []string{"nope"})
	require.ErrorIs(t, err, playlists.ErrNotFound)
	assert.Zero(t, f.store.saves)
}
