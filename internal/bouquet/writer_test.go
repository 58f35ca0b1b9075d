// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bouquet

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ManuGH/bouquetmaker/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func newsResult(t *testing.T, grouped bool) Result {
	t.Helper()
	snap := catalog.Snapshot{
		Categories: []catalog.Category{cat("1", "News"), cat("2", "Sport")},
		Streams:    []catalog.Stream{live("70000", "Alpha", "1"), live("2", "Beta", "2")},
	}
	in := input(catalog.Live, xtreamPlaylist(), snap)
	in.Grouped = grouped
	return Compile(in)
}

func TestApplyWritesArtifactsAndParent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bouquets.tv"), []byte("#NAME User - bouquets (TV)\n"), 0o644))
	w := NewWriter(dir)
	ctx := context.Background()

	res := newsResult(t, false)
	applied, err := w.Apply(ctx, Target{Name: "ex", SafeName: "ex"}, res)
	require.NoError(t, err)
	assert.Equal(t, Applied{Written: 2}, applied)

	assert.Equal(t, res.Categories[0].Content(), readFile(t, filepath.Join(dir, "userbouquet.bouquetmakerxtream_live_ex_News.tv")))
	parent := readFile(t, filepath.Join(dir, "bouquets.tv"))
	assert.Equal(t, "#NAME User - bouquets (TV)\n"+res.ParentLines[0]+res.ParentLines[1], parent)
}

func TestPurgeThenApplyIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bouquets.tv"), []byte("#NAME User - bouquets (TV)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "userbouquet.favourites.tv"), []byte("#NAME Favourites\n"), 0o644))
	w := NewWriter(dir)
	ctx := context.Background()
	target := Target{Name: "ex", SafeName: "ex"}

	snapshot := func() map[string]string {
		out := map[string]string{}
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			out[e.Name()] = readFile(t, filepath.Join(dir, e.Name()))
		}
		return out
	}

	_, err := w.Apply(ctx, target, newsResult(t, false))
	require.NoError(t, err)
	first := snapshot()

	removed, err := w.Purge(ctx, "ex")
	require.NoError(t, err)
	assert.Len(t, removed, 2)
	assert.Equal(t, "#NAME User - bouquets (TV)\n", readFile(t, filepath.Join(dir, "bouquets.tv")))
	assert.FileExists(t, filepath.Join(dir, "userbouquet.favourites.tv"))

	_, err = w.Apply(ctx, target, newsResult(t, false))
	require.NoError(t, err)
	assert.Equal(t, first, snapshot())
}

func TestPurgeKeepsSiblingPlaylist(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bouquets.tv"), []byte("#NAME User - bouquets (TV)\n"), 0o644))
	w := NewWriter(dir)
	ctx := context.Background()

	_, err := w.Apply(ctx, Target{Name: "ex", SafeName: "ex"}, newsResult(t, false))
	require.NoError(t, err)
	sibling := func() Input {
		in := input(catalog.Live, xtreamPlaylist(), catalog.Snapshot{
			Categories: []catalog.Category{cat("1", "News")},
			Streams:    []catalog.Stream{live("70000", "Alpha", "1")},
		})
		in.SafeName = "ex_2"
		return in
	}()
	_, err = w.Apply(ctx, Target{Name: "ex_2", SafeName: "ex_2"}, Compile(sibling))
	require.NoError(t, err)

	removed, err := w.Purge(ctx, "ex", "ex_2")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"userbouquet.bouquetmakerxtream_live_ex_News.tv",
		"userbouquet.bouquetmakerxtream_live_ex_Sport.tv",
	}, removed)
	assert.FileExists(t, filepath.Join(dir, "userbouquet.bouquetmakerxtream_live_ex_2_News.tv"))
	parent := readFile(t, filepath.Join(dir, "bouquets.tv"))
	assert.Contains(t, parent, "userbouquet.bouquetmakerxtream_live_ex_2_News.tv")
	assert.NotContains(t, parent, "bouquetmakerxtream_live_ex_News.tv")
}

func TestApplyGroupedAnchorsOnce(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	ctx := context.Background()
	target := Target{Name: "My Provider", SafeName: "ex", Grouped: true}

	res := newsResult(t, true)
	_, err := w.Apply(ctx, target, res)
	require.NoError(t, err)

	vod := Compile(func() Input {
		in := input(catalog.VOD, xtreamPlaylist(), catalog.Snapshot{
			Categories: []catalog.Category{cat("7", "Films")},
			Streams:    []catalog.Stream{{StreamID: "9", Name: "Heat", CategoryID: "7"}},
		})
		in.Grouped = true
		return in
	}())
	_, err = w.Apply(ctx, target, vod)
	require.NoError(t, err)

	parent := readFile(t, filepath.Join(dir, "bouquets.tv"))
	assert.Equal(t, 1, strings.Count(parent, "userbouquet.bouquetmakerxtream_ex.tv"))

	group := readFile(t, filepath.Join(dir, "userbouquet.bouquetmakerxtream_ex.tv"))
	lines := strings.Split(strings.TrimSuffix(group, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "#NAME My Provider", lines[0])
	assert.Contains(t, lines[1], "subbouquet.bouquetmakerxtream_live_ex_News.tv")
	assert.Contains(t, lines[3], "subbouquet.bouquetmakerxtream_vod_ex_Films.tv")

	removed, err := w.Purge(ctx, "ex")
	require.NoError(t, err)
	assert.Len(t, removed, 4)
	assert.Empty(t, readFile(t, filepath.Join(dir, "bouquets.tv")))
}

func TestApplyEmptyResultWritesNothing(t *testing.T) {
	dir := t.TempDir()
	applied, err := NewWriter(dir).Apply(context.Background(), Target{SafeName: "ex"}, Result{Kind: catalog.Live})
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.NoFileExists(t, filepath.Join(dir, "bouquets.tv"))
}
