// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC)

	first, err := s.Record(ctx, Run{
		Trigger: "schedule", StartedAt: base, FinishedAt: base.Add(90 * time.Second),
		Playlists: []string{"ex"}, Categories: 12, Status: StatusSuccess,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.Record(ctx, Run{
		Trigger: "cli", StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second),
		Status: StatusFailed, Error: "playlist store busy",
	})
	require.NoError(t, err)

	runs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "cli", runs[0].Trigger, "newest first")
	assert.Equal(t, []string{}, runs[0].Playlists)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, []string{"ex"}, runs[1].Playlists)
	assert.Equal(t, 12, runs[1].Categories)
	assert.Equal(t, 90*time.Second, runs[1].Duration())
	assert.True(t, runs[1].StartedAt.Equal(base))
}

func TestRecordRejectsUnknownStatus(t *testing.T) {
	s := openStore(t)
	now := time.Now()
	_, err := s.Record(context.Background(), Run{StartedAt: now, FinishedAt: now, Status: "weird"})
	assert.Error(t, err)
}

func TestPruneAndCheck(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	old := time.Now().Add(-60 * 24 * time.Hour)
	for _, ts := range []time.Time{old, time.Now()} {
		_, err := s.Record(ctx, Run{StartedAt: ts, FinishedAt: ts, Status: StatusSuccess})
		require.NoError(t, err)
	}

	n, err := s.Prune(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	issues, err := s.Check(ctx)
	require.NoError(t, err)
	assert.Nil(t, issues)
}
