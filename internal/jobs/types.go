// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/bouquet"
	"github.com/ManuGH/bouquetmaker/internal/catalog"
	"github.com/ManuGH/bouquetmaker/internal/history"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/xtream"
)

// Fetcher retrieves provider catalogs.
type Fetcher interface {
	Snapshot(ctx context.Context, e xtream.Endpoints, kind catalog.Kind) (catalog.Snapshot, error)
	SeriesEpisodes(ctx context.Context, e xtream.Endpoints) ([]xtream.Episode, error)
	External(ctx context.Context, rawURL string) (string, error)
}

// BouquetWriter applies compiled results to the Enigma2 directory.
type BouquetWriter interface {
	Apply(ctx context.Context, t bouquet.Target, res bouquet.Result) (bouquet.Applied, error)
	Purge(ctx context.Context, safeName string, others ...string) ([]string, error)
}

// EPGSources maintains the EPG-Import documents.
type EPGSources interface {
	Available() bool
	ChannelsPath(safe string) string
	Upsert(ctx context.Context, safe, channelsPath, url string) error
	Remove(ctx context.Context, safe string) error
	Purge(safe string) ([]string, error)
	WriteChannels(ctx context.Context, path string, fragments []string) error
}

// Refresher tells the receiver to reload its service lists.
type Refresher interface {
	ReloadServices(ctx context.Context) error
}

// PlaylistStore persists the playlist collection.
type PlaylistStore interface {
	Load() ([]playlists.Playlist, error)
	Save(ctx context.Context, list []playlists.Playlist) error
}

// Locker serializes builds across processes.
type Locker interface {
	TryLock() (unlock func(), err error)
}

// HistoryRecorder stores run summaries.
type HistoryRecorder interface {
	Record(ctx context.Context, r history.Run) (history.Run, error)
}

// Observer receives a progress snapshot after every stage.
type Observer interface {
	OnProgress(p Progress)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Progress)

// OnProgress implements Observer.
func (f ObserverFunc) OnProgress(p Progress) { f(p) }

// Deps holds the collaborators of a build. EPG, Refresher, History and
// Observer are optional.
type Deps struct {
	Store     PlaylistStore
	Fetcher   Fetcher
	Writer    BouquetWriter
	EPG       EPGSources
	Refresher Refresher
	History   HistoryRecorder
	Observer  Observer
	Clock     func() time.Time
}

// Build origins recorded in the run history.
const (
	TriggerCLI      = "cli"
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// Options are the global build settings.
type Options struct {
	// Names limits the build to these playlists. Empty selects every
	// playlist that already has bouquets.
	Names []string
	// Groups nests each playlist's categories under one sub-list unless the
	// playlist overrides it.
	Groups  bool
	Catchup bouquet.Catchup
	// StageDelay pauses between stages to keep the receiver responsive.
	StageDelay time.Duration
	// LocalDir resolves relative local playlist paths.
	LocalDir string
	// Trigger is one of the Trigger constants.
	Trigger string
}

// Progress is a snapshot of a running build.
type Progress struct {
	RunID      string       `json:"run_id"`
	Playlist   string       `json:"playlist,omitempty"`
	Position   int          `json:"position"`
	Playlists  int          `json:"playlists"`
	Stage      Stage        `json:"stage"`
	Kind       catalog.Kind `json:"kind,omitempty"`
	Value      int          `json:"value"`
	Range      int          `json:"range"`
	Categories int          `json:"categories"`
	Done       bool         `json:"done"`
	Error      string       `json:"error,omitempty"`
}
