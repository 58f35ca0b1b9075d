// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"path/filepath"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
)

// DefaultDataDir holds the playlist store, the build lock and run history.
const DefaultDataDir = "/etc/enigma2/bouquetmakerxtream"

// Defaults returns the built-in configuration for a receiver layout.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:    DefaultDataDir,
		Enigma2Dir: "/etc/enigma2",
		Log:        LogConfig{Level: "info", Format: "auto"},
		Provider: ProviderConfig{
			UserAgent: "Enigma2 - BouquetMakerXtream Plugin",
			Timeout:   30 * time.Second,
		},
		Streams:   StreamsConfig{LiveType: playlists.DefaultServiceType, VODType: playlists.DefaultServiceType},
		Catchup:   CatchupConfig{Prefix: "^"},
		EPGImport: EPGImportConfig{Enabled: true, Dir: "/etc/epgimport"},
		Picons: PiconsConfig{
			Dir:        "/media/hdd/picon",
			Size:       picons.SizeX,
			BitDepth:   picons.Depth32,
			MaxThreads: 10,
		},
		Pipeline:   PipelineConfig{StageDelay: 20 * time.Millisecond},
		OpenWebIF:  OpenWebIFConfig{Timeout: 10 * time.Second},
		AutoUpdate: AutoUpdateConfig{Wakeup: "04:00"},
		API:        APIConfig{Listen: "127.0.0.1:8585", RateLimit: 30},
		History:    HistoryConfig{Retention: 30 * 24 * time.Hour},
		Telemetry:  TelemetryConfig{Exporter: "grpc", Endpoint: "localhost:4317", SamplingRate: 1.0},
	}
}

// resolvePaths fills the paths derived from DataDir.
func resolvePaths(cfg *AppConfig) {
	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.PlaylistsFile == "" {
		cfg.PlaylistsFile = filepath.Join(cfg.DataDir, "playlists.json")
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join(cfg.DataDir, "history.db")
	}
}
