// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// AppConfig is the effective configuration after defaults, file and
// environment have been merged.
type AppConfig struct {
	DataDir       string `yaml:"data_dir"`
	PlaylistsFile string `yaml:"playlists_file"`
	Enigma2Dir    string `yaml:"enigma2_dir"`

	Log        LogConfig        `yaml:"log"`
	Provider   ProviderConfig   `yaml:"provider"`
	Streams    StreamsConfig    `yaml:"streams"`
	Bouquets   BouquetsConfig   `yaml:"bouquets"`
	Catchup    CatchupConfig    `yaml:"catchup"`
	EPGImport  EPGImportConfig  `yaml:"epgimport"`
	Picons     PiconsConfig     `yaml:"picons"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	OpenWebIF  OpenWebIFConfig  `yaml:"openwebif"`
	AutoUpdate AutoUpdateConfig `yaml:"autoupdate"`
	API        APIConfig        `yaml:"api"`
	History    HistoryConfig    `yaml:"history"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`

	// Version is set from the binary, never from file or environment.
	Version string `yaml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ProviderConfig struct {
	UserAgent          string        `yaml:"user_agent"`
	Timeout            time.Duration `yaml:"timeout"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	// RateLimit is requests per second; zero disables pacing.
	RateLimit float64 `yaml:"rate_limit"`
}

type StreamsConfig struct {
	LiveType string `yaml:"live_type"`
	VODType  string `yaml:"vod_type"`
}

type BouquetsConfig struct {
	Groups bool `yaml:"groups"`
}

type CatchupConfig struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix"`
}

type EPGImportConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type PiconsConfig struct {
	Dir           string `yaml:"dir"`
	Size          string `yaml:"size"`
	BitDepth      string `yaml:"bitdepth"`
	Overwrite     bool   `yaml:"overwrite"`
	MaxSize       int64  `yaml:"max_size"`
	MaxWidth      int    `yaml:"max_width"`
	MaxThreads    int    `yaml:"max_threads"`
	RatePerSecond int    `yaml:"rate_per_second"`
}

type PipelineConfig struct {
	StageDelay time.Duration `yaml:"stage_delay"`
}

type OpenWebIFConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

type AutoUpdateConfig struct {
	Enabled bool `yaml:"enabled"`
	// Wakeup is the daily "HH:MM" local time of the scheduled build.
	Wakeup string `yaml:"wakeup"`
}

type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	// RateLimit caps mutation requests per client and minute.
	RateLimit int `yaml:"rate_limit"`
}

type HistoryConfig struct {
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}
