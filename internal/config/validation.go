// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/ManuGH/bouquetmaker/internal/validate"
)

// Validate checks the merged configuration. Directories that the build
// creates on demand are not required to exist.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.NotEmpty("data_dir", cfg.DataDir)
	v.NotEmpty("playlists_file", cfg.PlaylistsFile)
	v.NotEmpty("enigma2_dir", cfg.Enigma2Dir)

	v.OneOf("log.level", cfg.Log.Level, []string{"trace", "debug", "info", "warn", "error"})
	v.OneOf("log.format", cfg.Log.Format, []string{"auto", "json", "console"})

	v.NonNegativeDuration("provider.timeout", cfg.Provider.Timeout)
	if cfg.Provider.RateLimit < 0 {
		v.AddError("provider.rate_limit", "value cannot be negative", cfg.Provider.RateLimit)
	}

	v.Numeric("streams.live_type", cfg.Streams.LiveType)
	v.Numeric("streams.vod_type", cfg.Streams.VODType)

	if cfg.EPGImport.Enabled {
		v.NotEmpty("epgimport.dir", cfg.EPGImport.Dir)
	}

	v.NotEmpty("picons.dir", cfg.Picons.Dir)
	v.OneOf("picons.size", cfg.Picons.Size, []string{picons.SizeX, picons.SizeZZZ})
	v.OneOf("picons.bitdepth", cfg.Picons.BitDepth, []string{picons.Depth32, picons.Depth8})
	if cfg.Picons.MaxSize < 0 {
		v.AddError("picons.max_size", "value cannot be negative", cfg.Picons.MaxSize)
	}
	v.NonNegative("picons.max_width", cfg.Picons.MaxWidth)
	v.Range("picons.max_threads", cfg.Picons.MaxThreads, 1, 50)
	v.NonNegative("picons.rate_per_second", cfg.Picons.RatePerSecond)

	v.NonNegativeDuration("pipeline.stage_delay", cfg.Pipeline.StageDelay)

	v.OptionalURL("openwebif.base_url", cfg.OpenWebIF.BaseURL, []string{"http", "https"})
	v.NonNegativeDuration("openwebif.timeout", cfg.OpenWebIF.Timeout)

	if cfg.AutoUpdate.Enabled {
		v.ClockTime("autoupdate.wakeup", cfg.AutoUpdate.Wakeup)
	}
	if cfg.API.Enabled {
		v.NotEmpty("api.listen", cfg.API.Listen)
		v.Positive("api.rate_limit", cfg.API.RateLimit)
	}
	v.NonNegativeDuration("history.retention", cfg.History.Retention)

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		if cfg.Telemetry.SamplingRate < 0 || cfg.Telemetry.SamplingRate > 1 {
			v.AddError("telemetry.sampling_rate", "must be between 0 and 1", cfg.Telemetry.SamplingRate)
		}
	}
	return v.Err()
}
