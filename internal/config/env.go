// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/rs/zerolog"
)

// EnvPrefix is shared by every environment override.
const EnvPrefix = "BMX_"

// ParseString reads a string from environment variable or returns default value.
// Values of keys that look like secrets are never logged.
func ParseString(key, defaultValue string) string {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key)
		return defaultValue
	}
	lower := strings.ToLower(key)
	if strings.Contains(lower, "password") || strings.Contains(lower, "token") {
		logger.Debug().Str("key", key).Str("source", "environment").Bool("sensitive", true).Msg("using environment variable")
		return v
	}
	logger.Debug().Str("key", key).Str("value", v).Str("source", "environment").Msg("using environment variable")
	return v
}

// ParseInt reads an integer from environment variable or returns default value.
// It falls back to default on parse errors.
func ParseInt(key string, defaultValue int) int {
	return parseWith(key, defaultValue, strconv.Atoi, "integer")
}

// ParseInt64 is ParseInt for byte sizes.
func ParseInt64(key string, defaultValue int64) int64 {
	return parseWith(key, defaultValue, func(s string) (int64, error) {
		return strconv.ParseInt(s, 10, 64)
	}, "integer")
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseWith(key, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}, "float")
}

// ParseDuration reads a duration in Go format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseWith(key, defaultValue, time.ParseDuration, "duration")
}

// ParseBool accepts "true", "false", "1", "0", "yes", "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseWith(key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	}, "boolean")
}

func parseWith[T any](key string, defaultValue T, parse func(string) (T, error), what string) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logDefault(logger, key)
		return defaultValue
	}
	parsed, err := parse(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Msgf("invalid %s in environment variable, using default", what)
		return defaultValue
	}
	logger.Debug().Str("key", key).Str("value", v).Str("source", "environment").Msg("using environment variable")
	return parsed
}

func logDefault(logger zerolog.Logger, key string) {
	logger.Trace().Str("key", key).Str("source", "default").Msg("using default value")
}

// mergeEnv applies BMX_* overrides on top of cfg.
func mergeEnv(cfg *AppConfig) {
	env := func(k string) string { return EnvPrefix + k }

	cfg.DataDir = ParseString(env("DATA_DIR"), cfg.DataDir)
	cfg.PlaylistsFile = ParseString(env("PLAYLISTS_FILE"), cfg.PlaylistsFile)
	cfg.Enigma2Dir = ParseString(env("ENIGMA2_DIR"), cfg.Enigma2Dir)

	cfg.Log.Level = ParseString(env("LOG_LEVEL"), cfg.Log.Level)
	cfg.Log.Format = ParseString(env("LOG_FORMAT"), cfg.Log.Format)

	cfg.Provider.UserAgent = ParseString(env("PROVIDER_USER_AGENT"), cfg.Provider.UserAgent)
	cfg.Provider.Timeout = ParseDuration(env("PROVIDER_TIMEOUT"), cfg.Provider.Timeout)
	cfg.Provider.InsecureSkipVerify = ParseBool(env("PROVIDER_INSECURE_SKIP_VERIFY"), cfg.Provider.InsecureSkipVerify)
	cfg.Provider.RateLimit = ParseFloat(env("PROVIDER_RATE_LIMIT"), cfg.Provider.RateLimit)

	cfg.Streams.LiveType = ParseString(env("LIVE_TYPE"), cfg.Streams.LiveType)
	cfg.Streams.VODType = ParseString(env("VOD_TYPE"), cfg.Streams.VODType)
	cfg.Bouquets.Groups = ParseBool(env("GROUPS"), cfg.Bouquets.Groups)
	cfg.Catchup.Enabled = ParseBool(env("CATCHUP_ENABLED"), cfg.Catchup.Enabled)
	cfg.Catchup.Prefix = ParseString(env("CATCHUP_PREFIX"), cfg.Catchup.Prefix)

	cfg.EPGImport.Enabled = ParseBool(env("EPGIMPORT_ENABLED"), cfg.EPGImport.Enabled)
	cfg.EPGImport.Dir = ParseString(env("EPGIMPORT_DIR"), cfg.EPGImport.Dir)

	cfg.Picons.Dir = ParseString(env("PICONS_DIR"), cfg.Picons.Dir)
	cfg.Picons.Size = ParseString(env("PICONS_SIZE"), cfg.Picons.Size)
	cfg.Picons.BitDepth = ParseString(env("PICONS_BITDEPTH"), cfg.Picons.BitDepth)
	cfg.Picons.Overwrite = ParseBool(env("PICONS_OVERWRITE"), cfg.Picons.Overwrite)
	cfg.Picons.MaxSize = ParseInt64(env("PICONS_MAX_SIZE"), cfg.Picons.MaxSize)
	cfg.Picons.MaxWidth = ParseInt(env("PICONS_MAX_WIDTH"), cfg.Picons.MaxWidth)
	cfg.Picons.MaxThreads = ParseInt(env("PICONS_MAX_THREADS"), cfg.Picons.MaxThreads)
	cfg.Picons.RatePerSecond = ParseInt(env("PICONS_RATE_PER_SECOND"), cfg.Picons.RatePerSecond)

	cfg.Pipeline.StageDelay = ParseDuration(env("STAGE_DELAY"), cfg.Pipeline.StageDelay)

	cfg.OpenWebIF.BaseURL = ParseString(env("OWI_BASE"), cfg.OpenWebIF.BaseURL)
	cfg.OpenWebIF.Username = ParseString(env("OWI_USERNAME"), cfg.OpenWebIF.Username)
	cfg.OpenWebIF.Password = ParseString(env("OWI_PASSWORD"), cfg.OpenWebIF.Password)
	cfg.OpenWebIF.Timeout = ParseDuration(env("OWI_TIMEOUT"), cfg.OpenWebIF.Timeout)

	cfg.AutoUpdate.Enabled = ParseBool(env("AUTOUPDATE_ENABLED"), cfg.AutoUpdate.Enabled)
	cfg.AutoUpdate.Wakeup = ParseString(env("AUTOUPDATE_WAKEUP"), cfg.AutoUpdate.Wakeup)

	cfg.API.Enabled = ParseBool(env("API_ENABLED"), cfg.API.Enabled)
	cfg.API.Listen = ParseString(env("API_LISTEN"), cfg.API.Listen)
	cfg.API.RateLimit = ParseInt(env("API_RATE_LIMIT"), cfg.API.RateLimit)

	cfg.History.Path = ParseString(env("HISTORY_PATH"), cfg.History.Path)
	cfg.History.Retention = ParseDuration(env("HISTORY_RETENTION"), cfg.History.Retention)

	cfg.Telemetry.Enabled = ParseBool(env("TELEMETRY_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(env("TELEMETRY_EXPORTER"), cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(env("TELEMETRY_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(env("TELEMETRY_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)
}
