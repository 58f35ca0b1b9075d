// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bootstrap is the composition root shared by the CLI commands and
// the daemon.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/ManuGH/bouquetmaker/internal/bouquet"
	"github.com/ManuGH/bouquetmaker/internal/config"
	"github.com/ManuGH/bouquetmaker/internal/epgimport"
	"github.com/ManuGH/bouquetmaker/internal/history"
	"github.com/ManuGH/bouquetmaker/internal/jobs"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/openwebif"
	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/xtream"
	"golang.org/x/time/rate"
)

// Container holds the collaborators derived from one configuration.
type Container struct {
	Config    config.AppConfig
	Store     *playlists.Store
	Fetcher   *xtream.Client
	Writer    *bouquet.Writer
	EPG       *epgimport.Manager
	Refresher *openwebif.Client
	History   *history.Store
}

// Wire builds the container. History is optional: when its database
// cannot be opened the container works without it.
func Wire(ctx context.Context, cfg config.AppConfig) (*Container, error) {
	logger := xglog.WithComponent("bootstrap")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	c := newContainer(cfg)

	hist, err := history.Open(ctx, cfg.History.Path)
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldPath, cfg.History.Path).Msg("run history unavailable")
	} else {
		c.History = hist
	}

	logger.Debug().
		Str("enigma2_dir", cfg.Enigma2Dir).
		Str("playlists", cfg.PlaylistsFile).
		Bool("epgimport", c.EPG.Available()).
		Bool("history", c.History != nil).
		Msg("services wired")
	return c, nil
}

// Rebind returns a container for cfg that shares the receiver's history
// database. It is used on configuration reloads; the history path itself
// only changes with a restart.
func (c *Container) Rebind(cfg config.AppConfig) *Container {
	next := newContainer(cfg)
	next.History = c.History
	return next
}

func newContainer(cfg config.AppConfig) *Container {
	c := &Container{
		Config:  cfg,
		Store:   playlists.NewStore(cfg.PlaylistsFile),
		Fetcher: xtream.NewClient(ProviderOptions(cfg)),
		Writer:  bouquet.NewWriter(cfg.Enigma2Dir),
		Refresher: openwebif.New(cfg.OpenWebIF.BaseURL, openwebif.Options{
			Timeout:  cfg.OpenWebIF.Timeout,
			Username: cfg.OpenWebIF.Username,
			Password: cfg.OpenWebIF.Password,
		}),
	}
	if cfg.EPGImport.Enabled {
		c.EPG = epgimport.NewManager(cfg.EPGImport.Dir)
	}
	return c
}

// Close releases the history database.
func (c *Container) Close() error {
	if c.History != nil {
		return c.History.Close()
	}
	return nil
}

// Deps returns the build collaborators. Optional ones that are not
// configured stay nil interfaces.
func (c *Container) Deps(obs jobs.Observer) jobs.Deps {
	d := jobs.Deps{
		Store:     c.Store,
		Fetcher:   c.Fetcher,
		Writer:    c.Writer,
		Refresher: c.Refresher,
		Observer:  obs,
	}
	if c.EPG != nil {
		d.EPG = c.EPG
	}
	if c.History != nil {
		d.History = c.History
	}
	return d
}

// BuildOptions returns the global build settings for names.
func (c *Container) BuildOptions(names []string, trigger string) jobs.Options {
	return jobs.Options{
		Names:      names,
		Groups:     c.Config.Bouquets.Groups,
		Catchup:    bouquet.Catchup{Enabled: c.Config.Catchup.Enabled, Prefix: c.Config.Catchup.Prefix},
		StageDelay: c.Config.Pipeline.StageDelay,
		LocalDir:   c.Config.DataDir,
		Trigger:    trigger,
	}
}

// ProviderOptions derives the catalog client settings.
func ProviderOptions(cfg config.AppConfig) xtream.Options {
	opts := xtream.Options{
		UserAgent:          cfg.Provider.UserAgent,
		Timeout:            cfg.Provider.Timeout,
		InsecureSkipVerify: cfg.Provider.InsecureSkipVerify,
	}
	if cfg.Provider.RateLimit > 0 {
		opts.RateLimit = rate.Limit(cfg.Provider.RateLimit)
		opts.RateLimitBurst = max(1, int(cfg.Provider.RateLimit))
	}
	return opts
}

// PiconConfig derives the picon coordinator settings.
func PiconConfig(cfg config.AppConfig) picons.Config {
	return picons.Config{
		Dir:           cfg.Picons.Dir,
		Size:          cfg.Picons.Size,
		BitDepth:      cfg.Picons.BitDepth,
		Overwrite:     cfg.Picons.Overwrite,
		MaxSize:       cfg.Picons.MaxSize,
		MaxWidth:      cfg.Picons.MaxWidth,
		MaxThreads:    cfg.Picons.MaxThreads,
		RatePerSecond: cfg.Picons.RatePerSecond,
	}
}
