// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon runs the long-lived service: control API, scheduled
// builds and configuration reloads.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/bouquetmaker/internal/api"
	"github.com/ManuGH/bouquetmaker/internal/app/bootstrap"
	"github.com/ManuGH/bouquetmaker/internal/config"
	"github.com/ManuGH/bouquetmaker/internal/health"
	"github.com/ManuGH/bouquetmaker/internal/jobs"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/ManuGH/bouquetmaker/internal/telemetry"
	"github.com/rs/zerolog"
)

// App owns the long-lived runtime lifecycle (watchers, reload wiring, schedulers)
// and delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	holder       *config.ConfigHolder
	container    atomic.Pointer[bootstrap.Container]
	jobs         *jobs.Manager
	manager      Manager
	scheduler    *Scheduler
	reloadSignal os.Signal
}

// NewApp wires the daemon for the holder's current configuration. Jobs
// started by the app are bound to ctx.
func NewApp(ctx context.Context, holder *config.ConfigHolder) (*App, error) {
	cfg := holder.Get()
	c, err := bootstrap.Wire(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		logger:       xglog.WithComponent("daemon"),
		holder:       holder,
		jobs:         jobs.NewManager(ctx, c.Deps(nil), c.Store),
		reloadSignal: syscall.SIGHUP,
	}
	a.container.Store(c)

	var handler http.Handler
	if cfg.API.Enabled {
		handler = a.apiHandler(cfg)
	}
	a.manager = NewManager(DefaultServerConfig(cfg.API.Listen), handler)
	a.manager.RegisterShutdownHook("history", func(context.Context) error {
		return a.current().Close()
	})
	a.manager.RegisterShutdownHook("jobs", a.stopJobs)

	a.scheduler = NewScheduler(func() Schedule {
		cfg := a.holder.Get()
		return Schedule{Enabled: cfg.AutoUpdate.Enabled, Wakeup: cfg.AutoUpdate.Wakeup}
	}, a.scheduledBuild)
	return a, nil
}

func (a *App) apiHandler(cfg config.AppConfig) http.Handler {
	apiCfg := api.Config{
		Jobs: a.jobs,
		BuildOptions: func(names []string) jobs.Options {
			return a.current().BuildOptions(names, jobs.TriggerAPI)
		},
		Picons: func() (picons.Config, string) {
			cfg := a.holder.Get()
			return bootstrap.PiconConfig(cfg), cfg.DataDir
		},
		Health:    a.readiness(),
		RateLimit: cfg.API.RateLimit,
		Version:   cfg.Version,
	}
	if h := a.current().History; h != nil {
		apiCfg.Runs = h
	}
	return api.New(apiCfg).Handler()
}

// readiness checks read the current container so reloads are reflected.
func (a *App) readiness() *health.Manager {
	hm := health.NewManager(2 * time.Second)
	hm.RegisterChecker(health.NewChecker("enigma2_dir", func(ctx context.Context) error {
		return health.WritableDir(a.current().Config.Enigma2Dir)(ctx)
	}))
	hm.RegisterChecker(health.NewChecker("playlists", func(context.Context) error {
		_, err := a.current().Store.Load()
		return err
	}))
	hm.RegisterChecker(health.Informational("history", func(ctx context.Context) error {
		h := a.current().History
		if h == nil {
			return errors.New("history database unavailable")
		}
		problems, err := h.Check(ctx)
		if err != nil {
			return err
		}
		if len(problems) > 0 {
			return fmt.Errorf("integrity: %s", strings.Join(problems, "; "))
		}
		return nil
	}))
	hm.RegisterChecker(health.Informational("epgimport", func(ctx context.Context) error {
		c := a.current()
		if c.EPG == nil {
			return nil
		}
		return health.WritableDir(c.Config.EPGImport.Dir)(ctx)
	}))
	return hm
}

func (a *App) current() *bootstrap.Container { return a.container.Load() }

// Jobs exposes the build manager.
func (a *App) Jobs() *jobs.Manager { return a.jobs }

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	cfg := a.holder.Get()
	if cfg.Telemetry.Enabled {
		tp, err := telemetry.NewProvider(ctx, telemetry.Config{
			Enabled:        true,
			ServiceName:    "bouquetmaker",
			ServiceVersion: cfg.Version,
			ExporterType:   cfg.Telemetry.Exporter,
			Endpoint:       cfg.Telemetry.Endpoint,
			SamplingRate:   cfg.Telemetry.SamplingRate,
		})
		if err != nil {
			a.logger.Warn().Err(err).Str(xglog.FieldEvent, "telemetry.init_failed").Msg("tracing disabled")
		} else {
			a.manager.RegisterShutdownHook("telemetry", tp.Shutdown)
		}
	}

	a.pruneHistory(ctx)

	g, ctx := errgroup.WithContext(ctx)

	// Config watcher is best-effort: startup should not fail if watcher cannot be started.
	if err := a.holder.StartWatcher(ctx); err != nil {
		a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
	}

	applyCh := make(chan config.AppConfig, 1)
	a.holder.RegisterListener(applyCh)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case next := <-applyCh:
				a.apply(next)
			}
		}
	})

	if a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(xglog.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := a.holder.Reload(ctx); err != nil {
						a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error { return a.scheduler.Run(ctx) })

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.Background())
		}
		return err
	})

	return g.Wait()
}

// apply swaps the collaborators for later jobs. Listener address and
// history path need a restart.
func (a *App) apply(cfg config.AppConfig) {
	xglog.Reconfigure(xglog.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "bouquetmaker",
		Version: cfg.Version,
	})
	next := a.current().Rebind(cfg)
	a.container.Store(next)
	a.jobs.SetDeps(next.Deps(nil))
	a.scheduler.Reset()
	a.logger.Info().Str(xglog.FieldEvent, "config.applied").Msg("configuration applied")
}

func (a *App) scheduledBuild(ctx context.Context) {
	a.pruneHistory(ctx)
	id, err := a.jobs.Start(a.current().BuildOptions(nil, jobs.TriggerSchedule))
	if err != nil {
		a.logger.Warn().Err(err).Str(xglog.FieldEvent, "schedule.skipped").Msg("scheduled build not started")
		return
	}
	a.logger.Info().Str(xglog.FieldEvent, "schedule.started").Str(xglog.FieldRunID, id).Msg("scheduled build started")
}

func (a *App) pruneHistory(ctx context.Context) {
	c := a.current()
	if c.History == nil || c.Config.History.Retention <= 0 {
		return
	}
	n, err := c.History.Prune(ctx, time.Now().Add(-c.Config.History.Retention))
	if err != nil {
		a.logger.Warn().Err(err).Msg("history prune failed")
		return
	}
	if n > 0 {
		a.logger.Info().Int64("removed", n).Msg("pruned run history")
	}
}

// stopJobs cancels a running build and waits for it to reach a stage boundary.
func (a *App) stopJobs(ctx context.Context) error {
	a.jobs.Cancel()
	done := make(chan struct{})
	go func() {
		a.jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("build did not stop before shutdown timeout")
	}
}
