// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the daemon's control endpoints.
package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/bouquetmaker/internal/api/middleware"
	"github.com/ManuGH/bouquetmaker/internal/health"
	"github.com/ManuGH/bouquetmaker/internal/history"
	"github.com/ManuGH/bouquetmaker/internal/jobs"
	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// JobController starts and observes builds and picon batches.
type JobController interface {
	Start(opts jobs.Options) (string, error)
	Cancel() bool
	Running() bool
	Progress() jobs.Progress
	StartPicons(ctx context.Context, name string, cfg picons.Config, localDir string) (*picons.Batch, error)
	Picons() *picons.Batch
}

// RunLister lists recorded builds, newest first.
type RunLister interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
}

// Config wires the server. Runs may be nil when history is unavailable.
type Config struct {
	Jobs JobController
	Runs RunLister
	// Health serves /readyz when set.
	Health *health.Manager
	// BuildOptions returns the current global build settings.
	BuildOptions func(names []string) jobs.Options
	// Picons returns the current coordinator settings and local playlist dir.
	Picons func() (picons.Config, string)
	// RateLimit caps mutation requests per client and minute.
	RateLimit int
	Version   string
}

// Server is the control API.
type Server struct {
	cfg Config
}

// New creates the server.
func New(cfg Config) *Server {
	return &Server{cfg: cfg}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		TracingService: "bouquetmaker-api",
		EnableLogging:  true,
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	if s.cfg.Health != nil {
		r.Get("/readyz", s.cfg.Health.ServeReady)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/progress", s.handleProgress)
		r.Get("/runs", s.handleRuns)

		r.Group(func(r chi.Router) {
			r.Use(middleware.MutationRateLimit(s.cfg.RateLimit))
			r.Post("/build", s.handleBuild)
			r.Post("/build/cancel", s.handleCancel)
			r.Post("/picons", s.handlePicons)
		})
	})
	return r
}
