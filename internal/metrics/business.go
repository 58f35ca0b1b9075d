// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics exposes Prometheus metrics for the build and picon pipelines.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Build metrics
	buildRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouquetmaker_build_runs_total",
		Help: "Completed build runs by outcome",
	}, []string{"outcome"}) // outcome=success|failure|cancelled

	buildDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "bouquetmaker_build_duration_seconds",
		Help:    "Wall time of a full build run",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	stageDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bouquetmaker_stage_duration_seconds",
		Help:    "Time spent in each pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	categoriesWritten = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bouquetmaker_categories_written",
		Help: "Category artifacts written per playlist and kind (last build)",
	}, []string{"playlist", "kind"})

	streamsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouquetmaker_streams_skipped_total",
		Help: "Streams dropped during compilation by reason",
	}, []string{"kind", "reason"}) // reason=hidden|no_id|no_category|invalid_id

	providerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouquetmaker_provider_requests_total",
		Help: "Provider catalog requests by action and outcome",
	}, []string{"action", "outcome"}) // outcome=success|no_data|error

	artifactWriteErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouquetmaker_artifact_write_errors_total",
		Help: "Artifact write failures by artifact type",
	}, []string{"artifact"}) // artifact=bouquet|parent|epg_sources|epg_channels|playlists

	// Picon metrics
	piconFetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouquetmaker_picon_fetch_total",
		Help: "Picon items by outcome",
	}, []string{"outcome"}) // outcome=written|exists|blocked|rejected|failed

	piconBatchInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bouquetmaker_picon_batch_inflight",
		Help: "Picon items submitted but not yet completed",
	})

	// Operational metrics
	configReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouquetmaker_config_reloads_total",
		Help: "Configuration reloads by outcome",
	}, []string{"outcome"})

	receiverReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bouquetmaker_receiver_reloads_total",
		Help: "Receiver service list reload requests by outcome",
	}, []string{"outcome"}) // outcome=success|failure|skipped

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bouquetmaker_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"target"})
)

func RecordBuild(outcome string, d time.Duration) {
	buildRunsTotal.WithLabelValues(outcome).Inc()
	buildDurationSeconds.Observe(d.Seconds())
}

func ObserveStage(stage string, d time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(d.Seconds())
}

func RecordCategoriesWritten(playlist, kind string, n int) {
	categoriesWritten.WithLabelValues(playlist, kind).Set(float64(n))
}

func AddStreamsSkipped(kind, reason string, n int) {
	if n > 0 {
		streamsSkippedTotal.WithLabelValues(kind, reason).Add(float64(n))
	}
}

func IncProviderRequest(action, outcome string) {
	providerRequestsTotal.WithLabelValues(action, outcome).Inc()
}

func IncArtifactWriteError(artifact string) { artifactWriteErrors.WithLabelValues(artifact).Inc() }

func IncPiconFetch(outcome string) { piconFetchTotal.WithLabelValues(outcome).Inc() }

func AddPiconInflight(delta int) { piconBatchInflight.Add(float64(delta)) }

func IncConfigReload(outcome string) { configReloadsTotal.WithLabelValues(outcome).Inc() }

func IncReceiverReload(outcome string) { receiverReloadsTotal.WithLabelValues(outcome).Inc() }

// SetCircuitBreakerState records the breaker state of target.
func SetCircuitBreakerState(target, state string) {
	v := 0.0
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	circuitBreakerState.WithLabelValues(target).Set(v)
}
