// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Pipeline attributes
	PlaylistKey   = "bouquet.playlist"
	KindKey       = "bouquet.kind"
	StageKey      = "bouquet.stage"
	CategoriesKey = "bouquet.categories"
	StreamsKey    = "bouquet.streams"

	// Picon attributes
	PiconItemsKey   = "picon.items"
	PiconWorkersKey = "picon.workers"
)

// HTTPAttributes creates common HTTP span attributes. The URL itself is not
// recorded because provider URLs carry credentials.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// AppliedAttributes records what a load stage wrote.
func AppliedAttributes(categories, streams int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(CategoriesKey, categories),
		attribute.Int(StreamsKey, streams),
	}
}

// PiconBatchAttributes describes a picon batch at submit time.
func PiconBatchAttributes(items, workers int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(PiconItemsKey, items),
		attribute.Int(PiconWorkersKey, workers),
	}
}

// StageAttributes describes one pipeline stage.
func StageAttributes(playlist, stage, kind string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(PlaylistKey, playlist),
		attribute.String(StageKey, stage),
	}
	if kind != "" {
		attrs = append(attrs, attribute.String(KindKey, kind))
	}
	return attrs
}
