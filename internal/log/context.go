// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"context"

	"github.com/rs/zerolog"
)

type correlationKey struct{}

// correlation is copied on every update so parent contexts never observe
// values added further down the call chain.
type correlation struct {
	requestID string
	runID     string
	playlist  string
}

func correlationFrom(ctx context.Context) correlation {
	if ctx == nil {
		return correlation{}
	}
	c, _ := ctx.Value(correlationKey{}).(correlation)
	return c
}

func withCorrelation(ctx context.Context, update func(*correlation)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := correlationFrom(ctx)
	update(&c)
	return context.WithValue(ctx, correlationKey{}, c)
}

// ContextWithRequestID tags ctx with the API request that caused the work.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.requestID = id })
}

// ContextWithRunID tags ctx with a build run.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.runID = id })
}

// ContextWithPlaylist tags ctx with the playlist currently being processed.
func ContextWithPlaylist(ctx context.Context, name string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.playlist = name })
}

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string { return correlationFrom(ctx).requestID }

// RunIDFromContext returns the run ID or "".
func RunIDFromContext(ctx context.Context) string { return correlationFrom(ctx).runID }

// WithContext adds the correlation fields carried by ctx to logger.
func WithContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	c := correlationFrom(ctx)
	if c == (correlation{}) {
		return logger
	}
	b := logger.With()
	if c.requestID != "" {
		b = b.Str(FieldRequestID, c.requestID)
	}
	if c.runID != "" {
		b = b.Str(FieldRunID, c.runID)
	}
	if c.playlist != "" {
		b = b.Str(FieldPlaylist, c.playlist)
	}
	return b.Logger()
}

// WithComponentFromContext is WithComponent plus the correlation fields of ctx.
func WithComponentFromContext(ctx context.Context, component string) zerolog.Logger {
	return WithContext(ctx, WithComponent(component))
}
