// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package xtream fetches provider catalogs: Xtream player_api JSON, the
// "simple" series listing, external M3U playlists and local M3U files.
package xtream

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/metrics"
	"github.com/ManuGH/bouquetmaker/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	// DefaultUserAgent is sent with every provider request.
	DefaultUserAgent = "Enigma2 - BouquetMakerXtream Plugin"
	defaultAccept    = "application/json, text/plain, */*"
	defaultTimeout   = 20 * time.Second
	maxBodyBytes     = 256 << 20
)

// Options configures the provider client.
type Options struct {
	UserAgent          string
	Timeout            time.Duration
	InsecureSkipVerify bool
	// RateLimit paces requests; zero means unlimited.
	RateLimit      rate.Limit
	RateLimitBurst int
}

// Client performs single-attempt provider requests. Failed requests are not
// retried; the pipeline degrades to "no data" instead.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewClient creates a provider client.
func NewClient(opts Options) *Client {
	nopts := normalizeOptions(opts)
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: nopts.Timeout,
		// #nosec G402 -- IPTV panels routinely serve self-signed certificates
		TLSClientConfig: &tls.Config{InsecureSkipVerify: nopts.InsecureSkipVerify},
	}
	limit := rate.Inf
	if nopts.RateLimit > 0 {
		limit = nopts.RateLimit
	}
	return &Client{
		http: &http.Client{
			Timeout:   nopts.Timeout,
			Transport: transport,
		},
		limiter:   rate.NewLimiter(limit, nopts.RateLimitBurst),
		userAgent: nopts.UserAgent,
	}
}

func normalizeOptions(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = 1
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return opts
}

// GetJSON fetches rawURL and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, action, rawURL string, v any) error {
	body, err := c.get(ctx, action, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		metrics.IncProviderRequest(action, "error")
		return &FetchError{Sentinel: ErrDecode, Action: action, Err: err}
	}
	metrics.IncProviderRequest(action, "success")
	return nil
}

// GetText fetches rawURL and returns the body as text.
func (c *Client) GetText(ctx context.Context, action, rawURL string) (string, error) {
	body, err := c.get(ctx, action, rawURL)
	if err != nil {
		return "", err
	}
	metrics.IncProviderRequest(action, "success")
	return string(body), nil
}

func (c *Client) get(ctx context.Context, action, rawURL string) ([]byte, error) {
	ctx, span := telemetry.Tracer("bouquetmaker.xtream").Start(ctx, "bouquetmaker.xtream.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("xtream.action", action)),
	)
	defer span.End()

	fail := func(fe *FetchError) ([]byte, error) {
		outcome := "error"
		if fe.Sentinel == ErrNoData {
			outcome = "no_data"
		}
		metrics.IncProviderRequest(action, outcome)
		span.RecordError(fe)
		span.SetStatus(codes.Error, fe.Sentinel.Error())
		return nil, fe
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fail(&FetchError{Sentinel: ErrTransport, Action: action, Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fail(&FetchError{Sentinel: ErrTransport, Action: action, Err: err})
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", defaultAccept)

	resp, err := c.http.Do(req)
	if err != nil {
		return fail(&FetchError{Sentinel: ErrTransport, Action: action, Err: err})
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(telemetry.HTTPAttributes(http.MethodGet, action, resp.StatusCode)...)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return fail(&FetchError{Sentinel: ErrBadStatus, Action: action, Status: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fail(&FetchError{Sentinel: ErrTransport, Action: action, Status: resp.StatusCode, Err: err})
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fail(&FetchError{Sentinel: ErrNoData, Action: action, Status: resp.StatusCode})
	}
	span.SetStatus(codes.Ok, "")
	return body, nil
}
