// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package openwebif asks the receiver web interface to reload its service
// lists after bouquets were rewritten.
package openwebif

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/metrics"
)

const reloadPath = "/web/servicelistreload?mode=2"

// Options configures the client.
type Options struct {
	Timeout  time.Duration
	Username string
	Password string
	// BreakerThreshold is the number of consecutive failures that open the
	// circuit. Zero selects 3.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Client talks to one receiver.
type Client struct {
	base     string
	http     *http.Client
	username string
	password string
	breaker  *Breaker
}

// New returns a client for base (e.g. http://127.0.0.1). An empty base
// yields a client whose calls are no-ops.
func New(base string, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 3
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 5 * time.Minute
	}
	return &Client{
		base:     strings.TrimRight(base, "/"),
		http:     &http.Client{Timeout: opts.Timeout},
		username: opts.Username,
		password: opts.Password,
		breaker:  NewBreaker(opts.BreakerThreshold, opts.BreakerCooldown),
	}
}

type simpleResult struct {
	State string `xml:"e2state"`
	Text  string `xml:"e2statetext"`
}

// ReloadServices triggers a reload of bouquets and service lists.
func (c *Client) ReloadServices(ctx context.Context) error {
	logger := xglog.WithComponentFromContext(ctx, "openwebif")
	if c == nil || c.base == "" {
		metrics.IncReceiverReload("skipped")
		return nil
	}

	err := c.breaker.Do(func() error { return c.reload(ctx) })
	switch {
	case err == nil:
		metrics.IncReceiverReload("success")
		logger.Info().Str(xglog.FieldEvent, "openwebif.reloaded").Msg("receiver service lists reloaded")
	case errors.Is(err, ErrCircuitOpen):
		metrics.IncReceiverReload("skipped")
	default:
		metrics.IncReceiverReload("failure")
	}
	return err
}

func (c *Client) reload(ctx context.Context) error {
	const op = "servicelistreload"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+reloadPath, nil)
	if err != nil {
		return &ReloadError{Class: ErrUnavailable, Op: op, Cause: err}
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return &ReloadError{Class: ErrUnavailable, Op: op, Cause: err}
	}
	defer func() { _ = res.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))

	switch {
	case res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden:
		return &ReloadError{Class: ErrUnauthorized, Op: op, Status: res.StatusCode}
	case res.StatusCode != http.StatusOK:
		return &ReloadError{Class: ErrUpstream, Op: op, Status: res.StatusCode, Detail: truncate(string(body))}
	}

	var r simpleResult
	if err := xml.Unmarshal(body, &r); err != nil {
		// Older images answer with plain text; a 200 is enough.
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(r.State), "false") {
		return &ReloadError{Class: ErrRejected, Op: op, Detail: strings.TrimSpace(r.Text)}
	}
	return nil
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
