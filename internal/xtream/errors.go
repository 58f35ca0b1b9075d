// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package xtream

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary. All of them mean
	// "no data" to the build pipeline.
	ErrTransport   = errors.New("provider: transport failure")
	ErrBadStatus   = errors.New("provider: unexpected HTTP status")
	ErrNoData      = errors.New("provider: empty response")
	ErrDecode      = errors.New("provider: malformed response")
	ErrNoSimpleAPI = errors.New("provider: simple listing not supported")
)

// FetchError wraps a sentinel with the failing action.
type FetchError struct {
	Sentinel error
	Action   string
	Status   int
	Err      error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("xtream: %s: %v", e.Action, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Sentinel
}
