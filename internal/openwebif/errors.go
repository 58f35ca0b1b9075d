// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package openwebif

import (
	"errors"
	"strconv"
	"strings"
)

// Failure classes. Match them with errors.Is.
var (
	ErrUnavailable  = errors.New("receiver unreachable")
	ErrUnauthorized = errors.New("receiver rejected credentials")
	ErrUpstream     = errors.New("receiver returned unexpected status")
	ErrRejected     = errors.New("receiver refused the reload")
	ErrCircuitOpen  = errors.New("receiver calls suspended after repeated failures")
)

// ReloadError describes one failed call. Class is one of the Err values
// above; Cause is the transport error, if any.
type ReloadError struct {
	Class  error
	Op     string
	Status int
	Detail string
	Cause  error
}

func (e *ReloadError) Error() string {
	var b strings.Builder
	b.WriteString("openwebif ")
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Class.Error())
	if e.Status > 0 {
		b.WriteString(" (HTTP " + strconv.Itoa(e.Status) + ")")
	}
	for _, s := range []string{e.Detail, causeText(e.Cause)} {
		if s != "" {
			b.WriteString(": " + s)
		}
	}
	return b.String()
}

// Unwrap exposes both the class and the cause to errors.Is and errors.As.
func (e *ReloadError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Class}
	}
	return []error{e.Class, e.Cause}
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// countsAsOutage reports whether err means the receiver could not be
// reached properly. A receiver that answers, even with a refusal, is up.
func countsAsOutage(err error) bool {
	return err != nil && !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrRejected)
}
