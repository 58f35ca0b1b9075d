// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package openwebif

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReloadServices(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/web/servicelistreload", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("mode"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "root", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><e2simplexmlresult><e2state>True</e2state><e2statetext>reloaded</e2statetext></e2simplexmlresult>`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", Options{Username: "root", Password: "secret"})
	require.NoError(t, c.ReloadServices(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestReloadServicesEmptyBase(t *testing.T) {
	assert.NoError(t, New("", Options{}).ReloadServices(context.Background()))
	var c *Client
	assert.NoError(t, c.ReloadServices(context.Background()))
}

func TestReloadServicesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, "", ErrUnauthorized},
		{"server error", http.StatusInternalServerError, "boom", ErrUpstream},
		{"refused", http.StatusOK, `<e2simplexmlresult><e2state>False</e2state><e2statetext>no</e2statetext></e2simplexmlresult>`, ErrRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := New(srv.URL, Options{}).ReloadServices(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var owi *ReloadError
			require.ErrorAs(t, err, &owi)
			assert.Equal(t, "servicelistreload", owi.Op)
		})
	}
}

func TestReloadServicesRefusalKeepsCircuitClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, Options{BreakerThreshold: 1})
	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, c.ReloadServices(context.Background()), ErrUnauthorized)
	}
	assert.Equal(t, StateClosed, c.breaker.State())
}

func TestReloadErrorMessage(t *testing.T) {
	err := &ReloadError{Class: ErrUpstream, Op: "servicelistreload", Status: 500, Detail: "boom"}
	assert.Equal(t, "openwebif servicelistreload: receiver returned unexpected status (HTTP 500): boom", err.Error())

	cause := errors.New("dial tcp: refused")
	err = &ReloadError{Class: ErrUnavailable, Op: "servicelistreload", Cause: cause}
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestReloadServicesPlainTextOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()
	assert.NoError(t, New(srv.URL, Options{}).ReloadServices(context.Background()))
}

func TestReloadServicesUnreachableOpensCircuit(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, Options{Timeout: time.Second, BreakerThreshold: 2})
	ctx := context.Background()
	assert.ErrorIs(t, c.ReloadServices(ctx), ErrUnavailable)
	assert.ErrorIs(t, c.ReloadServices(ctx), ErrUnavailable)
	assert.ErrorIs(t, c.ReloadServices(ctx), ErrCircuitOpen)
	assert.Equal(t, StateOpen, c.breaker.State())
}
