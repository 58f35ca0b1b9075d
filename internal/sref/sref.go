// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sref derives Enigma2 service references for IPTV streams.
//
// A stream reference has the shape
//
//	type:0:1:high:low:ref:0:0:0:0:locator:name
//
// where high/low split the provider stream id at 65535 and ref is the
// playlist-wide unique reference. All numeric fields are lowercase hex.
package sref

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidStreamID is returned when a stream id is not a non-negative integer.
var ErrInvalidStreamID = errors.New("invalid stream id")

// Split is the modulus used to split a stream id into the namespace pair.
const Split = 65535

// EPGLocator is the placeholder locator used in EPG channel mappings.
const EPGLocator = "http%3a//example.m3u8"

// Namespace is the encoded identity of a single stream inside a playlist.
type Namespace struct {
	High      int
	Low       int
	UniqueRef int
}

// Encode maps a provider stream id and the playlist unique ref to a Namespace.
func Encode(streamID string, uniqueRef int) (Namespace, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(streamID), 10, 64)
	if err != nil || id < 0 {
		return Namespace{}, fmt.Errorf("%w: %q", ErrInvalidStreamID, streamID)
	}
	return Namespace{
		High:      int(id / Split),
		Low:       int(id % Split),
		UniqueRef: uniqueRef,
	}, nil
}

// UniqueRef sums the code points of the playlist URL.
func UniqueRef(fullURL string) int {
	sum := 0
	for _, r := range fullURL {
		sum += int(r)
	}
	return sum
}

// Fields renders ":0:1:high:low:ref:0:0:0:0:" (everything after the type field).
func (n Namespace) Fields() string {
	return fmt.Sprintf(":0:1:%x:%x:%x:0:0:0:0:", n.High, n.Low, n.UniqueRef)
}

// Prefix renders the reference prefix for the given service type, ready for
// the locator to be appended.
func (n Namespace) Prefix(serviceType string) string {
	return serviceType + n.Fields()
}

// Reference renders the reference used to map EPG channels to services.
func (n Namespace) Reference() string {
	return "1" + n.Fields() + EPGLocator
}
