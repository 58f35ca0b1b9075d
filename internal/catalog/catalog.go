// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package catalog defines the provider catalog model shared by the fetcher,
// the M3U parser, the playlist store and the bouquet compiler.
package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Kind is a catalog section.
type Kind string

const (
	Live   Kind = "live"
	VOD    Kind = "vod"
	Series Kind = "series"
)

// Kinds lists catalog sections in processing order.
var Kinds = []Kind{Live, VOD, Series}

// FlexString decodes JSON strings, numbers, booleans and null into a string.
// Xtream panels are inconsistent about id types, even within one response.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*f = FlexString(data)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	if fl, err := n.Float64(); err == nil && fl == float64(int64(fl)) {
		*f = FlexString(strconv.FormatInt(int64(fl), 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

// String returns the trimmed value.
func (f FlexString) String() string { return strings.TrimSpace(string(f)) }

// Category is one provider category.
type Category struct {
	CategoryID   FlexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
	ParentID     FlexString `json:"parent_id,omitempty"`
}

// ID returns the category id.
func (c Category) ID() string { return c.CategoryID.String() }

// Stream is one provider entry: a live channel, a movie or a series.
type Stream struct {
	StreamID           FlexString `json:"stream_id,omitempty"`
	SeriesID           FlexString `json:"series_id,omitempty"`
	Name               string     `json:"name"`
	CategoryID         FlexString `json:"category_id"`
	StreamIcon         string     `json:"stream_icon,omitempty"`
	Cover              string     `json:"cover,omitempty"`
	EPGChannelID       FlexString `json:"epg_channel_id,omitempty"`
	CustomSID          FlexString `json:"custom_sid,omitempty"`
	TVArchive          FlexString `json:"tv_archive,omitempty"`
	Added              FlexString `json:"added,omitempty"`
	LastModified       FlexString `json:"last_modified,omitempty"`
	ContainerExtension string     `json:"container_extension,omitempty"`
	Source             string     `json:"source,omitempty"`
}

// ID returns the identifier used for hiding and encoding: series_id for
// series entries, stream_id otherwise.
func (s Stream) ID(kind Kind) string {
	if kind == Series {
		if id := s.SeriesID.String(); id != "" {
			return id
		}
	}
	return s.StreamID.String()
}

// Icon returns the logo URL.
func (s Stream) Icon() string {
	if s.StreamIcon != "" {
		return s.StreamIcon
	}
	return s.Cover
}

// AddedAt returns the timestamp used by the "added" sort order.
func (s Stream) AddedAt() string {
	if a := s.Added.String(); a != "" {
		return a
	}
	return s.LastModified.String()
}

// Catchup reports whether the provider offers an archive for the stream.
func (s Stream) Catchup() bool {
	v := s.TVArchive.String()
	return v == "1" || v == "true"
}

// Snapshot is an immutable view of one section of a provider catalog.
type Snapshot struct {
	Categories []Category
	Streams    []Stream
}

// Empty reports whether the snapshot has no categories.
func (s Snapshot) Empty() bool { return len(s.Categories) == 0 }

// Catalog holds one snapshot per kind.
type Catalog struct {
	Live   Snapshot
	VOD    Snapshot
	Series Snapshot
}

// Get returns the snapshot for kind.
func (c Catalog) Get(kind Kind) Snapshot {
	switch kind {
	case Live:
		return c.Live
	case VOD:
		return c.VOD
	case Series:
		return c.Series
	}
	return Snapshot{}
}

// With returns a copy of c with the snapshot for kind replaced.
func (c Catalog) With(kind Kind, s Snapshot) Catalog {
	switch kind {
	case Live:
		c.Live = s
	case VOD:
		c.VOD = s
	case Series:
		c.Series = s
	}
	return c
}
