// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playlists models the provider playlist document and its store.
package playlists

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/ManuGH/bouquetmaker/internal/catalog"
)

// Playlist source types.
const (
	TypeXtream   = "xtream"
	TypeExternal = "external"
	TypeLocal    = "local"
)

// Category and stream orders.
const (
	OrderOriginal     = "original"
	OrderAlphabetical = "alphabetical"
	OrderAdded        = "added"
)

// DefaultServiceType is the Enigma2 service type for IPTV streams.
const DefaultServiceType = "4097"

// Info identifies a provider.
type Info struct {
	Index        int                `json:"index"`
	Name         string             `json:"name"`
	Protocol     string             `json:"protocol"`
	Domain       string             `json:"domain"`
	Port         catalog.FlexString `json:"port"`
	Username     string             `json:"username"`
	Password     string             `json:"password"`
	Output       string             `json:"output"`
	FullURL      string             `json:"full_url"`
	PlayerAPI    string             `json:"player_api"`
	XMLTVAPI     string             `json:"xmltv_api"`
	PlaylistType string             `json:"playlist_type"`
	Bouquet      bool               `json:"bouquet"`
}

// Settings holds per playlist build options.
type Settings struct {
	ShowLive          bool               `json:"show_live"`
	ShowVOD           bool               `json:"show_vod"`
	ShowSeries        bool               `json:"show_series"`
	LiveType          string             `json:"live_type"`
	VODType           string             `json:"vod_type"`
	LiveCategoryOrder string             `json:"live_category_order"`
	VODCategoryOrder  string             `json:"vod_category_order"`
	LiveStreamOrder   string             `json:"live_stream_order"`
	VODStreamOrder    string             `json:"vod_stream_order"`
	PrefixName        bool               `json:"prefix_name"`
	Groups            *bool              `json:"groups,omitempty"`
	Catchup           *bool              `json:"catchup,omitempty"`
	NextDays          catalog.FlexString `json:"next_days,omitempty"`
}

// Data caches fetched catalogs and stores the hidden id sets.
type Data struct {
	LiveCategories   []catalog.Category `json:"live_categories"`
	VODCategories    []catalog.Category `json:"vod_categories"`
	SeriesCategories []catalog.Category `json:"series_categories"`
	LiveStreams      []catalog.Stream   `json:"live_streams"`
	VODStreams       []catalog.Stream   `json:"vod_streams"`
	SeriesStreams    []catalog.Stream   `json:"series_streams"`

	LiveCategoriesHidden   []catalog.FlexString `json:"live_categories_hidden"`
	VODCategoriesHidden    []catalog.FlexString `json:"vod_categories_hidden"`
	SeriesCategoriesHidden []catalog.FlexString `json:"series_categories_hidden"`
	LiveStreamsHidden      []catalog.FlexString `json:"live_streams_hidden"`
	VODStreamsHidden       []catalog.FlexString `json:"vod_streams_hidden"`
	SeriesStreamsHidden    []catalog.FlexString `json:"series_streams_hidden"`
}

// Playlist is one provider entry of the playlist document. Keys this
// package does not model, at the top level and inside playlist_info,
// settings and data, are carried through unchanged, and so are the
// original encodings of values that were not modified.
type Playlist struct {
	Info     Info
	Settings Settings
	Data     Data

	raw     map[string]json.RawMessage
	rawInfo map[string]json.RawMessage
	rawSet  map[string]json.RawMessage
	rawData map[string]json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Playlist) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var err error
	if p.rawInfo, err = decodeSection(raw["playlist_info"], &p.Info); err != nil {
		return fmt.Errorf("playlist_info: %w", err)
	}
	if p.rawSet, err = decodeSection(raw["settings"], &p.Settings); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if p.rawData, err = decodeSection(raw["data"], &p.Data); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	p.raw = raw
	return nil
}

// MarshalJSON implements json.Marshaler.
func (p Playlist) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.raw)+3)
	for k, v := range p.raw {
		out[k] = v
	}
	sections := []struct {
		key string
		raw map[string]json.RawMessage
		cur any
	}{
		{"playlist_info", p.rawInfo, p.Info},
		{"settings", p.rawSet, p.Settings},
		{"data", p.rawData, p.Data},
	}
	for _, sec := range sections {
		merged, err := encodeSection(sec.raw, sec.cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sec.key, err)
		}
		out[sec.key] = merged
	}
	return json.Marshal(out)
}

func decodeSection[T any](b json.RawMessage, dst *T) (map[string]json.RawMessage, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// encodeSection writes cur over the keys it was decoded from. A key keeps
// its original bytes when the value decoded from them encodes the same as
// the current value, so "port": 80 does not turn into "port": "80".
func encodeSection(raw map[string]json.RawMessage, cur any) (json.RawMessage, error) {
	current, err := toFields(cur)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return json.Marshal(current)
	}

	// Decode the stored bytes into a fresh value of the same type so that
	// both sides go through the same encoder.
	prev := reflect.New(reflect.TypeOf(cur))
	whole, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(whole, prev.Interface()); err != nil {
		return nil, err
	}
	previous, err := toFields(prev.Elem().Interface())
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(raw)+len(current))
	for k, v := range raw {
		if _, known := previous[k]; known {
			if _, still := current[k]; !still {
				continue // cleared optional field
			}
		}
		out[k] = v
	}
	for k, v := range current {
		orig, ok := raw[k]
		switch {
		case ok && bytes.Equal(previous[k], v):
			out[k] = orig
		case !ok && string(v) == "null":
			// nil slice for a key the document never had
		default:
			out[k] = v
		}
	}
	return json.Marshal(out)
}

func toFields(v any) (map[string]json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Type returns the normalized source type.
func (p Playlist) Type() string {
	return strings.ToLower(strings.TrimSpace(p.Info.PlaylistType))
}

// Host returns protocol + domain (+ ":" + port).
func (p Playlist) Host() string {
	host := p.Info.Protocol + p.Info.Domain
	if port := p.Info.Port.String(); port != "" {
		host += ":" + port
	}
	return host
}

// Enabled reports whether kind is switched on.
func (p Playlist) Enabled(kind catalog.Kind) bool {
	switch kind {
	case catalog.Live:
		return p.Settings.ShowLive
	case catalog.VOD:
		return p.Settings.ShowVOD
	case catalog.Series:
		return p.Settings.ShowSeries
	}
	return false
}

// EnabledKinds lists the enabled kinds in processing order.
func (p Playlist) EnabledKinds() []catalog.Kind {
	var out []catalog.Kind
	for _, k := range catalog.Kinds {
		if p.Enabled(k) {
			out = append(out, k)
		}
	}
	return out
}

// ServiceType returns the configured service type for kind.
func (p Playlist) ServiceType(kind catalog.Kind) string {
	t := p.Settings.VODType
	if kind == catalog.Live {
		t = p.Settings.LiveType
	}
	if strings.TrimSpace(t) == "" {
		return DefaultServiceType
	}
	return t
}

// CategoryOrder returns the category sort policy for kind. Series share
// the VOD setting.
func (p Playlist) CategoryOrder(kind catalog.Kind) string {
	if kind == catalog.Live {
		return p.Settings.LiveCategoryOrder
	}
	return p.Settings.VODCategoryOrder
}

// StreamOrder returns the stream sort policy for kind.
func (p Playlist) StreamOrder(kind catalog.Kind) string {
	if kind == catalog.Live {
		return p.Settings.LiveStreamOrder
	}
	return p.Settings.VODStreamOrder
}

// XMLTVURL returns the EPG URL including the look-ahead days parameter.
func (p Playlist) XMLTVURL() string {
	u := p.Info.XMLTVAPI
	if d := p.Settings.NextDays.String(); d != "" && d != "0" {
		u += "&next_days=" + d
	}
	return u
}

// Hidden returns the user hidden category and stream id sets for kind.
func (p Playlist) Hidden(kind catalog.Kind) HiddenSet {
	var cats, streams []catalog.FlexString
	switch kind {
	case catalog.Live:
		cats, streams = p.Data.LiveCategoriesHidden, p.Data.LiveStreamsHidden
	case catalog.VOD:
		cats, streams = p.Data.VODCategoriesHidden, p.Data.VODStreamsHidden
	case catalog.Series:
		cats, streams = p.Data.SeriesCategoriesHidden, p.Data.SeriesStreamsHidden
	}
	return HiddenSet{Categories: toSet(cats), Streams: toSet(streams)}
}

// Cached returns the catalog stored in the document for kind.
func (p Playlist) Cached(kind catalog.Kind) catalog.Snapshot {
	switch kind {
	case catalog.Live:
		return catalog.Snapshot{Categories: p.Data.LiveCategories, Streams: p.Data.LiveStreams}
	case catalog.VOD:
		return catalog.Snapshot{Categories: p.Data.VODCategories, Streams: p.Data.VODStreams}
	case catalog.Series:
		return catalog.Snapshot{Categories: p.Data.SeriesCategories, Streams: p.Data.SeriesStreams}
	}
	return catalog.Snapshot{}
}

// ClearCache drops the cached catalogs. Hidden sets are kept.
func (p *Playlist) ClearCache() {
	p.Data.LiveCategories = []catalog.Category{}
	p.Data.VODCategories = []catalog.Category{}
	p.Data.SeriesCategories = []catalog.Category{}
	p.Data.LiveStreams = []catalog.Stream{}
	p.Data.VODStreams = []catalog.Stream{}
	p.Data.SeriesStreams = []catalog.Stream{}
}

// HiddenSet holds hidden ids for one kind.
type HiddenSet struct {
	Categories map[string]struct{}
	Streams    map[string]struct{}
}

// CategoryHidden reports whether the category id is hidden.
func (h HiddenSet) CategoryHidden(id string) bool {
	_, ok := h.Categories[id]
	return ok
}

// StreamHidden reports whether the stream id is hidden.
func (h HiddenSet) StreamHidden(id string) bool {
	_, ok := h.Streams[id]
	return ok
}

func toSet(ids []catalog.FlexString) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id.String()] = struct{}{}
	}
	return set
}
