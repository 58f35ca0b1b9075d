// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package m3u parses M3U playlists into a provider catalog.
package m3u

import (
	"path"
	"strconv"
	"strings"

	"github.com/ManuGH/bouquetmaker/internal/catalog"
)

// DefaultGroup is used for entries without a group-title.
const DefaultGroup = "Uncategorised"

// Entry represents a single entry from the M3U playlist
type Entry struct {
	Name    string
	TvgID   string
	Logo    string
	Group   string
	Catchup string
	URL     string
}

// Parse parses M3U content and returns the entries in file order.
func Parse(content string) []Entry {
	var entries []Entry
	var current *Entry

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "#EXTINF:"):
			// #EXTINF:-1 tvg-id="..." tvg-logo="..." group-title="...",Display Name
			attrs, name := splitExtinf(line[len("#EXTINF:"):])
			current = &Entry{
				Name:    name,
				TvgID:   attrs["tvg-id"],
				Logo:    attrs["tvg-logo"],
				Group:   attrs["group-title"],
				Catchup: attrs["catchup"],
			}
			if current.Name == "" {
				current.Name = attrs["tvg-name"]
			}
		case strings.HasPrefix(line, "#EXTGRP:"):
			if current != nil && current.Group == "" {
				current.Group = strings.TrimSpace(line[len("#EXTGRP:"):])
			}
		case line == "" || strings.HasPrefix(line, "#"):
		default:
			if current == nil {
				continue
			}
			current.URL = line
			entries = append(entries, *current)
			current = nil
		}
	}
	return entries
}

// splitExtinf separates the attribute list from the display name. The name
// starts after the first comma that is not inside a quoted attribute value.
func splitExtinf(s string) (map[string]string, string) {
	attrs := make(map[string]string)
	inQuote := false
	cut := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				cut = i
			}
		}
		if cut >= 0 {
			break
		}
	}
	head, name := s, ""
	if cut >= 0 {
		head, name = s[:cut], strings.TrimSpace(s[cut+1:])
	}

	for {
		eq := strings.Index(head, `="`)
		if eq == -1 {
			break
		}
		key := head[:eq]
		if sp := strings.LastIndexAny(key, " \t"); sp != -1 {
			key = key[sp+1:]
		}
		rest := head[eq+2:]
		end := strings.IndexByte(rest, '"')
		if end == -1 {
			break
		}
		attrs[strings.ToLower(key)] = rest[:end]
		head = rest[end+1:]
	}
	return attrs, name
}

// KindOf classifies an entry by its stream URL.
func KindOf(rawURL string) catalog.Kind {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "/movie/"):
		return catalog.VOD
	case strings.Contains(u, "/series/"):
		return catalog.Series
	}
	return catalog.Live
}

// Catalog groups parsed entries into per-kind snapshots. Category ids are
// assigned per kind in order of first appearance. Stream ids come from a
// numeric final path segment when the URL carries one (Xtream style URLs),
// otherwise from the entry position.
func Catalog(entries []Entry) catalog.Catalog {
	var out catalog.Catalog
	categoryIDs := map[catalog.Kind]map[string]string{}

	for i, e := range entries {
		kind := KindOf(e.URL)
		group := e.Group
		if group == "" {
			group = DefaultGroup
		}

		ids, ok := categoryIDs[kind]
		if !ok {
			ids = make(map[string]string)
			categoryIDs[kind] = ids
		}
		snap := out.Get(kind)
		catID, ok := ids[group]
		if !ok {
			catID = strconv.Itoa(len(ids) + 1)
			ids[group] = catID
			snap.Categories = append(snap.Categories, catalog.Category{
				CategoryID:   catalog.FlexString(catID),
				CategoryName: group,
			})
		}

		id := streamID(e.URL, i+1)
		s := catalog.Stream{
			StreamID:     catalog.FlexString(id),
			Name:         e.Name,
			CategoryID:   catalog.FlexString(catID),
			StreamIcon:   e.Logo,
			EPGChannelID: catalog.FlexString(e.TvgID),
			Source:       e.URL,
		}
		if kind == catalog.Series {
			s.SeriesID = s.StreamID
		}
		if e.Catchup != "" {
			s.TVArchive = "1"
		}
		snap.Streams = append(snap.Streams, s)
		out = out.With(kind, snap)
	}
	return out
}

func streamID(rawURL string, position int) string {
	u := rawURL
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	base := path.Base(u)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if _, err := strconv.ParseUint(base, 10, 63); err == nil {
		return base
	}
	return strconv.Itoa(position)
}
