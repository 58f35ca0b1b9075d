// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bouquet compiles provider catalogs into Enigma2 bouquet artifacts
// and applies them to the Enigma2 configuration directory.
package bouquet

import (
	"sort"
	"strconv"
	"strings"

	"github.com/ManuGH/bouquetmaker/internal/catalog"
	"github.com/ManuGH/bouquetmaker/internal/naming"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/sref"
	"github.com/ManuGH/bouquetmaker/internal/xtream"
)

// Skip reasons reported in Result.Skipped.
const (
	SkipNoID       = "no_id"
	SkipNoCategory = "no_category"
	SkipHidden     = "hidden"
	SkipInvalidID  = "invalid_id"
	SkipNoEpisodes = "no_episodes"
)

// Catchup controls the archive marker prepended to live channel names.
type Catchup struct {
	Enabled bool
	Prefix  string
}

// Input is everything one compilation of one kind needs. It is not mutated.
type Input struct {
	Kind      catalog.Kind
	Playlist  playlists.Playlist
	SafeName  string
	UniqueRef int
	Snapshot  catalog.Snapshot
	// Endpoints builds locators for Xtream playlists.
	Endpoints xtream.Endpoints
	// Episodes maps series titles to simple listing lines (Xtream series only).
	Episodes map[string][]xtream.Episode
	Grouped  bool
	Catchup  Catchup
}

// Entry is the compiled fragment of one stream.
type Entry struct {
	CategoryID string
	SortName   string
	Added      string
	Service    string
	// Channel is the EPG channel mapping line, empty when the stream has no EPG id.
	Channel string
}

// Category is one artifact to write.
type Category struct {
	ID      string
	Name    string
	File    string
	Header  string
	Entries []Entry
}

// Content renders the artifact body.
func (c Category) Content() string {
	var b strings.Builder
	b.WriteString(c.Header)
	for _, e := range c.Entries {
		b.WriteString(e.Service)
	}
	return b.String()
}

// Result is the outcome of compiling one kind.
type Result struct {
	Kind       catalog.Kind
	Categories []Category
	// ParentLines are the FROM BOUQUET lines in category order.
	ParentLines []string
	// Channels are EPG mapping lines in stream order (live only).
	Channels []string
	Kept     int
	Skipped  map[string]int
}

// Empty reports whether nothing is to be written.
func (r Result) Empty() bool { return len(r.Categories) == 0 }

// Compile filters, sorts and encodes one kind of a playlist catalog.
// Categories without any visible stream produce no artifact.
func Compile(in Input) Result {
	res := Result{Kind: in.Kind, Skipped: map[string]int{}}
	hidden := in.Playlist.Hidden(in.Kind)

	cats := visibleCategories(in.Snapshot.Categories, hidden, in.Playlist.CategoryOrder(in.Kind))
	if len(cats) == 0 {
		return res
	}

	entries := compileEntries(in, hidden, res.Skipped)
	res.Kept = len(entries)

	byCategory := make(map[string][]Entry)
	for _, e := range entries {
		byCategory[e.CategoryID] = append(byCategory[e.CategoryID], e)
		if e.Channel != "" {
			res.Channels = append(res.Channels, e.Channel)
		}
	}

	container := naming.UserBouquet
	if in.Grouped {
		container = naming.SubBouquet
	}
	used := make(map[string]bool)
	for _, c := range cats {
		members := byCategory[c.ID()]
		if len(members) == 0 {
			continue
		}
		sortEntries(members, in.Playlist.StreamOrder(in.Kind))

		file := naming.CategoryFile(container, in.Kind, in.SafeName, c.CategoryName)
		if used[file] {
			file = naming.CategoryFile(container, in.Kind, in.SafeName, c.CategoryName+"_"+c.ID())
		}
		used[file] = true

		res.Categories = append(res.Categories, Category{
			ID:      c.ID(),
			Name:    c.CategoryName,
			File:    file,
			Header:  header(in, c.CategoryName),
			Entries: members,
		})
		res.ParentLines = append(res.ParentLines, naming.FromBouquet(file))
	}
	return res
}

func visibleCategories(all []catalog.Category, hidden playlists.HiddenSet, order string) []catalog.Category {
	out := make([]catalog.Category, 0, len(all))
	for _, c := range all {
		id := c.ID()
		if id == "" || hidden.CategoryHidden(id) {
			continue
		}
		out = append(out, c)
	}
	if order == playlists.OrderAlphabetical {
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].CategoryName) < strings.ToLower(out[j].CategoryName)
		})
	}
	return out
}

func compileEntries(in Input, hidden playlists.HiddenSet, skipped map[string]int) []Entry {
	xtreamSource := in.Playlist.Type() == playlists.TypeXtream
	serviceType := in.Playlist.ServiceType(in.Kind)

	var out []Entry
	for _, s := range in.Snapshot.Streams {
		id := s.ID(in.Kind)
		catID := s.CategoryID.String()
		switch {
		case id == "":
			skipped[SkipNoID]++
			continue
		case catID == "":
			skipped[SkipNoCategory]++
			continue
		case hidden.CategoryHidden(catID) || hidden.StreamHidden(id):
			skipped[SkipHidden]++
			continue
		}

		name := CleanName(s.Name)

		if in.Kind == catalog.Series && xtreamSource {
			eps := in.Episodes[s.Name]
			if len(eps) == 0 {
				skipped[SkipNoEpisodes]++
				continue
			}
			for _, ep := range eps {
				ns, err := sref.Encode(ep.StreamID, in.UniqueRef)
				if err != nil {
					skipped[SkipInvalidID]++
					continue
				}
				out = append(out, Entry{
					CategoryID: catID,
					SortName:   s.Name,
					Added:      s.AddedAt(),
					Service:    serviceLines(ns.Prefix(serviceType), sref.Quote(ep.URL), CleanName(ep.Name)),
				})
			}
			continue
		}

		ns, err := sref.Encode(id, in.UniqueRef)
		if err != nil {
			skipped[SkipInvalidID]++
			continue
		}

		prefix := ns.Prefix(serviceType)
		entry := Entry{CategoryID: catID, SortName: s.Name, Added: s.AddedAt()}

		var locator string
		switch {
		case !xtreamSource:
			locator = sref.Quote(s.Source)
		case in.Kind == catalog.Live:
			locator = in.Endpoints.LiveLocator(id)
		default:
			locator = in.Endpoints.MovieLocator(id, extension(s))
		}

		if in.Kind == catalog.Live {
			if in.Catchup.Enabled && s.Catchup() {
				name = in.Catchup.Prefix + name
			}
			epgRef := ns.Reference()
			if custom, ok := sref.ParseCustom(s.CustomSID.String()); ok {
				prefix = custom.Prefix(serviceType)
				epgRef = custom.Reference()
			}
			if epgID := s.EPGChannelID.String(); epgID != "" {
				entry.Channel = channelLine(epgID, epgRef, name)
			}
		}

		entry.Service = serviceLines(prefix, locator, name)
		out = append(out, entry)
	}
	return out
}

// CleanName strips the characters that would break a service line.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, ":", "")
	name = strings.ReplaceAll(name, `"`, "")
	return strings.Trim(name, "-")
}

func serviceLines(prefix, locator, name string) string {
	return "#SERVICE " + prefix + locator + ":" + name + "\n#DESCRIPTION " + name + "\n"
}

func channelLine(epgID, ref, name string) string {
	return "\t<channel id=\"" + strings.ReplaceAll(epgID, "&", "&amp;") + "\">" + ref + "</channel><!-- " + name + " -->\n"
}

func extension(s catalog.Stream) string {
	if ext := strings.TrimPrefix(strings.TrimSpace(s.ContainerExtension), "."); ext != "" {
		return ext
	}
	return "mp4"
}

func header(in Input, category string) string {
	label := ""
	switch in.Kind {
	case catalog.VOD:
		label = "VOD - "
	case catalog.Series:
		label = "Series - "
	}
	if in.Playlist.Settings.PrefixName && !in.Grouped {
		if label == "" {
			label = "- "
		}
		return "#NAME " + in.SafeName + " " + label + category + "\n"
	}
	return "#NAME " + label + category + "\n"
}

// sortEntries orders one category. "alphabetical" compares lowercase names,
// "added" puts the newest first; anything else keeps provider order.
func sortEntries(entries []Entry, order string) {
	switch order {
	case playlists.OrderAlphabetical:
		sort.SliceStable(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].SortName) < strings.ToLower(entries[j].SortName)
		})
	case playlists.OrderAdded:
		sort.SliceStable(entries, func(i, j int) bool {
			return addedAfter(entries[i].Added, entries[j].Added)
		})
	}
}

// addedAfter compares provider timestamps. Numeric timestamps compare as
// numbers; anything else falls back to a case-insensitive string compare.
func addedAfter(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai > bi
	}
	return strings.ToLower(a) > strings.ToLower(b)
}
