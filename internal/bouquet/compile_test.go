// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bouquet

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ManuGH/bouquetmaker/internal/catalog"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/sref"
	"github.com/ManuGH/bouquetmaker/internal/xtream"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullURL = "http://ex.com:80"

func xtreamPlaylist() playlists.Playlist {
	return playlists.Playlist{
		Info: playlists.Info{
			Name: "ex", Protocol: "http://", Domain: "ex.com", Port: "80",
			Username: "u", Password: "p", Output: "ts", FullURL: fullURL,
			PlaylistType: playlists.TypeXtream,
		},
		Settings: playlists.Settings{ShowLive: true, ShowVOD: true, ShowSeries: true, LiveType: "4097", VODType: "4097"},
	}
}

func input(kind catalog.Kind, p playlists.Playlist, snap catalog.Snapshot) Input {
	return Input{
		Kind:      kind,
		Playlist:  p,
		SafeName:  "ex",
		UniqueRef: sref.UniqueRef(fullURL),
		Snapshot:  snap,
		Endpoints: xtream.EndpointsFor(p),
	}
}

func cat(id, name string) catalog.Category {
	return catalog.Category{CategoryID: catalog.FlexString(id), CategoryName: name}
}

func live(id, name, catID string) catalog.Stream {
	return catalog.Stream{StreamID: catalog.FlexString(id), Name: name, CategoryID: catalog.FlexString(catID)}
}

func TestCompileScenario(t *testing.T) {
	snap := catalog.Snapshot{
		Categories: []catalog.Category{cat("1", "News")},
		Streams:    []catalog.Stream{live("70000", "Alpha", "1")},
	}
	res := Compile(input(catalog.Live, xtreamPlaylist(), snap))

	require.Len(t, res.Categories, 1)
	c := res.Categories[0]
	assert.Equal(t, "userbouquet.bouquetmakerxtream_live_ex_News.tv", c.File)

	ref := fmt.Sprintf("%x", sref.UniqueRef(fullURL))
	want := "#NAME News\n" +
		"#SERVICE 4097:0:1:1:1171:" + ref + ":0:0:0:0:http%3A//ex.com%3A80/live/u/p/70000.ts:Alpha\n" +
		"#DESCRIPTION Alpha\n"
	if diff := cmp.Diff(want, c.Content()); diff != "" {
		t.Errorf("artifact mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{
		"#SERVICE 1:7:1:0:0:0:0:0:0:0:FROM BOUQUET \"userbouquet.bouquetmakerxtream_live_ex_News.tv\" ORDER BY bouquet\n",
	}, res.ParentLines)
}

func TestCompileHiddenFiltering(t *testing.T) {
	p := xtreamPlaylist()
	p.Data.LiveStreamsHidden = []catalog.FlexString{"2"}
	p.Data.LiveCategoriesHidden = []catalog.FlexString{"9"}
	snap := catalog.Snapshot{
		Categories: []catalog.Category{cat("1", "News"), cat("9", "Adult"), cat("3", "Empty")},
		Streams: []catalog.Stream{
			live("1", "One", "1"),
			live("2", "Two", "1"),
			live("3", "Three", "9"),
			live("4", "Four", "3"),
		},
	}
	p.Data.LiveStreamsHidden = append(p.Data.LiveStreamsHidden, "4")

	res := Compile(input(catalog.Live, p, snap))
	require.Len(t, res.Categories, 1, "hidden category and all-hidden category are absent")
	content := res.Categories[0].Content()
	assert.Contains(t, content, ":One\n")
	assert.NotContains(t, content, "Two")
	assert.Equal(t, 3, res.Skipped[SkipHidden])
	assert.Equal(t, 1, res.Kept)
}

func TestCompileSkipsBadEntries(t *testing.T) {
	snap := catalog.Snapshot{
		Categories: []catalog.Category{cat("1", "News"), cat("", "NoID")},
		Streams: []catalog.Stream{
			live("", "NoID", "1"),
			live("5", "NoCat", ""),
			live("abc", "Bad", "1"),
			live("6", "Good", "1"),
		},
	}
	res := Compile(input(catalog.Live, xtreamPlaylist(), snap))
	require.Len(t, res.Categories, 1)
	assert.Len(t, res.Categories[0].Entries, 1)
	assert.Equal(t, map[string]int{SkipNoID: 1, SkipNoCategory: 1, SkipInvalidID: 1}, res.Skipped)
}

func names(c Category) []string {
	var out []string
	for _, e := range c.Entries {
		out = append(out, e.SortName)
	}
	return out
}

func TestCompileSortOrders(t *testing.T) {
	snap := catalog.Snapshot{
		Categories: []catalog.Category{cat("2", "zeta"), cat("1", "Alpha")},
		Streams: []catalog.Stream{
			{StreamID: "1", Name: "beta", CategoryID: "1", Added: "100"},
			{StreamID: "2", Name: "Alpha", CategoryID: "1", Added: "900"},
			{StreamID: "3", Name: "gamma", CategoryID: "1", Added: "20"},
			{StreamID: "4", Name: "x", CategoryID: "2"},
		},
	}

	p := xtreamPlaylist()
	res := Compile(input(catalog.Live, p, snap))
	assert.Equal(t, "zeta", res.Categories[0].Name, "original category order")
	assert.Equal(t, []string{"beta", "Alpha", "gamma"}, names(res.Categories[1]), "insertion order")

	p.Settings.LiveCategoryOrder = playlists.OrderAlphabetical
	p.Settings.LiveStreamOrder = playlists.OrderAlphabetical
	res = Compile(input(catalog.Live, p, snap))
	assert.Equal(t, "Alpha", res.Categories[0].Name)
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, names(res.Categories[0]))

	p.Settings.LiveStreamOrder = playlists.OrderAdded
	res = Compile(input(catalog.Live, p, snap))
	assert.Equal(t, []string{"Alpha", "beta", "gamma"}, names(res.Categories[0]), "newest first")
}

func TestCompileCustomIdentifier(t *testing.T) {
	s := live("70000", "Alpha", "1")
	s.CustomSID = "1:0:19:132F:3EF:1:C00000:0:0:0:"
	s.EPGChannelID = "alpha&beta.uk"
	snap := catalog.Snapshot{Categories: []catalog.Category{cat("1", "News")}, Streams: []catalog.Stream{s}}

	res := Compile(input(catalog.Live, xtreamPlaylist(), snap))
	require.Len(t, res.Channels, 1)
	assert.Equal(t,
		"\t<channel id=\"alpha&amp;beta.uk\">1:0:19:132F:3EF:1:C00000:0:0:0:http%3a//example.m3u8</channel><!-- Alpha -->\n",
		res.Channels[0])

	ch := res.Channels[0]
	ref := ch[strings.Index(ch, ">")+1 : strings.Index(ch, "</")]
	assert.Equal(t, "1:0:19:132F:3EF:1:C00000", strings.Join(strings.Split(ref, ":")[:7], ":"))
	assert.Contains(t, res.Categories[0].Content(), "#SERVICE 4097:0:19:132F:3EF:1:C00000:0:0:0:http%3A//ex.com%3A80/live/")
}

func TestCompileDerivedEPGReference(t *testing.T) {
	s := live("70000", "Alpha", "1")
	s.EPGChannelID = "alpha.uk"
	snap := catalog.Snapshot{Categories: []catalog.Category{cat("1", "News")}, Streams: []catalog.Stream{s}}

	res := Compile(input(catalog.Live, xtreamPlaylist(), snap))
	ref := fmt.Sprintf("%x", sref.UniqueRef(fullURL))
	assert.Equal(t,
		[]string{"\t<channel id=\"alpha.uk\">1:0:1:1:1171:" + ref + ":0:0:0:0:http%3a//example.m3u8</channel><!-- Alpha -->\n"},
		res.Channels)
}

func TestCompileNamesAndCatchup(t *testing.T) {
	s := live("1", `-"Sky: News"-`, "1")
	s.TVArchive = "1"
	snap := catalog.Snapshot{Categories: []catalog.Category{cat("1", "News")}, Streams: []catalog.Stream{s}}

	in := input(catalog.Live, xtreamPlaylist(), snap)
	in.Catchup = Catchup{Enabled: true, Prefix: "^"}
	res := Compile(in)
	assert.Contains(t, res.Categories[0].Content(), ".ts:^Sky News\n#DESCRIPTION ^Sky News\n")
}

func TestCompileHeaders(t *testing.T) {
	snap := catalog.Snapshot{Categories: []catalog.Category{cat("1", "Films")}, Streams: []catalog.Stream{
		{StreamID: "5", Name: "Heat", CategoryID: "1", ContainerExtension: "mkv"},
	}}
	p := xtreamPlaylist()
	p.Settings.PrefixName = true

	res := Compile(input(catalog.VOD, p, snap))
	assert.True(t, strings.HasPrefix(res.Categories[0].Content(), "#NAME ex VOD - Films\n"))
	assert.Contains(t, res.Categories[0].Content(), "/movie/u/p/5.mkv:Heat\n")

	in := input(catalog.VOD, p, snap)
	in.Grouped = true
	res = Compile(in)
	assert.Equal(t, "subbouquet.bouquetmakerxtream_vod_ex_Films.tv", res.Categories[0].File)
	assert.True(t, strings.HasPrefix(res.Categories[0].Content(), "#NAME VOD - Films\n"), "prefix only without grouping")

	in = input(catalog.Live, p, catalog.Snapshot{Categories: []catalog.Category{cat("1", "News")}, Streams: []catalog.Stream{live("1", "A", "1")}})
	res = Compile(in)
	assert.True(t, strings.HasPrefix(res.Categories[0].Content(), "#NAME ex - News\n"))
}

func TestCompileXtreamSeries(t *testing.T) {
	snap := catalog.Snapshot{
		Categories: []catalog.Category{cat("4", "Drama")},
		Streams: []catalog.Stream{
			{SeriesID: "77", Name: "Dark", CategoryID: "4", LastModified: "5"},
			{SeriesID: "78", Name: "Unknown", CategoryID: "4"},
		},
	}
	in := input(catalog.Series, xtreamPlaylist(), snap)
	in.Episodes = xtream.GroupEpisodes([]xtream.Episode{
		{URL: "http://ex.com:80/series/u/p/301.mkv", Name: "Dark S01 E01", StreamID: "301", Group: "Dark"},
		{URL: "http://ex.com:80/series/u/p/302.mkv", Name: "Dark S01 E02", StreamID: "302", Group: "Dark"},
	})

	res := Compile(in)
	require.Len(t, res.Categories, 1)
	c := res.Categories[0]
	assert.Equal(t, "userbouquet.bouquetmakerxtream_series_ex_Drama.tv", c.File)
	assert.Len(t, c.Entries, 2)
	assert.True(t, strings.HasPrefix(c.Content(), "#NAME Series - Drama\n"))
	assert.Contains(t, c.Content(), "http%3A//ex.com%3A80/series/u/p/301.mkv:Dark S01 E01\n#DESCRIPTION Dark S01 E01\n")
	assert.Equal(t, 1, res.Skipped[SkipNoEpisodes])
}

func TestCompileExternalSource(t *testing.T) {
	p := xtreamPlaylist()
	p.Info.PlaylistType = playlists.TypeExternal
	snap := catalog.Snapshot{
		Categories: []catalog.Category{cat("1", "UK")},
		Streams:    []catalog.Stream{{StreamID: "3", Name: "One", CategoryID: "1", Source: "http://cdn/x y.m3u8"}},
	}
	res := Compile(input(catalog.Live, p, snap))
	assert.Contains(t, res.Categories[0].Content(), ":0:0:0:0:http%3A//cdn/x%20y.m3u8:One\n")
}

func TestCompileDuplicateCategoryNames(t *testing.T) {
	snap := catalog.Snapshot{
		Categories: []catalog.Category{cat("1", "News"), cat("2", "News")},
		Streams:    []catalog.Stream{live("1", "A", "1"), live("2", "B", "2")},
	}
	res := Compile(input(catalog.Live, xtreamPlaylist(), snap))
	require.Len(t, res.Categories, 2)
	assert.NotEqual(t, res.Categories[0].File, res.Categories[1].File)
}

func TestAddedAfter(t *testing.T) {
	assert.True(t, addedAfter("1000", "999"))
	assert.False(t, addedAfter("", "1"))
	assert.True(t, addedAfter("b", "A"))
}
