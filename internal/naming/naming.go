// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package naming owns every generated file name and the sanitizer that turns
// playlist and category titles into file name components.
package naming

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/ManuGH/bouquetmaker/internal/catalog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tag is embedded in every generated artifact name.
const Tag = "bouquetmakerxtream"

var (
	reSpecial     = regexp.MustCompile(`[<>:"/\\|?*]`)
	reWhitespace  = regexp.MustCompile(`\s+`)
	reUnderscores = regexp.MustCompile(`_+`)
)

// SafeName replaces file system special characters and whitespace runs with
// underscores and collapses repeated underscores.
func SafeName(name string) string {
	s := norm.NFC.String(name)
	s = reSpecial.ReplaceAllString(s, "_")
	s = reWhitespace.ReplaceAllString(s, "_")
	return reUnderscores.ReplaceAllString(s, "_")
}

// Bouquet container names.
const (
	BouquetsTV  = "bouquets.tv"
	UserBouquet = "userbouquet"
	SubBouquet  = "subbouquet"
)

// CategoryFile is the artifact name for one category of one playlist.
func CategoryFile(container string, kind catalog.Kind, safePlaylist, category string) string {
	return container + "." + Tag + "_" + string(kind) + "_" + safePlaylist + "_" + SafeName(category) + ".tv"
}

// GroupFile is the per-playlist sub-list used when grouping is enabled.
func GroupFile(safePlaylist string) string {
	return UserBouquet + "." + Tag + "_" + safePlaylist + ".tv"
}

// FromBouquet renders a parent list line pointing at file.
func FromBouquet(file string) string {
	return `#SERVICE 1:7:1:0:0:0:0:0:0:0:FROM BOUQUET "` + file + `" ORDER BY bouquet` + "\n"
}

// ReservedPatterns are the substrings that identify a playlist's lines in
// the parent list and its artifact file names.
func ReservedPatterns(safePlaylist string) []string {
	out := make([]string, 0, len(catalog.Kinds)+1)
	for _, k := range catalog.Kinds {
		out = append(out, Tag+"_"+string(k)+"_"+safePlaylist+"_")
	}
	return append(out, Tag+"_"+safePlaylist+".tv")
}

// Owner returns the playlist among safeNames that a reserved file name or
// parent list line belongs to. Names are ambiguous when one safe name
// extends another with "_" ("ex" and "ex_2"), so the longest matching safe
// name wins. It returns "" when nothing matches.
func Owner(s string, safeNames []string) string {
	owner := ""
	for _, name := range safeNames {
		if len(name) <= len(owner) {
			continue
		}
		for _, p := range ReservedPatterns(name) {
			if strings.Contains(s, p) {
				owner = name
				break
			}
		}
	}
	return owner
}

// EPG file names.
const (
	SourcesFile    = Tag + ".sources.xml"
	SourceCategory = "BouquetMakerXtream EPG"
)

// ChannelsFile is the per-playlist EPG channel mapping document.
func ChannelsFile(safePlaylist string) string {
	return Tag + "." + safePlaylist + ".channels.xml"
}

// EPGPrefix matches every EPG file belonging to a playlist.
func EPGPrefix(safePlaylist string) string {
	return Tag + "." + safePlaylist + "."
}

var piconReplacer = strings.NewReplacer("&", "and", "+", "plus", "*", "star")

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// PiconKey converts a channel display name into the picon file key:
// lowercase, diacritics removed, "&", "+" and "*" spelled out, and every
// other non alphanumeric rune dropped.
func PiconKey(name string) string {
	s, _, err := transform.String(stripMarks, name)
	if err != nil {
		s = name
	}
	s = piconReplacer.Replace(strings.ToLower(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
