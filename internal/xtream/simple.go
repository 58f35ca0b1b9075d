// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package xtream

import (
	"regexp"
	"strings"
)

// Episode is one line of the simple listing.
type Episode struct {
	URL      string
	Name     string
	StreamID string
	// Group is the series title the episode belongs to.
	Group string
}

var (
	reSeriesMarker = regexp.MustCompile(`/series/|S\d{2}|E\d{2}`)
	reGroupLong    = regexp.MustCompile(`Name: (.+?)\sS\d{2} E\d{2}`)
	reGroupShort   = regexp.MustCompile(`Name: (.+?)\sS\d{2}`)
	reSeasonLead   = regexp.MustCompile(`^S\d{2}\s`)
)

const nameSep = " #Name: "

// ParseSimple parses the "url #Name: Title S01 E01" listing. A listing that
// is an M3U document means the panel does not implement the call.
func ParseSimple(text string) ([]Episode, error) {
	if strings.Contains(text, "#EXTM3U") {
		return nil, &FetchError{Sentinel: ErrNoSimpleAPI, Action: "get_simple"}
	}

	var out []Episode
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if !isSeriesLine(line) {
			continue
		}
		url, name, ok := strings.Cut(line, nameSep)
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)

		group := ""
		long := false
		if m := reGroupLong.FindStringSubmatch(line); m != nil {
			group, long = strings.TrimSpace(m[1]), true
		} else if m := reGroupShort.FindStringSubmatch(line); m != nil {
			group = strings.TrimSpace(m[1])
		}

		if group != "" && !long {
			if i := strings.Index(name, group); i != -1 {
				name = name[:i] + name[i+len(group):]
				name = reSeasonLead.ReplaceAllString(strings.TrimSpace(name), "")
			}
		}

		url = strings.TrimSpace(url)
		id := url[strings.LastIndex(url, "/")+1:]
		if i := strings.IndexByte(id, '.'); i >= 0 {
			id = id[:i]
		}

		out = append(out, Episode{
			URL:      url,
			Name:     strings.TrimSpace(name),
			StreamID: strings.TrimSpace(id),
			Group:    group,
		})
	}
	return out, nil
}

// isSeriesLine reports whether the line carries a series marker that is not
// followed by a live or movie path.
func isSeriesLine(line string) bool {
	locs := reSeriesMarker.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return false
	}
	rest := line[locs[len(locs)-1][1]:]
	return !strings.Contains(rest, "/live") && !strings.Contains(rest, "/movie")
}

// GroupEpisodes indexes episodes by series title.
func GroupEpisodes(eps []Episode) map[string][]Episode {
	out := make(map[string][]Episode)
	for _, e := range eps {
		out[e.Group] = append(out[e.Group], e)
	}
	return out
}
