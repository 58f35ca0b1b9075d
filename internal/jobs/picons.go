// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"fmt"

	"github.com/ManuGH/bouquetmaker/internal/bouquet"
	"github.com/ManuGH/bouquetmaker/internal/catalog"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/m3u"
	"github.com/ManuGH/bouquetmaker/internal/naming"
	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/xtream"
)

// PiconItems lists the logos of a playlist's visible live channels, one
// item per picon key. Channels without a logo URL are left out.
func PiconItems(ctx context.Context, f Fetcher, p playlists.Playlist, localDir string) ([]picons.Item, error) {
	if err := validatePlaylist(p); err != nil {
		return nil, err
	}

	var snap catalog.Snapshot
	switch p.Type() {
	case playlists.TypeXtream:
		s, err := f.Snapshot(ctx, xtream.EndpointsFor(p), catalog.Live)
		if err != nil {
			return nil, fmt.Errorf("fetch live catalog: %w", err)
		}
		snap = s
	case playlists.TypeExternal:
		text, err := f.External(ctx, p.Info.FullURL)
		if err != nil {
			return nil, fmt.Errorf("fetch playlist: %w", err)
		}
		snap = m3u.Catalog(m3u.Parse(text)).Get(catalog.Live)
	default:
		text, err := xtream.LoadLocal(localDir, p.Info.FullURL)
		if err != nil {
			return nil, fmt.Errorf("read playlist: %w", err)
		}
		snap = m3u.Catalog(m3u.Parse(text)).Get(catalog.Live)
	}

	hidden := p.Hidden(catalog.Live)
	seen := make(map[string]struct{})
	var items []picons.Item
	for _, s := range snap.Streams {
		if hidden.CategoryHidden(s.CategoryID.String()) || hidden.StreamHidden(s.ID(catalog.Live)) {
			continue
		}
		url := s.Icon()
		key := naming.PiconKey(bouquet.CleanName(s.Name))
		if url == "" || key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, picons.Item{Key: key, URL: url})
	}

	xglog.WithComponentFromContext(ctx, "jobs").Debug().
		Str(xglog.FieldEvent, "picons.selected").
		Str(xglog.FieldPlaylist, p.Info.Name).
		Int("items", len(items)).
		Msg("picon batch prepared")
	return items, nil
}
