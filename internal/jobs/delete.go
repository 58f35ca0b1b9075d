// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"errors"
	"fmt"

	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/naming"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
)

// Delete removes the bouquets of the named playlists. Artifacts, the EPG
// source entry and the channels file go; the playlist records stay with
// bouquet=false. Unknown names are reported after the others are handled.
func Delete(ctx context.Context, deps Deps, names []string) error {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	all, err := deps.Store.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoPlaylists, err)
	}

	var errs []error
	for _, name := range names {
		i, err := playlists.Find(all, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		safe := naming.SafeName(all[i].Info.Name)
		removed, err := deps.Writer.Purge(ctx, safe, otherSafeNames(all, i)...)
		if err != nil {
			logger.Error().Err(err).Str(xglog.FieldPlaylist, name).Msg("bouquets not fully removed")
		}
		if deps.EPG != nil && deps.EPG.Available() {
			if err := deps.EPG.Remove(ctx, safe); err != nil {
				logger.Warn().Err(err).Str(xglog.FieldPlaylist, name).Msg("EPG source entry not removed")
			}
			epgRemoved, err := deps.EPG.Purge(safe)
			if err != nil {
				logger.Warn().Err(err).Str(xglog.FieldPlaylist, name).Msg("EPG files not fully removed")
			}
			removed = append(removed, epgRemoved...)
		}
		all[i].Info.Bouquet = false
		logger.Info().
			Str(xglog.FieldEvent, "playlist.deleted").
			Str(xglog.FieldPlaylist, name).
			Int("removed", len(removed)).
			Msg("bouquets deleted")
	}

	if len(errs) < len(names) {
		if err := deps.Store.Save(ctx, all); err != nil {
			return fmt.Errorf("save playlists: %w", err)
		}
		if deps.Refresher != nil {
			if err := deps.Refresher.ReloadServices(ctx); err != nil {
				logger.Warn().Err(err).Msg("receiver did not reload service lists")
			}
		}
	}
	return errors.Join(errs...)
}
