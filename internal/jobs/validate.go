// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/validate"
)

var playlistTypes = []string{playlists.TypeXtream, playlists.TypeExternal, playlists.TypeLocal}

// validatePlaylist rejects records a build cannot use. Such playlists are
// skipped with a warning; the rest of the run continues.
func validatePlaylist(p playlists.Playlist) error {
	v := validate.New()
	v.NotEmpty("name", p.Info.Name)
	v.NotEmpty("full_url", p.Info.FullURL)
	v.OneOf("playlist_type", p.Type(), playlistTypes)

	switch p.Type() {
	case playlists.TypeXtream:
		v.URL("player_api", p.Info.PlayerAPI, []string{"http", "https"})
		v.NotEmpty("domain", p.Info.Domain)
		v.NotEmpty("username", p.Info.Username)
		v.NotEmpty("password", p.Info.Password)
		if port := p.Info.Port.String(); port != "" {
			v.Numeric("port", port)
		}
	case playlists.TypeExternal:
		v.URL("full_url", p.Info.FullURL, []string{"http", "https"})
	}
	return v.Err()
}
