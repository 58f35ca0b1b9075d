// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package xtream

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/bouquetmaker/internal/catalog"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/sref"
)

// Endpoints holds the provider URLs derived from a playlist.
type Endpoints struct {
	PlayerAPI string
	Host      string
	Username  string
	Password  string
	Output    string
}

// EndpointsFor derives the endpoints of an Xtream playlist.
func EndpointsFor(p playlists.Playlist) Endpoints {
	return Endpoints{
		PlayerAPI: p.Info.PlayerAPI,
		Host:      p.Host(),
		Username:  p.Info.Username,
		Password:  p.Info.Password,
		Output:    p.Info.Output,
	}
}

// CategoriesAction is the player_api action listing categories of kind.
func CategoriesAction(kind catalog.Kind) string {
	return "get_" + string(kind) + "_categories"
}

// StreamsAction is the player_api action listing entries of kind.
func StreamsAction(kind catalog.Kind) string {
	if kind == catalog.Series {
		return "get_series"
	}
	return "get_" + string(kind) + "_streams"
}

// ActionURL returns the player_api URL for action.
func (e Endpoints) ActionURL(action string) string {
	return e.PlayerAPI + "&action=" + action
}

// SimpleURL returns the plain text listing used to expand series.
func (e Endpoints) SimpleURL() string {
	return e.Host + "/get.php?username=" + e.Username + "&password=" + e.Password + "&type=simple&output=" + e.Output
}

// LiveLocator is the playable locator of a live stream.
func (e Endpoints) LiveLocator(streamID string) string {
	return sref.Quote(e.Host) + "/live/" + e.Username + "/" + e.Password + "/" + streamID + "." + e.Output
}

// MovieLocator is the playable locator of a VOD entry.
func (e Endpoints) MovieLocator(streamID, extension string) string {
	return sref.Quote(e.Host) + "/movie/" + e.Username + "/" + e.Password + "/" + streamID + "." + extension
}

// Categories fetches the category list of kind.
func (c *Client) Categories(ctx context.Context, e Endpoints, kind catalog.Kind) ([]catalog.Category, error) {
	action := CategoriesAction(kind)
	var out []catalog.Category
	if err := c.GetJSON(ctx, action, e.ActionURL(action), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Streams fetches the entry list of kind.
func (c *Client) Streams(ctx context.Context, e Endpoints, kind catalog.Kind) ([]catalog.Stream, error) {
	action := StreamsAction(kind)
	var out []catalog.Stream
	if err := c.GetJSON(ctx, action, e.ActionURL(action), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Snapshot fetches categories and entries of kind. Categories failing means
// the kind has no data; an entry fetch failure still returns the categories.
func (c *Client) Snapshot(ctx context.Context, e Endpoints, kind catalog.Kind) (catalog.Snapshot, error) {
	cats, err := c.Categories(ctx, e, kind)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	if len(cats) == 0 {
		return catalog.Snapshot{}, nil
	}
	streams, err := c.Streams(ctx, e, kind)
	return catalog.Snapshot{Categories: cats, Streams: streams}, err
}

// SeriesEpisodes fetches and parses the simple listing.
func (c *Client) SeriesEpisodes(ctx context.Context, e Endpoints) ([]Episode, error) {
	text, err := c.GetText(ctx, "get_simple", e.SimpleURL())
	if err != nil {
		return nil, err
	}
	return ParseSimple(text)
}

// External downloads an M3U playlist.
func (c *Client) External(ctx context.Context, rawURL string) (string, error) {
	return c.GetText(ctx, "external", rawURL)
}

// LoadLocal reads a local M3U file. Relative paths resolve against dir.
func LoadLocal(dir, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	// #nosec G304 -- local playlists are configured by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &FetchError{Sentinel: ErrNoData, Action: "local", Err: err}
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", &FetchError{Sentinel: ErrNoData, Action: "local", Err: fmt.Errorf("%s is empty", filepath.Base(path))}
	}
	return string(data), nil
}
