// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playlists

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/fsutil"
	"github.com/gofrs/flock"
)

var (
	// ErrBusy is returned when another process holds the build lock.
	ErrBusy = errors.New("playlist store is locked by another build")
	// ErrNotFound is returned when a named playlist does not exist.
	ErrNotFound = errors.New("playlist not found")
)

// Store reads and rewrites the playlist document as a whole. Builds take the
// advisory lock next to the document so that a scheduled run and a manual
// run never interleave.
type Store struct {
	path string
	lock *flock.Flock
}

// NewStore returns a store for the document at path.
func NewStore(path string) *Store {
	return &Store{path: path, lock: flock.New(path + ".lock")}
}

// Path returns the document location.
func (s *Store) Path() string { return s.path }

// Load reads all playlists. A missing or empty document yields no playlists.
func (s *Store) Load() ([]Playlist, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read playlists: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var list []Playlist
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode playlists %s: %w", filepath.Base(s.path), err)
	}
	return list, nil
}

// Save rewrites the document atomically.
func (s *Store) Save(ctx context.Context, list []Playlist) error {
	if list == nil {
		list = []Playlist{}
	}
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode playlists: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create playlist dir: %w", err)
	}
	return fsutil.WriteFileAtomic(ctx, s.path, data)
}

// TryLock takes the build lock without waiting.
func (s *Store) TryLock() (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create playlist dir: %w", err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() { _ = s.lock.Unlock() }, nil
}

// Lock waits for the build lock until ctx is done.
func (s *Store) Lock(ctx context.Context) (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("create playlist dir: %w", err)
	}
	ok, err := s.lock.TryLockContext(ctx, 250*time.Millisecond)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return func() { _ = s.lock.Unlock() }, nil
}

// Find returns the index of the playlist with the given name.
func Find(list []Playlist, name string) (int, error) {
	for i := range list {
		if list[i].Info.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNotFound, name)
}
