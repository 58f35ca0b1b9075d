// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fsutil holds the file system primitives shared by the artifact
// writers: durable atomic replacement and prefix based purging.
package fsutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/google/renameio/v2"
)

// WriteAtomic streams content into path. Readers see either the old file or
// the complete new one; the temp file is fsynced before the rename.
func WriteAtomic(ctx context.Context, path string, write func(w io.Writer) error) error {
	logger := xglog.WithComponentFromContext(ctx, "fsutil")

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file %s: %w", filepath.Base(path), err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Str(xglog.FieldPath, path).Msg("cleanup pending file")
		}
	}()

	if err := write(pendingFile); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteFileAtomic writes data to path atomically.
func WriteFileAtomic(ctx context.Context, path string, data []byte) error {
	return WriteAtomic(ctx, path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// Purge removes every regular file in dir whose name contains one of the
// patterns. A missing directory is not an error. It returns the removed names.
func Purge(dir string, patterns ...string) ([]string, error) {
	return PurgeFunc(dir, func(name string) bool { return containsAny(name, patterns) })
}

// PurgeFunc removes every regular file in dir for which match is true.
func PurgeFunc(dir string, match func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var removed []string
	var firstErr error
	for _, e := range entries {
		if e.IsDir() || !match(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", e.Name(), err)
			}
			continue
		}
		removed = append(removed, e.Name())
	}
	return removed, firstErr
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(s, p) {
			return true
		}
	}
	return false
}
