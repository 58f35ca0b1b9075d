// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bouquet

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ManuGH/bouquetmaker/internal/fsutil"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/metrics"
	"github.com/ManuGH/bouquetmaker/internal/naming"
)

// ErrArtifactWrite marks a failed artifact write. The pipeline logs it and
// continues with the remaining artifacts.
var ErrArtifactWrite = errors.New("artifact write failed")

// Writer applies compiled results to the Enigma2 configuration directory.
type Writer struct {
	dir string
}

// NewWriter returns a writer for dir (usually /etc/enigma2).
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the target directory.
func (w *Writer) Dir() string { return w.dir }

// Target names the playlist a result belongs to.
type Target struct {
	Name     string
	SafeName string
	Grouped  bool
}

// Applied counts the artifacts written by Apply.
type Applied struct {
	Written int
	Failed  int
}

// Apply writes every category artifact of res, then registers the written
// ones in the parent list. With grouping the per playlist sub-list is
// created on first use and anchored once in bouquets.tv.
func (w *Writer) Apply(ctx context.Context, t Target, res Result) (Applied, error) {
	logger := xglog.WithComponentFromContext(ctx, "bouquet")
	var applied Applied
	if res.Empty() {
		return applied, nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return applied, fmt.Errorf("%w: create %s: %v", ErrArtifactWrite, w.dir, err)
	}

	var lines []string
	for i, c := range res.Categories {
		path := filepath.Join(w.dir, c.File)
		if err := fsutil.WriteFileAtomic(ctx, path, []byte(c.Content())); err != nil {
			applied.Failed++
			metrics.IncArtifactWriteError("bouquet")
			logger.Error().Err(err).
				Str(xglog.FieldEvent, "bouquet.write_failed").
				Str(xglog.FieldPath, c.File).
				Msg("category artifact not written")
			continue
		}
		applied.Written++
		lines = append(lines, res.ParentLines[i])
	}
	if len(lines) == 0 {
		return applied, fmt.Errorf("%w: no %s category written", ErrArtifactWrite, res.Kind)
	}

	parent := naming.BouquetsTV
	var header string
	if t.Grouped {
		group := naming.GroupFile(t.SafeName)
		if err := w.ensureLine(ctx, naming.BouquetsTV, group, naming.FromBouquet(group)); err != nil {
			metrics.IncArtifactWriteError("parent")
			return applied, err
		}
		parent = group
		header = "#NAME " + t.Name + "\n"
	}
	if err := w.appendLines(ctx, parent, header, lines); err != nil {
		metrics.IncArtifactWriteError("parent")
		return applied, err
	}

	logger.Info().
		Str(xglog.FieldEvent, "bouquet.applied").
		Str(xglog.FieldPlaylist, t.Name).
		Str(xglog.FieldKind, string(res.Kind)).
		Int("categories", applied.Written).
		Int("failed", applied.Failed).
		Msg("bouquet artifacts written")
	return applied, nil
}

// ensureLine appends line to file unless a line containing marker exists.
func (w *Writer) ensureLine(ctx context.Context, file, marker, line string) error {
	existing, err := w.readLines(file)
	if err != nil {
		return err
	}
	for _, l := range existing {
		if strings.Contains(l, marker) {
			return nil
		}
	}
	return w.writeLines(ctx, file, append(existing, strings.TrimSuffix(line, "\n")))
}

// appendLines adds lines to file. A missing file is created with header.
func (w *Writer) appendLines(ctx context.Context, file, header string, lines []string) error {
	existing, err := w.readLines(file)
	if err != nil {
		return err
	}
	if existing == nil && header != "" {
		existing = append(existing, strings.TrimSuffix(header, "\n"))
	}
	for _, l := range lines {
		existing = append(existing, strings.TrimSuffix(l, "\n"))
	}
	return w.writeLines(ctx, file, existing)
}

func (w *Writer) readLines(file string) ([]string, error) {
	f, err := os.Open(filepath.Join(w.dir, file))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrArtifactWrite, file, err)
	}
	defer func() { _ = f.Close() }()

	lines := []string{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64<<10), 4<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrArtifactWrite, file, err)
	}
	return lines, nil
}

func (w *Writer) writeLines(ctx context.Context, file string, lines []string) error {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	if err := fsutil.WriteFileAtomic(ctx, filepath.Join(w.dir, file), []byte(b.String())); err != nil {
		return fmt.Errorf("%w: %v", ErrArtifactWrite, err)
	}
	return nil
}

// Purge removes every line and file that belongs to the playlist. others
// are the safe names of the remaining playlists; anything that belongs to
// one of them is kept even when it also matches safeName.
func (w *Writer) Purge(ctx context.Context, safeName string, others ...string) ([]string, error) {
	patterns := naming.ReservedPatterns(safeName)
	candidates := append([]string{safeName}, others...)
	owned := func(s string) bool {
		return containsAny(s, patterns) && naming.Owner(s, candidates) == safeName
	}

	lines, err := w.readLines(naming.BouquetsTV)
	if err != nil {
		return nil, err
	}
	if lines != nil {
		kept := lines[:0]
		for _, l := range lines {
			if !owned(l) {
				kept = append(kept, l)
			}
		}
		if err := w.writeLines(ctx, naming.BouquetsTV, kept); err != nil {
			return nil, err
		}
	}

	removed, err := fsutil.PurgeFunc(w.dir, owned)
	if err != nil {
		return removed, fmt.Errorf("%w: %v", ErrArtifactWrite, err)
	}
	return removed, nil
}

func containsAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}
