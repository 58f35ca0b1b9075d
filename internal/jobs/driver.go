// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package jobs drives bouquet builds: a staged state machine that walks
// every selected playlist through fetch, compile and write.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/bouquet"
	"github.com/ManuGH/bouquetmaker/internal/catalog"
	"github.com/ManuGH/bouquetmaker/internal/history"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/m3u"
	"github.com/ManuGH/bouquetmaker/internal/metrics"
	"github.com/ManuGH/bouquetmaker/internal/naming"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
	"github.com/ManuGH/bouquetmaker/internal/sref"
	"github.com/ManuGH/bouquetmaker/internal/telemetry"
	"github.com/ManuGH/bouquetmaker/internal/xtream"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Stage names one step of the state machine.
type Stage string

// Stages in execution order.
const (
	StageInit             Stage = "init"
	StageDeleteExisting   Stage = "delete_existing_refs"
	StageBuildURLList     Stage = "build_url_list"
	StageDownload         Stage = "download"
	StageDownloadExternal Stage = "download_external"
	StageLoadLocal        Stage = "load_local"
	StageProcess          Stage = "process"
	StageLoad             Stage = "load"
	StageFinished         Stage = "finished"
	StageDone             Stage = "done"
)

// ErrNoPlaylists is returned by Init when the store cannot be read.
var ErrNoPlaylists = errors.New("playlists unavailable")

type task struct {
	stage Stage
	// pos indexes Build.selected.
	pos  int
	kind catalog.Kind
}

// runState is the context of the playlist currently being built.
type runState struct {
	index     int
	playlist  playlists.Playlist
	safe      string
	uniqueRef int
	endpoints xtream.Endpoints
	grouped   bool
	catchup   bouquet.Catchup

	snapshots map[catalog.Kind]catalog.Snapshot
	episodes  map[string][]xtream.Episode
	results   map[catalog.Kind]bouquet.Result

	totalCount int
	value      int
	rng        int
}

// Build is one bouquet run. Step and Run must be called from a single goroutine;
// Progress is safe for concurrent use.
type Build struct {
	id   string
	deps Deps
	opts Options

	all      []playlists.Playlist
	selected []int
	queue    []task
	state    *runState

	started    time.Time
	built      []string
	categories int
	failed     error

	mu       sync.Mutex
	progress Progress
	finished bool
}

// NewBuild prepares a build. Nothing happens until Step or Run is called.
func NewBuild(deps Deps, opts Options) *Build {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	id := uuid.NewString()
	r := &Build{
		id:    id,
		deps:  deps,
		opts:  opts,
		queue: []task{{stage: StageInit}},
	}
	r.progress = Progress{RunID: id, Stage: StageInit}
	return r
}

// ID returns the run id.
func (r *Build) ID() string { return r.id }

// Progress returns the latest progress snapshot.
func (r *Build) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Finished reports whether the Done stage ran.
func (r *Build) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

// Run executes stages until the queue drains. Cancellation is checked
// between stages only; a stage in flight always completes.
func (r *Build) Run(ctx context.Context) error {
	ctx = xglog.ContextWithRunID(ctx, r.id)
	for {
		if err := ctx.Err(); err != nil {
			r.abort(ctx, history.StatusCancelled, err)
			return err
		}
		more, err := r.Step(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
		if r.opts.StageDelay > 0 {
			t := time.NewTimer(r.opts.StageDelay)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
	}
}

// Step runs exactly one stage and reports whether more stages are queued.
func (r *Build) Step(ctx context.Context) (bool, error) {
	if len(r.queue) == 0 {
		return false, nil
	}
	t := r.queue[0]
	r.queue = r.queue[1:]

	ctx = xglog.ContextWithRunID(ctx, r.id)
	playlistName := r.playlistFor(t)
	if playlistName != "" {
		ctx = xglog.ContextWithPlaylist(ctx, playlistName)
	}
	ctx, span := telemetry.Tracer("bouquetmaker.jobs").Start(ctx, "bouquetmaker.stage."+string(t.stage),
		trace.WithAttributes(telemetry.StageAttributes(playlistName, string(t.stage), string(t.kind))...))
	defer span.End()

	start := r.deps.Clock()
	err := r.exec(ctx, t)
	metrics.ObserveStage(string(t.stage), r.deps.Clock().Sub(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.abort(ctx, history.StatusFailed, err)
		return false, err
	}
	r.publish(t)
	return len(r.queue) > 0, nil
}

func (r *Build) push(t task) { r.queue = append(r.queue, t) }

// playlistFor names the playlist a per-playlist stage works on.
func (r *Build) playlistFor(t task) string {
	if t.stage == StageInit || t.stage == StageDone || t.pos >= len(r.selected) {
		return ""
	}
	return r.all[r.selected[t.pos]].Info.Name
}

func (r *Build) exec(ctx context.Context, t task) error {
	switch t.stage {
	case StageInit:
		return r.init(ctx)
	case StageDeleteExisting:
		return r.deleteExisting(ctx, t.pos)
	case StageBuildURLList:
		r.buildURLList(ctx, t.pos)
	case StageDownload:
		r.download(ctx, t.pos, t.kind)
	case StageDownloadExternal:
		r.downloadExternal(ctx, t.pos)
	case StageLoadLocal:
		r.loadLocal(ctx, t.pos)
	case StageProcess:
		r.process(ctx, t.pos, t.kind)
	case StageLoad:
		r.load(ctx, t.pos, t.kind)
	case StageFinished:
		r.finishPlaylist(ctx, t.pos)
	case StageDone:
		r.done(ctx)
	default:
		return fmt.Errorf("unknown stage %q", t.stage)
	}
	return nil
}

func (r *Build) init(ctx context.Context) error {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	r.started = r.deps.Clock()

	all, err := r.deps.Store.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoPlaylists, err)
	}
	r.all = all
	r.selected = selectPlaylists(ctx, all, r.opts.Names)

	logger.Info().
		Str(xglog.FieldEvent, "build.start").
		Int("playlists", len(r.selected)).
		Str("trigger", r.opts.Trigger).
		Msg("bouquet build started")

	if len(r.selected) == 0 {
		r.push(task{stage: StageDone})
		return nil
	}
	r.push(task{stage: StageDeleteExisting, pos: 0})
	return nil
}

// otherSafeNames lists the safe names of every playlist except all[skip].
func otherSafeNames(all []playlists.Playlist, skip int) []string {
	out := make([]string, 0, len(all))
	for i, p := range all {
		if i != skip {
			out = append(out, naming.SafeName(p.Info.Name))
		}
	}
	return out
}

// selectPlaylists returns indexes of the playlists to build: the named ones,
// or every playlist that already has bouquets.
func selectPlaylists(ctx context.Context, all []playlists.Playlist, names []string) []int {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	var out []int
	if len(names) == 0 {
		for i, p := range all {
			if p.Info.Bouquet {
				out = append(out, i)
			}
		}
	} else {
		for _, name := range names {
			i, err := playlists.Find(all, name)
			if err != nil {
				logger.Warn().Err(err).Str(xglog.FieldPlaylist, name).Msg("playlist not found")
				continue
			}
			out = append(out, i)
		}
	}

	valid := out[:0]
	for _, i := range out {
		if err := validatePlaylist(all[i]); err != nil {
			logger.Warn().Err(err).
				Str(xglog.FieldEvent, "playlist.invalid").
				Str(xglog.FieldPlaylist, all[i].Info.Name).
				Msg("playlist skipped")
			continue
		}
		valid = append(valid, i)
	}
	return valid
}

func (r *Build) deleteExisting(ctx context.Context, pos int) error {
	idx := r.selected[pos]
	p := r.all[idx]
	st := &runState{
		index:     idx,
		playlist:  p,
		safe:      naming.SafeName(p.Info.Name),
		grouped:   r.opts.Groups,
		catchup:   r.opts.Catchup,
		snapshots: map[catalog.Kind]catalog.Snapshot{},
		results:   map[catalog.Kind]bouquet.Result{},
	}
	if p.Settings.Groups != nil {
		st.grouped = *p.Settings.Groups
	}
	if p.Settings.Catchup != nil {
		st.catchup.Enabled = *p.Settings.Catchup
	}
	kinds := len(p.EnabledKinds())
	if p.Type() == playlists.TypeXtream {
		st.rng = 2 * kinds
	} else {
		st.rng = 1 + kinds
	}
	r.state = st

	logger := xglog.WithComponentFromContext(ctx, "jobs")
	removed, err := r.deps.Writer.Purge(ctx, st.safe, otherSafeNames(r.all, idx)...)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "bouquet.purge_failed").Msg("existing bouquets not fully removed")
	}
	if r.deps.EPG != nil && r.deps.EPG.Available() {
		if err := r.deps.EPG.Remove(ctx, st.safe); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "epg.remove_failed").Msg("EPG source entry not removed")
		}
		epgRemoved, err := r.deps.EPG.Purge(st.safe)
		if err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "epg.purge_failed").Msg("EPG files not fully removed")
		}
		removed = append(removed, epgRemoved...)
	}
	logger.Debug().Str(xglog.FieldEvent, "stage.delete_existing").Int("removed", len(removed)).Msg("previous artifacts removed")

	r.push(task{stage: StageBuildURLList, pos: pos})
	return nil
}

func (r *Build) buildURLList(ctx context.Context, pos int) {
	st := r.state
	p := st.playlist
	st.uniqueRef = sref.UniqueRef(p.Info.FullURL)

	switch p.Type() {
	case playlists.TypeXtream:
		st.endpoints = xtream.EndpointsFor(p)
		if k, ok := nextKind(p, ""); ok {
			r.push(task{stage: StageDownload, pos: pos, kind: k})
			return
		}
		r.push(task{stage: StageFinished, pos: pos})
	case playlists.TypeExternal:
		r.push(task{stage: StageDownloadExternal, pos: pos})
	default:
		r.push(task{stage: StageLoadLocal, pos: pos})
	}
}

// nextKind returns the first enabled kind after prev in processing order.
func nextKind(p playlists.Playlist, prev catalog.Kind) (catalog.Kind, bool) {
	seen := prev == ""
	for _, k := range catalog.Kinds {
		if !seen {
			seen = k == prev
			continue
		}
		if p.Enabled(k) {
			return k, true
		}
	}
	return "", false
}

func (r *Build) download(ctx context.Context, pos int, kind catalog.Kind) {
	st := r.state
	logger := xglog.WithComponentFromContext(ctx, "jobs").With().
		Str(xglog.FieldKind, string(kind)).Logger()

	snap, err := r.deps.Fetcher.Snapshot(ctx, st.endpoints, kind)
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "provider.no_data").Msg("catalog fetch failed, continuing without data")
	}
	if len(snap.Categories) == 0 {
		snap = st.playlist.Cached(kind)
	}
	st.snapshots[kind] = snap
	st.value++

	if len(snap.Categories) == 0 {
		// Process and load are skipped for this kind.
		st.value++
		r.advance(pos, kind)
		return
	}

	if kind == catalog.Series {
		eps, err := r.deps.Fetcher.SeriesEpisodes(ctx, st.endpoints)
		switch {
		case errors.Is(err, xtream.ErrNoSimpleAPI):
			logger.Warn().Err(err).Str(xglog.FieldEvent, "provider.no_simple").Msg("provider has no simple listing, series skipped")
		case err != nil:
			logger.Warn().Err(err).Str(xglog.FieldEvent, "provider.no_data").Msg("series listing fetch failed")
		}
		st.episodes = xtream.GroupEpisodes(eps)
	}
	r.push(task{stage: StageProcess, pos: pos, kind: kind})
}

func (r *Build) downloadExternal(ctx context.Context, pos int) {
	st := r.state
	text, err := r.deps.Fetcher.External(ctx, st.playlist.Info.FullURL)
	if err != nil {
		xglog.WithComponentFromContext(ctx, "jobs").Warn().Err(err).
			Str(xglog.FieldEvent, "provider.no_data").
			Msg("external playlist download failed")
	}
	r.parsed(pos, text)
}

func (r *Build) loadLocal(ctx context.Context, pos int) {
	st := r.state
	text, err := xtream.LoadLocal(r.opts.LocalDir, st.playlist.Info.FullURL)
	if err != nil {
		xglog.WithComponentFromContext(ctx, "jobs").Warn().Err(err).
			Str(xglog.FieldEvent, "local.no_data").
			Msg("local playlist unreadable")
	}
	r.parsed(pos, text)
}

// parsed stores an M3U catalog and queues processing of its first kind.
func (r *Build) parsed(pos int, text string) {
	st := r.state
	cat := m3u.Catalog(m3u.Parse(text))
	for _, k := range catalog.Kinds {
		snap := cat.Get(k)
		if snap.Empty() {
			snap = st.playlist.Cached(k)
		}
		st.snapshots[k] = snap
	}
	st.value++
	r.advance(pos, "")
}

// advance queues the next kind. Xtream playlists download each kind on
// demand; M3U playlists were parsed up front.
func (r *Build) advance(pos int, prev catalog.Kind) {
	st := r.state
	p := st.playlist
	for {
		k, ok := nextKind(p, prev)
		if !ok {
			r.push(task{stage: StageFinished, pos: pos})
			return
		}
		if p.Type() == playlists.TypeXtream {
			r.push(task{stage: StageDownload, pos: pos, kind: k})
			return
		}
		if len(st.snapshots[k].Categories) > 0 {
			r.push(task{stage: StageProcess, pos: pos, kind: k})
			return
		}
		st.value++
		prev = k
	}
}

func (r *Build) process(ctx context.Context, pos int, kind catalog.Kind) {
	st := r.state
	res := bouquet.Compile(bouquet.Input{
		Kind:      kind,
		Playlist:  st.playlist,
		SafeName:  st.safe,
		UniqueRef: st.uniqueRef,
		Snapshot:  st.snapshots[kind],
		Endpoints: st.endpoints,
		Episodes:  st.episodes,
		Grouped:   st.grouped,
		Catchup:   st.catchup,
	})
	st.results[kind] = res
	for reason, n := range res.Skipped {
		metrics.AddStreamsSkipped(string(kind), reason, n)
	}
	xglog.WithComponentFromContext(ctx, "jobs").Debug().
		Str(xglog.FieldEvent, "stage.process").
		Str(xglog.FieldKind, string(kind)).
		Int("categories", len(res.Categories)).
		Int("kept", res.Kept).
		Msg("catalog compiled")
	r.push(task{stage: StageLoad, pos: pos, kind: kind})
}

func (r *Build) load(ctx context.Context, pos int, kind catalog.Kind) {
	st := r.state
	p := st.playlist
	logger := xglog.WithComponentFromContext(ctx, "jobs").With().
		Str(xglog.FieldKind, string(kind)).Logger()

	res := st.results[kind]
	applied, err := r.deps.Writer.Apply(ctx, bouquet.Target{Name: p.Info.Name, SafeName: st.safe, Grouped: st.grouped}, res)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "bouquet.apply_failed").Msg("bouquet artifacts not fully written")
	}
	trace.SpanFromContext(ctx).SetAttributes(telemetry.AppliedAttributes(applied.Written, res.Kept)...)
	st.totalCount += applied.Written
	r.categories += applied.Written
	metrics.RecordCategoriesWritten(p.Info.Name, string(kind), applied.Written)

	if kind == catalog.Live && p.Type() == playlists.TypeXtream {
		r.writeEPG(ctx, res)
	}
	delete(st.results, kind)

	st.value++
	r.advance(pos, kind)
}

// writeEPG registers the playlist with EPG-Import and writes its channel
// mapping. Failures never affect the bouquets.
func (r *Build) writeEPG(ctx context.Context, res bouquet.Result) {
	st := r.state
	epg := r.deps.EPG
	url := st.playlist.XMLTVURL()
	if epg == nil || !epg.Available() || url == "" || res.Empty() {
		return
	}
	logger := xglog.WithComponentFromContext(ctx, "jobs")

	path := epg.ChannelsPath(st.safe)
	if err := epg.Upsert(ctx, st.safe, path, url); err != nil {
		metrics.IncArtifactWriteError("epg_sources")
		logger.Warn().Err(err).Str(xglog.FieldEvent, "epg.sources_failed").Msg("EPG source not registered")
	}
	if err := epg.WriteChannels(ctx, path, res.Channels); err != nil {
		metrics.IncArtifactWriteError("epg_channels")
		logger.Warn().Err(err).Str(xglog.FieldEvent, "epg.channels_failed").Str(xglog.FieldPath, path).Msg("EPG channels not written")
	}
}

func (r *Build) finishPlaylist(ctx context.Context, pos int) {
	st := r.state
	p := &r.all[st.index]
	p.ClearCache()
	p.Info.Bouquet = true
	r.built = append(r.built, p.Info.Name)

	if err := r.deps.Store.Save(ctx, r.all); err != nil {
		metrics.IncArtifactWriteError("playlists")
		r.fail(ctx, fmt.Errorf("save playlists: %w", err))
	}
	xglog.WithComponentFromContext(ctx, "jobs").Info().
		Str(xglog.FieldEvent, "playlist.finished").
		Int("categories", st.totalCount).
		Msg("playlist bouquets built")

	if pos+1 < len(r.selected) {
		r.push(task{stage: StageDeleteExisting, pos: pos + 1})
		return
	}
	r.push(task{stage: StageDone})
}

func (r *Build) done(ctx context.Context) {
	logger := xglog.WithComponentFromContext(ctx, "jobs")
	if len(r.selected) > 0 {
		if err := r.deps.Store.Save(ctx, r.all); err != nil {
			metrics.IncArtifactWriteError("playlists")
			r.fail(ctx, fmt.Errorf("save playlists: %w", err))
		}
	}
	if r.deps.Refresher != nil {
		if err := r.deps.Refresher.ReloadServices(ctx); err != nil {
			logger.Warn().Err(err).Str(xglog.FieldEvent, "openwebif.reload_failed").Msg("receiver did not reload service lists")
		}
	}

	status := history.StatusSuccess
	if r.failed != nil {
		status = history.StatusFailed
	}
	r.record(ctx, status, r.failed)

	r.mu.Lock()
	r.finished = true
	r.mu.Unlock()
	logger.Info().
		Str(xglog.FieldEvent, "build.done").
		Int("playlists", len(r.built)).
		Int("categories", r.categories).
		Msg("bouquet build finished")
}

// fail remembers the first non-fatal error; the run continues.
func (r *Build) fail(ctx context.Context, err error) {
	xglog.WithComponentFromContext(ctx, "jobs").Error().Err(err).Msg("build step failed")
	if r.failed == nil {
		r.failed = err
	}
}

// abort ends the run early and records it.
func (r *Build) abort(ctx context.Context, status string, err error) {
	r.queue = nil
	r.record(ctx, status, err)
	r.mu.Lock()
	r.progress.Done = true
	r.progress.Error = err.Error()
	r.finished = true
	r.mu.Unlock()
	r.notify()
}

func (r *Build) record(ctx context.Context, status string, err error) {
	now := r.deps.Clock()
	d := now.Sub(r.started)
	if r.started.IsZero() {
		d = 0
	}
	metrics.RecordBuild(status, d)
	if r.deps.History == nil {
		return
	}
	run := history.Run{
		ID:         r.id,
		Trigger:    r.opts.Trigger,
		StartedAt:  r.started,
		FinishedAt: now,
		Playlists:  r.built,
		Categories: r.categories,
		Status:     status,
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if err != nil {
		run.Error = err.Error()
	}
	if _, herr := r.deps.History.Record(context.WithoutCancel(ctx), run); herr != nil {
		xglog.WithComponentFromContext(ctx, "jobs").Warn().Err(herr).Msg("run history not recorded")
	}
}

func (r *Build) publish(t task) {
	r.mu.Lock()
	p := Progress{
		RunID:      r.id,
		Playlists:  len(r.selected),
		Stage:      t.stage,
		Kind:       t.kind,
		Categories: r.categories,
		Done:       t.stage == StageDone,
	}
	if r.state != nil && t.stage != StageInit {
		p.Playlist = r.state.playlist.Info.Name
		p.Position = t.pos + 1
		p.Value = min(r.state.value, r.state.rng)
		p.Range = r.state.rng
	}
	if r.failed != nil {
		p.Error = r.failed.Error()
	}
	r.progress = p
	r.mu.Unlock()
	r.notify()
}

func (r *Build) notify() {
	if r.deps.Observer != nil {
		r.deps.Observer.OnProgress(r.Progress())
	}
}
