// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package picons downloads channel logos and normalizes them into fixed
// size PNG picons.
package picons

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/bouquetmaker/internal/fsutil"
	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/metrics"
	"github.com/ManuGH/bouquetmaker/internal/telemetry"
	"github.com/panjf2000/ants/v2"
	"github.com/puzpuzpuz/xsync/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/ratelimit"
)

// ErrOutputDir is fatal for a batch: the picon directory cannot be created.
var ErrOutputDir = errors.New("picon output directory unavailable")

// Item outcomes reported to metrics and Stats.
const (
	OutcomeWritten   = "written"
	OutcomeExists    = "exists"
	OutcomeBlocked   = "blocked"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Config configures the coordinator.
type Config struct {
	Dir        string
	Size       string
	BitDepth   string
	Overwrite  bool
	MaxSize    int64
	MaxWidth   int
	MaxThreads int
	// RatePerSecond paces downloads across workers; zero is unlimited.
	RatePerSecond int
	UserAgent     string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Item is one channel logo to fetch. Key names the output file.
type Item struct {
	Key string
	URL string
}

// Coordinator runs picon batches. The URL blocklist lives as long as the
// coordinator, so use one coordinator per run.
type Coordinator struct {
	cfg     Config
	client  *http.Client
	limiter ratelimit.Limiter
	blocked *xsync.MapOf[string, struct{}]
}

// NewCoordinator applies defaults to cfg.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.MaxThreads <= 0 {
		cfg.MaxThreads = 10
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.BitDepth == "" {
		cfg.BitDepth = Depth32
	}
	client := cfg.HTTPClient
	if client == nil {
		client = newHTTPClient(cfg.Timeout)
	}
	limiter := ratelimit.NewUnlimited()
	if cfg.RatePerSecond > 0 {
		limiter = ratelimit.New(cfg.RatePerSecond)
	}
	return &Coordinator{
		cfg:     cfg,
		client:  client,
		limiter: limiter,
		blocked: xsync.NewMapOf[string, struct{}](),
	}
}

// Stats counts item outcomes of a batch.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Written   int `json:"written"`
	Exists    int `json:"exists"`
	Blocked   int `json:"blocked"`
	Rejected  int `json:"rejected"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Batch tracks one submission.
type Batch struct {
	total     int
	completed atomic.Int64
	done      chan struct{}
	doneOnce  sync.Once
	released  chan struct{}

	mu     sync.Mutex
	counts map[string]int
}

func newBatch(total int) *Batch {
	return &Batch{
		total:    total,
		done:     make(chan struct{}),
		released: make(chan struct{}),
		counts:   make(map[string]int),
	}
}

// Done is closed once, after the last item completed.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until the batch completed and its workers exited.
func (b *Batch) Wait(ctx context.Context) error {
	select {
	case <-b.released:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Progress returns completed and total item counts.
func (b *Batch) Progress() (int, int) { return int(b.completed.Load()), b.total }

// Stats returns a snapshot of the outcome counters.
func (b *Batch) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Total:     b.total,
		Completed: int(b.completed.Load()),
		Written:   b.counts[OutcomeWritten],
		Exists:    b.counts[OutcomeExists],
		Blocked:   b.counts[OutcomeBlocked],
		Rejected:  b.counts[OutcomeRejected],
		Failed:    b.counts[OutcomeFailed],
		Cancelled: b.counts[OutcomeCancelled],
	}
}

// complete is the single aggregation point for finished items.
func (b *Batch) complete(outcome string) {
	b.mu.Lock()
	b.counts[outcome]++
	b.mu.Unlock()
	metrics.IncPiconFetch(outcome)
	metrics.AddPiconInflight(-1)

	if int(b.completed.Add(1)) == b.total {
		b.finish()
	}
}

func (b *Batch) finish() {
	b.doneOnce.Do(func() { close(b.done) })
}

// Submit starts a batch. Items are processed by min(len(items), MaxThreads)
// workers; Submit returns immediately. Only an unusable output directory
// fails the whole batch.
func (c *Coordinator) Submit(ctx context.Context, items []Item) (*Batch, error) {
	if err := os.MkdirAll(c.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOutputDir, err)
	}

	b := newBatch(len(items))
	if len(items) == 0 {
		b.finish()
		close(b.released)
		return b, nil
	}

	workers := min(len(items), c.cfg.MaxThreads)
	pool, err := ants.NewPool(workers, ants.WithDisablePurge(true))
	if err != nil {
		return nil, fmt.Errorf("create picon pool: %w", err)
	}
	metrics.AddPiconInflight(len(items))

	ctx, span := telemetry.Tracer("bouquetmaker.picons").Start(ctx, "bouquetmaker.picons.batch",
		trace.WithAttributes(telemetry.PiconBatchAttributes(len(items), workers)...))
	logger := xglog.WithComponentFromContext(ctx, "picons")
	logger.Info().
		Str(xglog.FieldEvent, "picons.batch_started").
		Int("items", len(items)).
		Int("workers", workers).
		Msg("picon batch started")

	go func() {
		defer close(b.released)
		for _, it := range items {
			task := func() {
				outcome := OutcomeFailed
				defer func() { b.complete(outcome) }()
				outcome = c.process(ctx, it)
			}
			if err := pool.Submit(task); err != nil {
				b.complete(OutcomeFailed)
			}
		}
		<-b.done
		_ = pool.ReleaseTimeout(10 * time.Second)

		st := b.Stats()
		span.SetAttributes(attribute.Int("picon."+OutcomeWritten, st.Written), attribute.Int("picon."+OutcomeFailed, st.Failed))
		span.End()
		logger.Info().
			Str(xglog.FieldEvent, "picons.batch_finished").
			Int("written", st.Written).
			Int("exists", st.Exists).
			Int("blocked", st.Blocked).
			Int("rejected", st.Rejected).
			Int("failed", st.Failed).
			Msg("picon batch finished")
	}()
	return b, nil
}

// Blocked reports whether url failed earlier in this coordinator's lifetime.
func (c *Coordinator) Blocked(url string) bool {
	_, ok := c.blocked.Load(url)
	return ok
}

func (c *Coordinator) process(ctx context.Context, it Item) string {
	if ctx.Err() != nil {
		return OutcomeCancelled
	}
	logger := xglog.WithComponentFromContext(ctx, "picons")
	path := filepath.Join(c.cfg.Dir, it.Key+".png")
	if !c.cfg.Overwrite {
		if _, err := os.Stat(path); err == nil {
			return OutcomeExists
		}
	}

	url := RewriteURL(it.URL)
	if c.Blocked(url) {
		return OutcomeBlocked
	}

	c.limiter.Take()
	data, err := download(ctx, c.client, c.cfg.UserAgent, url, c.cfg.MaxSize)
	if err != nil {
		if ctx.Err() != nil {
			return OutcomeCancelled
		}
		logger.Debug().Err(err).Str(xglog.FieldURL, url).Str("key", it.Key).Msg("picon fetch failed")
		if blocklisted(err) {
			c.blocked.Store(url, struct{}{})
			return OutcomeBlocked
		}
		return OutcomeRejected
	}

	img, err := Normalize(data, NormalizeOptions{Size: Dimensions(c.cfg.Size), MaxWidth: c.cfg.MaxWidth})
	if err != nil {
		logger.Debug().Err(err).Str(xglog.FieldURL, url).Msg("picon source rejected")
		return OutcomeRejected
	}
	if err := c.write(ctx, path, img); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldPath, path).Msg("picon not written")
		metrics.IncArtifactWriteError("picon")
		return OutcomeFailed
	}
	return OutcomeWritten
}

func (c *Coordinator) write(ctx context.Context, path string, img *image.NRGBA) error {
	return fsutil.WriteAtomic(ctx, path, func(w io.Writer) error {
		return Encode(w, img, c.cfg.BitDepth)
	})
}
