// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/ManuGH/bouquetmaker/internal/picons"
	"github.com/ManuGH/bouquetmaker/internal/playlists"
)

// ErrRunning is returned when a build or picon batch is already in flight.
var ErrRunning = errors.New("job already running")

// Manager owns at most one build and one picon batch at a time for the
// daemon. It is safe for concurrent use.
type Manager struct {
	base context.Context
	lock Locker

	mu      sync.Mutex
	deps    Deps
	current *Build
	cancel  context.CancelFunc
	last    Progress
	batch   *picons.Batch

	// preparing holds the picon slot while items are being collected.
	preparing bool
	wg        sync.WaitGroup
}

// NewManager returns a manager whose jobs are bound to base; cancelling
// base stops them at the next stage boundary.
func NewManager(base context.Context, deps Deps, lock Locker) *Manager {
	return &Manager{base: base, deps: deps, lock: lock}
}

// SetDeps swaps the collaborators used by later jobs, e.g. after a
// configuration reload. A running build keeps its own.
func (m *Manager) SetDeps(deps Deps) {
	m.mu.Lock()
	m.deps = deps
	m.mu.Unlock()
}

// Start launches a build in the background and returns its run id.
func (m *Manager) Start(opts Options) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return "", ErrRunning
	}

	var unlock func()
	if m.lock != nil {
		u, err := m.lock.TryLock()
		if err != nil {
			return "", err
		}
		unlock = u
	}

	deps := m.deps
	prev := deps.Observer
	deps.Observer = ObserverFunc(func(p Progress) {
		m.mu.Lock()
		m.last = p
		m.mu.Unlock()
		if prev != nil {
			prev.OnProgress(p)
		}
	})

	b := NewBuild(deps, opts)
	ctx, cancel := context.WithCancel(m.base)
	m.current = b
	m.cancel = cancel
	m.last = b.Progress()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		if unlock != nil {
			defer unlock()
		}
		err := b.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			xglog.WithComponentFromContext(ctx, "jobs").Error().Err(err).Str(xglog.FieldRunID, b.ID()).Msg("build failed")
		}
		m.mu.Lock()
		m.last = b.Progress()
		m.current = nil
		m.cancel = nil
		m.mu.Unlock()
	}()
	return b.ID(), nil
}

// Cancel asks the running build to stop after its current stage.
func (m *Manager) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel == nil {
		return false
	}
	m.cancel()
	return true
}

// Running reports whether a build is in flight.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Progress returns the running build's progress, or the last one seen.
func (m *Manager) Progress() Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return m.current.Progress()
	}
	return m.last
}

// StartPicons submits the logos of the named playlist to a fresh
// coordinator. Only one batch runs at a time: the slot is taken before the
// catalog is fetched, so a concurrent call gets ErrRunning.
func (m *Manager) StartPicons(ctx context.Context, name string, cfg picons.Config, localDir string) (*picons.Batch, error) {
	m.mu.Lock()
	if m.preparing || m.batchRunning() {
		m.mu.Unlock()
		return nil, ErrRunning
	}
	m.preparing = true
	deps := m.deps
	m.mu.Unlock()

	batch, err := submitPicons(ctx, m.base, deps, name, cfg, localDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.preparing = false
	if err != nil {
		return nil, err
	}
	m.batch = batch
	return batch, nil
}

// batchRunning must be called with mu held.
func (m *Manager) batchRunning() bool {
	if m.batch == nil {
		return false
	}
	select {
	case <-m.batch.Done():
		return false
	default:
		return true
	}
}

func submitPicons(ctx, base context.Context, deps Deps, name string, cfg picons.Config, localDir string) (*picons.Batch, error) {
	all, err := deps.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoPlaylists, err)
	}
	i, err := playlists.Find(all, name)
	if err != nil {
		return nil, err
	}
	items, err := PiconItems(ctx, deps.Fetcher, all[i], localDir)
	if err != nil {
		return nil, err
	}
	return picons.NewCoordinator(cfg).Submit(base, items)
}

// Picons returns the latest picon batch, nil when none was submitted.
func (m *Manager) Picons() *picons.Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batch
}

// Wait blocks until the running build has returned.
func (m *Manager) Wait() { m.wg.Wait() }
