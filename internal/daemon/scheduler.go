// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"time"

	xglog "github.com/ManuGH/bouquetmaker/internal/log"
	"github.com/rs/zerolog"
)

// Schedule is the daily build setting read before every wait.
type Schedule struct {
	Enabled bool
	Wakeup  string // "HH:MM" local time
}

// Scheduler fires a callback once a day at the configured wall-clock time.
type Scheduler struct {
	schedule func() Schedule
	fire     func(ctx context.Context)
	reset    chan struct{}
	logger   zerolog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewScheduler creates a scheduler. schedule is consulted each time the
// next run is planned, so a reload followed by Reset takes effect at once.
func NewScheduler(schedule func() Schedule, fire func(ctx context.Context)) *Scheduler {
	return &Scheduler{
		schedule: schedule,
		fire:     fire,
		reset:    make(chan struct{}, 1),
		logger:   xglog.WithComponent("scheduler"),
		now:      time.Now,
		after:    time.After,
	}
}

// Reset makes a waiting scheduler plan again.
func (s *Scheduler) Reset() {
	select {
	case s.reset <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		sched := s.schedule()
		var wait <-chan time.Time
		if sched.Enabled {
			next, err := NextRun(s.now(), sched.Wakeup)
			if err != nil {
				s.logger.Warn().Err(err).Msg("invalid wakeup time, scheduled builds paused")
			} else {
				s.logger.Info().
					Str(xglog.FieldEvent, "schedule.planned").
					Time("next_run", next).
					Msg("next scheduled build planned")
				wait = s.after(next.Sub(s.now()))
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.reset:
		case <-wait:
			s.fire(ctx)
		}
	}
}

// NextRun returns the first occurrence of wakeup strictly after now, in
// now's location.
func NextRun(now time.Time, wakeup string) (time.Time, error) {
	t, err := time.Parse("15:04", wakeup)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse wakeup %q: %w", wakeup, err)
	}
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
