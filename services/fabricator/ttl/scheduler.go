// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ttl runs the periodic session sweep for the fabricator service.
package ttl

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SweepFunc removes sessions older than maxAge and returns how many were
// removed.
//
// # Description
//
// Decouples the scheduler from the concrete session store, allowing unit
// tests to inject counting stubs.
//
// # Inputs
//
//   - maxAge: Sessions older than this are eligible for removal.
//
// # Outputs
//
//   - int: Number of sessions removed.
type SweepFunc func(maxAge time.Duration) int

// Scheduler periodically invokes a SweepFunc.
//
// # Description
//
// Runs the sweep on a fixed interval until the context is cancelled or Stop
// is called. Sessions busy with an in-flight generation are the store's
// responsibility to skip; the scheduler only drives timing.
//
// # Fields
//
//   - interval: Time between sweeps.
//   - maxAge: Age threshold passed to the sweep.
//   - sweep: The sweep implementation.
//
// # Thread Safety
//
// Start and Stop are safe to call from different goroutines. Start must be
// called at most once.
type Scheduler struct {
	interval time.Duration
	maxAge   time.Duration
	sweep    SweepFunc

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a sweep scheduler.
//
// # Inputs
//
//   - interval: Time between sweeps. Must be positive.
//   - maxAge: Session age threshold.
//   - sweep: The sweep implementation.
//
// # Outputs
//
//   - *Scheduler: Not yet running; call Start.
func NewScheduler(interval, maxAge time.Duration, sweep SweepFunc) *Scheduler {
	return &Scheduler{
		interval: interval,
		maxAge:   maxAge,
		sweep:    sweep,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("ttl.scheduler: starting",
		"interval", s.interval.String(),
		"max_age", s.maxAge.String(),
	)
	go s.run(ctx)
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("ttl.scheduler: context cancelled, stopping")
			return
		case <-s.stop:
			slog.Info("ttl.scheduler: stopped")
			return
		case <-ticker.C:
			removed := s.sweep(s.maxAge)
			if removed > 0 {
				slog.Info("ttl.scheduler: sweep complete", "removed", removed)
			} else {
				slog.Debug("ttl.scheduler: sweep complete, nothing expired")
			}
		}
	}
}
