// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ttl

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerInvokesSweep(t *testing.T) {
	var calls atomic.Int64
	var gotMaxAge atomic.Int64
	sweep := func(maxAge time.Duration) int {
		calls.Add(1)
		gotMaxAge.Store(int64(maxAge))
		return 1
	}

	s := NewScheduler(10*time.Millisecond, 24*time.Hour, sweep)
	s.Start(context.Background())

	deadline := time.After(2 * time.Second)
	for calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("sweep was not invoked within deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
	s.Stop()

	if got := time.Duration(gotMaxAge.Load()); got != 24*time.Hour {
		t.Errorf("sweep received maxAge %v, want 24h", got)
	}
}

func TestSchedulerStopHaltsSweeping(t *testing.T) {
	var calls atomic.Int64
	s := NewScheduler(5*time.Millisecond, time.Hour, func(time.Duration) int {
		calls.Add(1)
		return 0
	})
	s.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	after := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != after {
		t.Error("sweep continued after Stop")
	}
}

func TestSchedulerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(5*time.Millisecond, time.Hour, func(time.Duration) int { return 0 })
	s.Start(ctx)
	cancel()

	// The loop must exit; Stop would hang otherwise.
	exited := make(chan struct{})
	go func() {
		s.Stop()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not exit on context cancellation")
	}
}
