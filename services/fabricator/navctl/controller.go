// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package navctl implements the host-side navigation state machine that sits
// between a rendering surface and the generation engine.
//
// # Description
//
// Each surface connection gets one Controller. Navigate drives the machine
// through Idle -> Loading -> Rendered | Failed; the reserved end path ends
// the session instead of generating a page. Requests for a path already in
// flight are absorbed rather than duplicated, and a fetch that completes
// after the user has navigated elsewhere fills the local cache without
// flipping the visible state.
//
// # Thread Safety
//
// Controller is safe for concurrent use. Observer callbacks are invoked
// outside the internal lock, one at a time per state change.
package navctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the controller's visible rendering state.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateRendered
	StateFailed
	StateEnded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRendered:
		return "rendered"
	case StateFailed:
		return "failed"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// ErrNavTimeout marks a navigation that exceeded the controller's timeout.
var ErrNavTimeout = errors.New("navigation timed out")

// DefaultTimeout bounds how long a navigation may wait for its page.
const DefaultTimeout = 30 * time.Second

// DefaultEndPath is the reserved path that ends the session.
const DefaultEndPath = "/end"

// Event describes one state change.
type Event struct {
	State State
	Path  string

	// HTML is set on Rendered events.
	HTML string

	// Err is set on Failed events.
	Err error
}

// PageFetcher produces the document for a path. The context carries the
// navigation timeout.
type PageFetcher func(ctx context.Context, path string) (string, error)

// Controller is the per-connection navigation state machine.
type Controller struct {
	mu       sync.Mutex
	fetch    PageFetcher
	notify   func(Event)
	timeout  time.Duration
	endPath  string
	onEnd    func()
	cache    map[string]string
	inflight map[string]struct{}

	state       State
	currentPath string
	lastErr     error
	visited     []string
	ended       bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithTimeout overrides the navigation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithEndPath overrides the reserved end-session path.
func WithEndPath(path string) Option {
	return func(c *Controller) { c.endPath = path }
}

// WithObserver registers the state-change callback. Events are delivered
// outside the controller lock, so the observer may call back in.
func WithObserver(notify func(Event)) Option {
	return func(c *Controller) { c.notify = notify }
}

// WithEndHook registers a callback invoked once when the session ends.
func WithEndHook(onEnd func()) Option {
	return func(c *Controller) { c.onEnd = onEnd }
}

// NewController creates a controller in the Idle state.
func NewController(fetch PageFetcher, opts ...Option) *Controller {
	c := &Controller{
		fetch:    fetch,
		timeout:  DefaultTimeout,
		endPath:  DefaultEndPath,
		cache:    make(map[string]string),
		inflight: make(map[string]struct{}),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Navigate requests the page at path.
//
// # Description
//
// The end path ends the session. A locally cached path renders immediately.
// A path already being fetched is absorbed: the caller shares the pending
// fetch's outcome. Otherwise the fetch starts in the background and the
// controller reports Loading.
func (c *Controller) Navigate(path string) {
	c.mu.Lock()
	if c.ended {
		c.mu.Unlock()
		return
	}

	if path == c.endPath {
		c.ended = true
		c.state = StateEnded
		onEnd := c.onEnd
		c.mu.Unlock()
		slog.Info("navctl: session ended by navigation", "path", path)
		c.emit(Event{State: StateEnded, Path: path})
		if onEnd != nil {
			onEnd()
		}
		return
	}

	c.currentPath = path

	if html, ok := c.cache[path]; ok {
		c.state = StateRendered
		c.lastErr = nil
		c.visited = append(c.visited, path)
		c.mu.Unlock()
		c.emit(Event{State: StateRendered, Path: path, HTML: html})
		return
	}

	if _, busy := c.inflight[path]; busy {
		c.state = StateLoading
		c.mu.Unlock()
		return
	}

	c.inflight[path] = struct{}{}
	c.state = StateLoading
	c.mu.Unlock()

	c.emit(Event{State: StateLoading, Path: path})
	go c.load(path)
}

// Retry re-issues the last failed navigation. It is a no-op in any other
// state.
func (c *Controller) Retry() {
	c.mu.Lock()
	if c.state != StateFailed {
		c.mu.Unlock()
		return
	}
	path := c.currentPath
	c.mu.Unlock()
	slog.Info("navctl: retrying failed navigation", "path", path)
	c.Navigate(path)
}

// State returns the current rendering state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentPath returns the most recently requested path.
func (c *Controller) CurrentPath() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPath
}

// LastError returns the error of the most recent failure, if the controller
// is in the Failed state.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Visited returns the paths rendered so far, in order.
func (c *Controller) Visited() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.visited...)
}

func (c *Controller) emit(ev Event) {
	if c.notify != nil {
		c.notify(ev)
	}
}

func (c *Controller) load(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	html, err := c.fetch(ctx, path)

	c.mu.Lock()
	delete(c.inflight, path)
	if c.ended {
		c.mu.Unlock()
		return
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrNavTimeout, c.timeout)
		}
		// A stale failure (user already elsewhere) is dropped silently.
		if c.currentPath != path {
			c.mu.Unlock()
			return
		}
		c.state = StateFailed
		c.lastErr = err
		c.mu.Unlock()
		slog.Warn("navctl: navigation failed", "path", path, "error", err)
		c.emit(Event{State: StateFailed, Path: path, Err: err})
		return
	}

	c.cache[path] = html
	if c.currentPath != path {
		// Late arrival for a page the user left; keep it cached only.
		c.mu.Unlock()
		return
	}
	c.state = StateRendered
	c.lastErr = nil
	c.visited = append(c.visited, path)
	c.mu.Unlock()
	c.emit(Event{State: StateRendered, Path: path, HTML: html})
}
