// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store holds the in-memory session store for the fabricator
// service.
//
// # Description
//
// Sessions are keyed by an opaque client-supplied string and created
// implicitly on first reference. Each session carries a busy count while a
// generation is in flight so the TTL sweep never deletes a session that a
// worker is about to write back to.
//
// # Thread Safety
//
// Store is safe for concurrent use. Session state is only reachable through
// WithSession, which serializes access per session.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
)

// ErrNotFound is returned by read-only lookups for unknown session keys.
var ErrNotFound = errors.New("session not found")

type sessionEntry struct {
	mu      sync.Mutex
	busy    int
	session *datatypes.Session
}

// Store is the in-memory session registry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	nowFn    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source. Tests use this to control sweeping
// and session-age reporting.
func WithClock(nowFn func() time.Time) Option {
	return func(s *Store) { s.nowFn = nowFn }
}

// NewStore creates an empty session store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*sessionEntry),
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.nowFn()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) getOrCreate(sessionID string) *sessionEntry {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return entry
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok = s.sessions[sessionID]; ok {
		return entry
	}
	entry = &sessionEntry{session: datatypes.NewSession(sessionID, s.nowFn())}
	s.sessions[sessionID] = entry
	return entry
}

// WithSession runs fn with exclusive access to the session, creating it if
// needed. fn must not call back into the store and must not retain the
// *Session after returning.
func (s *Store) WithSession(sessionID string, fn func(*datatypes.Session) error) error {
	entry := s.getOrCreate(sessionID)
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.session)
}

// ViewSession runs fn with exclusive access to an EXISTING session. Unknown
// keys return ErrNotFound without creating anything.
func (s *Store) ViewSession(sessionID string, fn func(*datatypes.Session) error) error {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.session)
}

// Acquire marks the session busy for the duration of a generation, creating
// the session if needed. Every Acquire must be paired with a Release.
func (s *Store) Acquire(sessionID string) {
	entry := s.getOrCreate(sessionID)
	entry.mu.Lock()
	entry.busy++
	entry.mu.Unlock()
}

// Release undoes one Acquire.
func (s *Store) Release(sessionID string) {
	s.mu.RLock()
	entry, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	if entry.busy > 0 {
		entry.busy--
	}
	entry.mu.Unlock()
}

// Sweep removes sessions older than maxAge, measured from creation time.
// Busy sessions are skipped regardless of age; they are picked up by a
// later sweep once their generation finishes. Returns the number of
// sessions removed.
func (s *Store) Sweep(maxAge time.Duration) int {
	now := s.nowFn()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.sessions {
		entry.mu.Lock()
		expired := entry.busy == 0 && now.Sub(entry.session.CreatedAt) > maxAge
		entry.mu.Unlock()
		if expired {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
