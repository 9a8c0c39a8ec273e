// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the fabricator service.
//
// This file contains the server-side session model: project identity, the
// append-only generated-page log, the per-session content cache, and the
// bounded conversation history fed back to the model for styling consistency.
package datatypes

import (
	"time"
)

// Conversation roles understood by the model backends.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatTurn is one turn of the session's conversation history.
type ChatTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// PageLogEntry records one generated page. Entries are append-only and never
// mutated after being added to a session.
type PageLogEntry struct {
	Path         string    `json:"path"`
	GeneratedAt  time.Time `json:"generatedAt"`
	Instructions string    `json:"instructions,omitempty"`

	// Fingerprint links the log entry to its content-cache key so exports
	// can resolve path -> document. Not part of the wire format.
	Fingerprint string `json:"-"`
}

// Session holds all state for one browsing session.
//
// # Description
//
// A session is created on first reference to an unseen session key and lives
// until the TTL sweep collects it. The project name, once set, identifies the
// styling contract all subsequent pages must honor; a generate call with a
// different project name re-initializes the identity without discarding the
// content cache.
//
// # Thread Safety
//
// Session itself is NOT safe for concurrent use. All access must go through
// the store's per-key locking (store.Store.WithSession).
type Session struct {
	SessionID        string
	ProjectName      string
	BaseInstructions string

	// Pages is the append-only generated-page log.
	Pages []PageLogEntry

	// History is the conversation context; the engine feeds a bounded
	// trailing window of it to the model, never the full slice.
	History []ChatTurn

	// PageCache maps a generation fingerprint to the validated HTML
	// document. Entries are never invalidated within the session lifetime.
	PageCache map[string]string

	// Prompts is the generation-prompt log used for the promptLog export.
	Prompts []string

	CreatedAt    time.Time
	LastActivity time.Time
}

// NewSession creates an empty session for the given key.
func NewSession(sessionID string, now time.Time) *Session {
	return &Session{
		SessionID:    sessionID,
		Pages:        make([]PageLogEntry, 0),
		History:      make([]ChatTurn, 0),
		PageCache:    make(map[string]string),
		Prompts:      make([]string, 0),
		CreatedAt:    now,
		LastActivity: now,
	}
}

// VisitedPaths returns the ordered list of generated page paths.
func (s *Session) VisitedPaths() []string {
	paths := make([]string, 0, len(s.Pages))
	for _, p := range s.Pages {
		paths = append(paths, p.Path)
	}
	return paths
}

// HistoryWindow returns at most the last n turns of conversation history.
// A non-positive n returns an empty slice.
func (s *Session) HistoryWindow(n int) []ChatTurn {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

// SessionInfo is the public summary returned by the session-info endpoint.
type SessionInfo struct {
	SessionID    string    `json:"sessionId"`
	ProjectName  string    `json:"projectName"`
	PageCount    int       `json:"pageCount"`
	SessionAgeMs int64     `json:"sessionAgeMs"`
	LastActivity time.Time `json:"lastActivity"`
	Status       string    `json:"status"`
}

// Info builds the public summary for this session.
func (s *Session) Info(now time.Time) SessionInfo {
	return SessionInfo{
		SessionID:    s.SessionID,
		ProjectName:  s.ProjectName,
		PageCount:    len(s.Pages),
		SessionAgeMs: now.Sub(s.CreatedAt).Milliseconds(),
		LastActivity: s.LastActivity,
		Status:       "active",
	}
}
