// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine orchestrates page generation: cache lookup, session
// initialization, prompt assembly, the model call, sanitization and the
// cache write.
//
// # Description
//
// GeneratePage is idempotent per fingerprint: the first call for a given
// (session, fingerprint) pair invokes the model, every later call returns
// the cached document. Identical concurrent requests are coalesced onto a
// single model call via singleflight, so a burst of clicks on the same link
// costs one generation.
//
// # Thread Safety
//
// Engine is safe for concurrent use.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
	"github.com/AleutianAI/mirage/services/fabricator/observability"
	"github.com/AleutianAI/mirage/services/fabricator/prompt"
	"github.com/AleutianAI/mirage/services/fabricator/sanitize"
	"github.com/AleutianAI/mirage/services/fabricator/store"
	"github.com/AleutianAI/mirage/services/llm"
)

// Generation defaults, matching the rendering contract the prompts assume.
const (
	defaultHistoryWindow = 20
	pageMaxTokens        = 8192
	initMaxTokens        = 100
	generationTemp       = float32(0.7)
)

// Engine fabricates pages for sessions.
type Engine struct {
	store   *store.Store
	llm     llm.LLMClient
	metrics *observability.GenerationMetrics
	flight  singleflight.Group

	historyWindow int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches generation metrics. Without it the engine runs
// unmetered.
func WithMetrics(m *observability.GenerationMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithHistoryWindow overrides how many trailing conversation turns are fed
// to the model on each generation.
func WithHistoryWindow(n int) Option {
	return func(e *Engine) { e.historyWindow = n }
}

// NewEngine creates an engine over the given store and model backend.
func NewEngine(s *store.Store, client llm.LLMClient, opts ...Option) *Engine {
	e := &Engine{
		store:         s,
		llm:           client,
		historyWindow: defaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GeneratePage returns the document for one path, generating it if the
// session has no cached copy.
//
// # Description
//
// The content cache is consulted first; a hit never touches the model.
// Concurrent calls with the same fingerprint share one generation. A failed
// generation caches nothing, so the next request for the same page starts
// fresh.
//
// # Inputs
//   - ctx: governs the model call; a deadline here is the generation
//     timeout.
//   - sessionID: opaque session key; the session is created on first use.
//   - path, project, instructions, custom: the generation parameters that
//     together form the fingerprint.
//
// # Outputs
//   - string: a sanitized, complete HTML document.
//   - error: *GenerationError wrapping ErrTimeout, a model failure, or
//     sanitize.MalformedOutputError.
func (e *Engine) GeneratePage(ctx context.Context, sessionID, path, project,
	instructions, custom string) (string, error) {

	fingerprint := store.Fingerprint(path, project, instructions, custom)

	if html, ok := e.cachedPage(sessionID, fingerprint); ok {
		slog.Info("Returning cached page", "path", path, "session_id", sessionID)
		e.metrics.RecordCacheEvent("hit")
		return html, nil
	}
	e.metrics.RecordCacheEvent("miss")

	flightKey := sessionID + "\x00" + fingerprint
	result, err, shared := e.flight.Do(flightKey, func() (interface{}, error) {
		return e.generate(ctx, sessionID, fingerprint, path, project, instructions, custom)
	})
	if shared {
		e.metrics.RecordCacheEvent("coalesced")
	}
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// InitializeSession establishes the project identity for a session and runs
// the initialization exchange with the model.
func (e *Engine) InitializeSession(ctx context.Context, sessionID, project,
	instructions string) error {

	e.store.Acquire(sessionID)
	defer e.store.Release(sessionID)

	err := e.store.WithSession(sessionID, func(sess *datatypes.Session) error {
		sess.ProjectName = project
		sess.BaseInstructions = instructions
		sess.LastActivity = e.store.Now()
		return nil
	})
	if err != nil {
		return err
	}

	initPrompt := prompt.BuildInitPrompt(project, instructions)
	maxTokens := initMaxTokens
	temp := generationTemp
	thinking := 0
	answer, err := e.llm.Generate(ctx, initPrompt, llm.GenerationParams{
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ThinkingBudget: &thinking,
	})
	if err != nil {
		e.metrics.RecordError(observability.ErrorCodeLLMError)
		return &GenerationError{Path: "/", Err: fmt.Errorf("session initialization: %w", err)}
	}

	slog.Info("Session initialized", "session_id", sessionID, "project", project)
	return e.store.WithSession(sessionID, func(sess *datatypes.Session) error {
		sess.History = append(sess.History,
			datatypes.ChatTurn{Role: datatypes.RoleUser, Text: initPrompt},
			datatypes.ChatTurn{Role: datatypes.RoleModel, Text: answer},
		)
		return nil
	})
}

// SessionInfo returns the public summary of an existing session.
func (e *Engine) SessionInfo(sessionID string) (datatypes.SessionInfo, error) {
	var info datatypes.SessionInfo
	err := e.store.ViewSession(sessionID, func(sess *datatypes.Session) error {
		info = sess.Info(e.store.Now())
		return nil
	})
	return info, err
}

// Export returns the full snapshot of an existing session.
func (e *Engine) Export(sessionID string) (datatypes.SessionExport, error) {
	var exp datatypes.SessionExport
	err := e.store.ViewSession(sessionID, func(sess *datatypes.Session) error {
		exp = sess.Export()
		return nil
	})
	return exp, err
}

// SweepSessions removes sessions older than maxAge and reports the count.
func (e *Engine) SweepSessions(maxAge time.Duration) int {
	removed := e.store.Sweep(maxAge)
	e.metrics.RecordSweep(removed)
	e.metrics.SetLiveSessions(e.store.Len())
	return removed
}

func (e *Engine) cachedPage(sessionID, fingerprint string) (string, bool) {
	var html string
	var ok bool
	_ = e.store.ViewSession(sessionID, func(sess *datatypes.Session) error {
		html, ok = sess.PageCache[fingerprint]
		return nil
	})
	return html, ok
}

// generate runs one model-backed generation. Only one generate runs per
// flight key at a time.
func (e *Engine) generate(ctx context.Context, sessionID, fingerprint, path,
	project, instructions, custom string) (string, error) {

	// A racing caller may have finished while we waited on the flight.
	if html, ok := e.cachedPage(sessionID, fingerprint); ok {
		return html, nil
	}

	e.store.Acquire(sessionID)
	defer e.store.Release(sessionID)
	e.metrics.GenerationStarted()
	defer e.metrics.GenerationEnded()

	needsInit := false
	err := e.store.WithSession(sessionID, func(sess *datatypes.Session) error {
		needsInit = sess.ProjectName != project
		return nil
	})
	if err != nil {
		return "", err
	}
	if needsInit {
		// Best effort: a failed initialization degrades styling
		// consistency but must not block the page itself.
		if initErr := e.InitializeSession(ctx, sessionID, project, instructions); initErr != nil {
			slog.Warn("Session initialization failed, continuing",
				"session_id", sessionID, "error", initErr)
		}
	}

	var turns []datatypes.ChatTurn
	var pagePrompt string
	err = e.store.WithSession(sessionID, func(sess *datatypes.Session) error {
		pagePrompt = prompt.BuildPagePrompt(path, project, instructions, custom, sess.Pages)
		window := sess.HistoryWindow(e.historyWindow)
		turns = make([]datatypes.ChatTurn, 0, len(window)+1)
		turns = append(turns, window...)
		turns = append(turns, datatypes.ChatTurn{Role: datatypes.RoleUser, Text: pagePrompt})
		return nil
	})
	if err != nil {
		return "", err
	}

	slog.Info("Generating page", "path", path, "project", project, "session_id", sessionID)
	maxTokens := pageMaxTokens
	temp := generationTemp
	thinking := 0
	start := time.Now()
	raw, err := e.llm.Chat(ctx, turns, llm.GenerationParams{
		Temperature:    &temp,
		MaxTokens:      &maxTokens,
		ThinkingBudget: &thinking,
	})
	e.metrics.RecordModelLatency(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
			e.metrics.RecordError(observability.ErrorCodeTimeout)
		} else {
			e.metrics.RecordError(observability.ErrorCodeLLMError)
		}
		e.metrics.RecordGeneration(false)
		slog.Error("Page generation failed", "path", path, "error", err)
		return "", &GenerationError{Path: path, Err: err}
	}

	// The page log and history record the attempt as soon as the model
	// answers; only the cache write waits for sanitization.
	now := e.store.Now()
	err = e.store.WithSession(sessionID, func(sess *datatypes.Session) error {
		sess.Pages = append(sess.Pages, datatypes.PageLogEntry{
			Path:         path,
			GeneratedAt:  now,
			Instructions: custom,
			Fingerprint:  fingerprint,
		})
		sess.History = append(sess.History,
			datatypes.ChatTurn{Role: datatypes.RoleUser, Text: pagePrompt},
			datatypes.ChatTurn{Role: datatypes.RoleModel, Text: raw},
		)
		sess.Prompts = append(sess.Prompts,
			fmt.Sprintf("[%s] %s", now.Format(time.RFC3339), pagePrompt))
		sess.LastActivity = now
		return nil
	})
	if err != nil {
		return "", err
	}

	cleaned, err := sanitize.Clean(raw)
	if err != nil {
		e.metrics.RecordError(observability.ErrorCodeMalformedOutput)
		e.metrics.RecordGeneration(false)
		slog.Error("Model output failed validation", "path", path, "error", err)
		return "", &GenerationError{Path: path, Err: err}
	}

	err = e.store.WithSession(sessionID, func(sess *datatypes.Session) error {
		sess.PageCache[fingerprint] = cleaned
		return nil
	})
	if err != nil {
		return "", err
	}

	e.metrics.RecordGeneration(true)
	e.metrics.RecordDocumentSize(len(cleaned))
	e.metrics.SetLiveSessions(e.store.Len())
	slog.Info("Page generated", "path", path, "bytes", len(cleaned), "session_id", sessionID)
	return cleaned, nil
}
