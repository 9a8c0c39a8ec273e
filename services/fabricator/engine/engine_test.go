// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
	"github.com/AleutianAI/mirage/services/fabricator/sanitize"
	"github.com/AleutianAI/mirage/services/fabricator/store"
	"github.com/AleutianAI/mirage/services/llm"
)

const testDoc = "<!DOCTYPE html>\n<html><head><title>t</title></head><body>page</body></html>"

// mockLLM is a scriptable model backend.
type mockLLM struct {
	mu            sync.Mutex
	generateCalls int
	chatCalls     int

	generateErr error
	chatErr     error
	chatResp    string

	// gate, when non-nil, blocks Chat until closed.
	gate chan struct{}
}

func (m *mockLLM) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	m.mu.Lock()
	m.generateCalls++
	err := m.generateErr
	m.mu.Unlock()
	if err != nil {
		return "", err
	}
	return "Session initialized", nil
}

func (m *mockLLM) Chat(_ context.Context, _ []datatypes.ChatTurn, _ llm.GenerationParams) (string, error) {
	m.mu.Lock()
	m.chatCalls++
	gate := m.gate
	err := m.chatErr
	resp := m.chatResp
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}
	if resp == "" {
		resp = testDoc
	}
	return resp, nil
}

func (m *mockLLM) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generateCalls, m.chatCalls
}

func newTestEngine(mock *mockLLM) *Engine {
	return NewEngine(store.NewStore(), mock)
}

func TestGeneratePageCachesResult(t *testing.T) {
	mock := &mockLLM{}
	e := newTestEngine(mock)

	first, err := e.GeneratePage(context.Background(), "1700000000000", "/", "Acme", "", "")
	require.NoError(t, err)
	assert.Equal(t, testDoc, first)

	second, err := e.GeneratePage(context.Background(), "1700000000000", "/", "Acme", "", "")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, chats := mock.counts()
	assert.Equal(t, 1, chats, "cached page must not invoke the model again")
}

func TestGeneratePageDistinctFingerprints(t *testing.T) {
	mock := &mockLLM{}
	e := newTestEngine(mock)
	ctx := context.Background()

	_, err := e.GeneratePage(ctx, "s1", "/about", "Acme", "", "")
	require.NoError(t, err)
	_, err = e.GeneratePage(ctx, "s1", "/about", "Acme", "", "use tables")
	require.NoError(t, err)

	_, chats := mock.counts()
	assert.Equal(t, 2, chats, "different custom instructions must generate separately")
}

func TestSessionFlow(t *testing.T) {
	mock := &mockLLM{}
	e := newTestEngine(mock)
	ctx := context.Background()
	const sessionID = "1700000000000"

	_, err := e.GeneratePage(ctx, sessionID, "/", "Acme", "dark theme", "")
	require.NoError(t, err)
	_, err = e.GeneratePage(ctx, sessionID, "/pricing", "Acme", "dark theme", "")
	require.NoError(t, err)

	info, err := e.SessionInfo(sessionID)
	require.NoError(t, err)
	assert.Equal(t, sessionID, info.SessionID)
	assert.Equal(t, "Acme", info.ProjectName)
	assert.Equal(t, 2, info.PageCount)

	exp, err := e.Export(sessionID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", exp.ProjectConfig.Name)
	assert.Equal(t, []string{"/", "/pricing"}, exp.VisitedPages)
	assert.Equal(t, testDoc, exp.PageCache["/"])
	assert.Equal(t, testDoc, exp.PageCache["/pricing"])
	assert.Len(t, exp.GenerationPrompts, 2)

	// First page on a fresh project triggers exactly one initialization.
	inits, _ := mock.counts()
	assert.Equal(t, 1, inits)
}

func TestSessionInfoUnknownSession(t *testing.T) {
	e := newTestEngine(&mockLLM{})
	_, err := e.SessionInfo("missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMalformedOutputNotCached(t *testing.T) {
	mock := &mockLLM{chatResp: "I cannot generate that page."}
	e := newTestEngine(mock)
	ctx := context.Background()

	_, err := e.GeneratePage(ctx, "s1", "/x", "Acme", "", "")
	require.Error(t, err)
	var malformed *sanitize.MalformedOutputError
	assert.ErrorAs(t, err, &malformed)

	// Nothing was cached, so the next attempt hits the model again.
	_, err = e.GeneratePage(ctx, "s1", "/x", "Acme", "", "")
	require.Error(t, err)
	_, chats := mock.counts()
	assert.Equal(t, 2, chats)

	// The attempts still show up in the page log.
	info, err := e.SessionInfo("s1")
	require.NoError(t, err)
	assert.Equal(t, 2, info.PageCount)
}

func TestTimeoutSurfacesErrTimeout(t *testing.T) {
	mock := &mockLLM{chatErr: fmt.Errorf("model call: %w", context.DeadlineExceeded)}
	e := newTestEngine(mock)

	_, err := e.GeneratePage(context.Background(), "s1", "/slow", "Acme", "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	// Callers downstream match on the context sentinel, so the chain must
	// survive the mapping onto ErrTimeout.
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "/slow", genErr.Path)
}

func TestInitFailureDoesNotBlockPage(t *testing.T) {
	mock := &mockLLM{generateErr: errors.New("quota exceeded")}
	e := newTestEngine(mock)

	html, err := e.GeneratePage(context.Background(), "s1", "/", "Acme", "", "")
	require.NoError(t, err)
	assert.Equal(t, testDoc, html)
}

func TestProjectChangeReinitializes(t *testing.T) {
	mock := &mockLLM{}
	e := newTestEngine(mock)
	ctx := context.Background()

	_, err := e.GeneratePage(ctx, "s1", "/", "Acme", "", "")
	require.NoError(t, err)
	_, err = e.GeneratePage(ctx, "s1", "/", "Globex", "", "")
	require.NoError(t, err)

	inits, _ := mock.counts()
	assert.Equal(t, 2, inits, "project change must re-run initialization")

	// The identity overwrite must not evict earlier cache entries: the old
	// project's page is still served without another model call or init.
	html, err := e.GeneratePage(ctx, "s1", "/", "Acme", "", "")
	require.NoError(t, err)
	assert.Equal(t, testDoc, html)
	inits, chats := mock.counts()
	assert.Equal(t, 2, inits)
	assert.Equal(t, 2, chats, "cached entry for the prior project must survive the switch")
}

func TestConcurrentIdenticalRequestsCoalesce(t *testing.T) {
	gate := make(chan struct{})
	mock := &mockLLM{gate: gate}
	s := store.NewStore()
	// Pre-initialize the project so the blocked Chat is the only model call.
	_ = s.WithSession("s1", func(sess *datatypes.Session) error {
		sess.ProjectName = "Acme"
		return nil
	})
	e := NewEngine(s, mock)

	const workers = 5
	results := make([]string, workers)
	errs := make([]error, workers)
	var started, done sync.WaitGroup
	started.Add(workers)
	done.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			started.Done()
			defer done.Done()
			results[i], errs[i] = e.GeneratePage(context.Background(), "s1", "/", "Acme", "", "")
		}(i)
	}
	started.Wait()
	close(gate)
	done.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, testDoc, results[i])
	}
	_, chats := mock.counts()
	assert.Equal(t, 1, chats, "identical concurrent requests must share one model call")
}

func TestSweepSessions(t *testing.T) {
	mock := &mockLLM{}
	e := newTestEngine(mock)
	_, err := e.GeneratePage(context.Background(), "s1", "/", "Acme", "", "")
	require.NoError(t, err)

	// Sessions are fresh, nothing to sweep.
	assert.Equal(t, 0, e.SweepSessions(time.Hour))
}
