// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionKeyUnmarshal(t *testing.T) {
	var req GenerateRequest
	err := json.Unmarshal([]byte(`{"path":"/about","project":"Acme","sessionId":1700000000000}`), &req)
	require.NoError(t, err)
	assert.Equal(t, SessionKey("1700000000000"), req.SessionID)

	err = json.Unmarshal([]byte(`{"path":"/about","project":"Acme","sessionId":"abc-123"}`), &req)
	require.NoError(t, err)
	assert.Equal(t, SessionKey("abc-123"), req.SessionID)
}

func TestGenerateRequestValidate(t *testing.T) {
	valid := GenerateRequest{Path: "/pricing", Project: "Acme", SessionID: "1700000000000"}
	assert.NoError(t, valid.Validate())

	noSlash := GenerateRequest{Path: "pricing", Project: "Acme", SessionID: "s1"}
	assert.Error(t, noSlash.Validate())

	missingProject := GenerateRequest{Path: "/pricing", SessionID: "s1"}
	assert.Error(t, missingProject.Validate())

	oversized := GenerateRequest{
		Path:         "/pricing",
		Project:      "Acme",
		SessionID:    "s1",
		Instructions: strings.Repeat("x", MaxInstructionBytes+1),
	}
	assert.Error(t, oversized.Validate())
}

func TestInitSessionRequestOptionalKey(t *testing.T) {
	req := InitSessionRequest{Project: "Acme"}
	assert.NoError(t, req.Validate())
}

func TestHistoryWindow(t *testing.T) {
	s := NewSession("s1", time.Now())
	for i := 0; i < 30; i++ {
		s.History = append(s.History, ChatTurn{Role: RoleUser, Text: "t"})
	}
	assert.Len(t, s.HistoryWindow(20), 20)
	assert.Len(t, s.HistoryWindow(0), 0)
	assert.Len(t, s.HistoryWindow(40), 30)
}

func TestExportRoundTrip(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSession("1700000000000", start)
	s.ProjectName = "Acme"
	s.BaseInstructions = "dark theme"
	s.PageCache["fp-home"] = "<!DOCTYPE html><html><head></head><body>home</body></html>"
	s.Pages = append(s.Pages, PageLogEntry{Path: "/", GeneratedAt: start, Fingerprint: "fp-home"})
	s.Prompts = append(s.Prompts, "prompt one")

	exp := s.Export()
	raw, err := json.Marshal(exp)
	require.NoError(t, err)

	var back SessionExport
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, exp.ProjectConfig, back.ProjectConfig)
	assert.Equal(t, exp.VisitedPages, back.VisitedPages)
	assert.Equal(t, exp.PageCache, back.PageCache)
	assert.Equal(t, exp.GenerationPrompts, back.GenerationPrompts)
	assert.True(t, exp.SessionStartTime.Equal(back.SessionStartTime))
}

func TestExportLatestGenerationWins(t *testing.T) {
	now := time.Now()
	s := NewSession("s1", now)
	s.PageCache["fp1"] = "old"
	s.PageCache["fp2"] = "new"
	s.Pages = append(s.Pages,
		PageLogEntry{Path: "/p", GeneratedAt: now, Fingerprint: "fp1"},
		PageLogEntry{Path: "/p", GeneratedAt: now, Fingerprint: "fp2"},
	)
	exp := s.Export()
	assert.Equal(t, "new", exp.PageCache["/p"])
	assert.Equal(t, []string{"/p", "/p"}, exp.VisitedPages)
}
