// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bridge

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
)

func TestParseMessageNavigate(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"navigate","path":"/about"}`))
	require.NoError(t, err)
	nav, ok := msg.(*NavigateMessage)
	require.True(t, ok)
	assert.Equal(t, "/about", nav.Path)
}

func TestParseMessageDownload(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"download","downloadType":"fullSession"}`))
	require.NoError(t, err)
	dl, ok := msg.(*DownloadMessage)
	require.True(t, ok)
	assert.Equal(t, datatypes.ExportFullSession, dl.DownloadType)
}

func TestParseMessageDownloadWithSnapshot(t *testing.T) {
	// Surfaces attach their local session snapshot as data; the message is
	// valid and the snapshot rides along unread.
	raw := `{"type":"download","downloadType":"fullSession","data":{"projectConfig":{"name":"Evil"}}}`
	msg, err := ParseMessage([]byte(raw))
	require.NoError(t, err)
	dl, ok := msg.(*DownloadMessage)
	require.True(t, ok)
	assert.Equal(t, datatypes.ExportFullSession, dl.DownloadType)
	assert.NotEmpty(t, dl.Data)
}

func TestParseMessageRejections(t *testing.T) {
	cases := map[string]string{
		"unknown type":       `{"type":"eval","code":"alert(1)"}`,
		"missing type":       `{"path":"/x"}`,
		"empty path":         `{"type":"navigate","path":""}`,
		"relative path":      `{"type":"navigate","path":"about"}`,
		"extra fields":       `{"type":"navigate","path":"/a","target":"_top"}`,
		"bad download type":  `{"type":"download","downloadType":"cookies"}`,
		"not json":           `navigate /about`,
		"long path":          `{"type":"navigate","path":"/` + strings.Repeat("a", datatypes.MaxPathLength) + `"}`,
		"download w/ extras": `{"type":"download","downloadType":"promptLog","target":"_top"}`,
	}
	for name, raw := range cases {
		_, err := ParseMessage([]byte(raw))
		assert.Error(t, err, name)
	}
}

// stubEngine serves canned pages and exports.
type stubEngine struct {
	html    string
	genErr  error
	exports datatypes.SessionExport
}

func (s *stubEngine) GeneratePage(_ context.Context, _, _, _, _, _ string) (string, error) {
	if s.genErr != nil {
		return "", s.genErr
	}
	return s.html, nil
}

func (s *stubEngine) Export(string) (datatypes.SessionExport, error) {
	return s.exports, nil
}

func dialTestHost(t *testing.T, eng Engine) (*websocket.Conn, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	host := NewHost(eng, 5*time.Second)
	router.GET("/v1/bridge/ws", host.Handle())
	server := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/bridge/ws?project=Acme&sessionId=s1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws, func() {
		ws.Close()
		server.Close()
	}
}

func readFrame(t *testing.T, ws *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]interface{}
	require.NoError(t, ws.ReadJSON(&frame))
	return frame
}

func TestHostSessionAndNavigation(t *testing.T) {
	const doc = "<!DOCTYPE html><html><head></head><body>x</body></html>"
	ws, cleanup := dialTestHost(t, &stubEngine{html: doc})
	defer cleanup()

	frame := readFrame(t, ws)
	assert.Equal(t, TypeSession, frame["type"])
	assert.Equal(t, "s1", frame["sessionId"])

	require.NoError(t, ws.WriteJSON(NavigateMessage{Type: TypeNavigate, Path: "/about"}))

	// Loading first, then rendered with the document.
	states := []string{}
	for i := 0; i < 2; i++ {
		frame = readFrame(t, ws)
		require.Equal(t, TypeState, frame["type"])
		states = append(states, frame["state"].(string))
	}
	assert.Equal(t, []string{"loading", "rendered"}, states)
	assert.Equal(t, doc, frame["html"])
	assert.Equal(t, "/about", frame["path"])
}

func TestHostRejectsMalformedMessages(t *testing.T) {
	ws, cleanup := dialTestHost(t, &stubEngine{html: "x"})
	defer cleanup()

	readFrame(t, ws) // session frame

	require.NoError(t, ws.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"eval","code":"x"}`)))
	frame := readFrame(t, ws)
	assert.Equal(t, TypeError, frame["type"])
	assert.Contains(t, frame["error"], "unknown type")
}

func TestHostDownloadDeliversExport(t *testing.T) {
	exp := datatypes.SessionExport{
		ProjectConfig: datatypes.ProjectConfig{Name: "Acme"},
		VisitedPages:  []string{"/"},
		PageCache:     map[string]string{"/": "<!DOCTYPE html>"},
	}
	ws, cleanup := dialTestHost(t, &stubEngine{exports: exp})
	defer cleanup()

	readFrame(t, ws) // session frame

	// The surface sends its own snapshot alongside the request; the export
	// must come from host state, not from the surface's data.
	require.NoError(t, ws.WriteJSON(DownloadMessage{
		Type:         TypeDownload,
		DownloadType: datatypes.ExportFullSession,
		Data:         json.RawMessage(`{"projectConfig":{"name":"Spoofed"}}`),
	}))
	frame := readFrame(t, ws)
	require.Equal(t, TypeExport, frame["type"])
	assert.Equal(t, datatypes.ExportFullSession, frame["downloadType"])

	raw, err := json.Marshal(frame["data"])
	require.NoError(t, err)
	var got datatypes.SessionExport
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "Acme", got.ProjectConfig.Name)
	assert.Equal(t, []string{"/"}, got.VisitedPages)
}

func TestHostRequiresProject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	host := NewHost(&stubEngine{}, time.Second)
	router.GET("/v1/bridge/ws", host.Handle())
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/bridge/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}
