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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
	"github.com/AleutianAI/mirage/services/fabricator/navctl"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	// Generated documents can be large
	ReadBufferSize:  1024 * 1024,
	WriteBufferSize: 1024 * 1024,
}

// Engine is the slice of the generation engine the bridge drives.
type Engine interface {
	GeneratePage(ctx context.Context, sessionID, path, project, instructions,
		custom string) (string, error)
	Export(sessionID string) (datatypes.SessionExport, error)
}

// Host terminates bridge websocket connections.
//
// # Description
//
// One connection serves one rendering surface. The host owns a navigation
// controller per connection, relays validated surface messages into it, and
// streams state frames back. All writes go through a single goroutine since
// websocket connections do not allow concurrent writers.
type Host struct {
	engine  Engine
	timeout time.Duration
}

// NewHost creates a bridge host over the given engine.
func NewHost(e Engine, navTimeout time.Duration) *Host {
	if navTimeout <= 0 {
		navTimeout = navctl.DefaultTimeout
	}
	return &Host{engine: e, timeout: navTimeout}
}

// Handle returns the gin handler for GET /v1/bridge/ws.
//
// Query parameters: project (required), sessionId (optional, minted when
// absent), instructions (optional).
func (h *Host) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		project := c.Query("project")
		if project == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "project query parameter is required"})
			return
		}
		sessionID := c.Query("sessionId")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		instructions := c.Query("instructions")

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("bridge: failed to upgrade websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("bridge: surface connected", "session_id", sessionID, "project", project)

		h.serve(ws, sessionID, project, instructions)
	}
}

func (h *Host) serve(ws *websocket.Conn, sessionID, project, instructions string) {
	out := make(chan interface{}, 32)
	done := make(chan struct{})

	// Single writer goroutine; everyone else posts to out.
	go func() {
		for {
			select {
			case frame := <-out:
				if err := ws.WriteJSON(frame); err != nil {
					slog.Warn("bridge: failed to write frame", "error", err)
					return
				}
			case <-done:
				return
			}
		}
	}()

	post := func(frame interface{}) {
		select {
		case out <- frame:
		case <-done:
		}
	}

	ctrl := navctl.NewController(
		func(ctx context.Context, path string) (string, error) {
			return h.engine.GeneratePage(ctx, sessionID, path, project, instructions, "")
		},
		navctl.WithTimeout(h.timeout),
		navctl.WithObserver(func(ev navctl.Event) {
			frame := StateFrame{
				Type:  TypeState,
				State: ev.State.String(),
				Path:  ev.Path,
				HTML:  ev.HTML,
			}
			if ev.Err != nil {
				frame.Error = ev.Err.Error()
			}
			post(frame)
		}),
		navctl.WithEndHook(func() {
			slog.Info("bridge: session ended", "session_id", sessionID)
		}),
	)

	post(SessionFrame{Type: TypeSession, SessionID: sessionID})

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			slog.Info("bridge: surface disconnected", "session_id", sessionID,
				"error", err.Error())
			break
		}

		msg, err := ParseMessage(raw)
		if err != nil {
			slog.Warn("bridge: rejected message", "session_id", sessionID, "error", err)
			post(ErrorFrame{Type: TypeError, Error: err.Error()})
			continue
		}

		switch m := msg.(type) {
		case *NavigateMessage:
			ctrl.Navigate(m.Path)
		case *DownloadMessage:
			exp, err := h.engine.Export(sessionID)
			if err != nil {
				post(ErrorFrame{Type: TypeError, Error: "export failed: " + err.Error()})
				continue
			}
			post(ExportFrame{Type: TypeExport, DownloadType: m.DownloadType, Data: exp})
		}
	}
	close(done)
}
