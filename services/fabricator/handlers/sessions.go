// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
	"github.com/AleutianAI/mirage/services/fabricator/engine"
	"github.com/AleutianAI/mirage/services/fabricator/store"
)

// HandleSessionInit returns the handler for POST /v1/sessions/init.
//
// Seeds a session with its project identity ahead of the first page request.
// When the client supplies no session key the server mints a UUID and
// returns it.
func HandleSessionInit(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.InitSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed: " + err.Error()})
			return
		}

		sessionID := string(req.SessionID)
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		if err := eng.InitializeSession(c.Request.Context(), sessionID, req.Project,
			req.Instructions); err != nil {
			slog.Error("Session initialization failed", "session_id", sessionID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{
				"error":     "failed to initialize session",
				"sessionId": sessionID,
			})
			return
		}

		c.JSON(http.StatusOK, datatypes.InitSessionResponse{
			SessionID: sessionID,
			Project:   req.Project,
			Status:    "initialized",
		})
	}
}

// HandleSessionInfo returns the handler for GET /v1/sessions/:sessionId.
func HandleSessionInfo(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		info, err := eng.SessionInfo(sessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"error":     "session not found",
					"sessionId": sessionID,
				})
				return
			}
			slog.Error("Failed to get session info", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve session information"})
			return
		}
		c.JSON(http.StatusOK, info)
	}
}
