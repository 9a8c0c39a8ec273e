// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the gin handlers for the fabricator HTTP API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
	"github.com/AleutianAI/mirage/services/fabricator/engine"
)

var generateTracer = otel.Tracer("mirage.fabricator.generate")

const htmlContentType = "text/html; charset=utf-8"

// HandleGeneratePage returns the handler for POST /v1/pages/generate.
//
// Success answers 200 with the document as text/html. A generation failure
// answers 504 (timeout) or 502 (model or output failure) with the fallback
// error page, still as text/html, so the surface always renders something.
func HandleGeneratePage(eng *engine.Engine, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := generateTracer.Start(c.Request.Context(), "HandleGeneratePage")
		defer span.End()

		var req datatypes.GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed: " + err.Error()})
			return
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		slog.Info("Generate request", "path", req.Path, "project", req.Project,
			"session_id", string(req.SessionID))

		html, err := eng.GeneratePage(ctx, string(req.SessionID), req.Path,
			req.Project, req.Instructions, req.CustomInstructions)
		if err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, engine.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
				status = http.StatusGatewayTimeout
			}
			slog.Error("Generation failed", "path", req.Path, "status", status, "error", err)
			c.Data(status, htmlContentType, []byte(ErrorPage(req.Project, err.Error())))
			return
		}

		c.Data(http.StatusOK, htmlContentType, []byte(html))
	}
}
