// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/mirage/services/fabricator/bridge"
	"github.com/AleutianAI/mirage/services/fabricator/engine"
	"github.com/AleutianAI/mirage/services/fabricator/handlers"
	"github.com/AleutianAI/mirage/services/fabricator/middleware"
)

func SetupRoutes(router *gin.Engine, eng *engine.Engine, host *bridge.Host,
	generationTimeout time.Duration) {

	router.Use(middleware.SecurityHeaders())

	// Health and metrics stay outside the rate limits so probes and
	// scrapers never get throttled.
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	generalLimiter := middleware.NewRateLimiter(100, 15*time.Minute)
	generationLimiter := middleware.NewRateLimiter(10, 5*time.Minute)

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(generalLimiter.Middleware())
	{
		// Generation burns a model call per cache miss, so it gets its
		// own tighter limit on top of the general one.
		v1.POST("/pages/generate", generationLimiter.Middleware(),
			handlers.HandleGeneratePage(eng, generationTimeout))

		sessions := v1.Group("/sessions")
		{
			sessions.POST("/init", handlers.HandleSessionInit(eng))
			sessions.GET("/:sessionId", handlers.HandleSessionInfo(eng))
			sessions.GET("/:sessionId/export", handlers.HandleSessionExport(eng))
		}

		v1.GET("/bridge/ws", host.Handle())
	}
}
