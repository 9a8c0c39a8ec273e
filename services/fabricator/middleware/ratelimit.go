// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window per-client limiter.
//
// # Description
//
// Each client IP gets a counter that resets when its window elapses.
// Generation endpoints use a tight window since every miss costs a model
// call; general endpoints use a loose one.
//
// # Thread Safety
//
// Safe for concurrent use.
type RateLimiter struct {
	limit  int
	window time.Duration
	nowFn  func() time.Time

	mu      sync.Mutex
	buckets map[string]*windowBucket
}

type windowBucket struct {
	windowStart time.Time
	count       int
}

// NewRateLimiter allows limit requests per window per client key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:   limit,
		window:  window,
		nowFn:   time.Now,
		buckets: make(map[string]*windowBucket),
	}
}

// Allow reports whether the client may proceed. When denied, the second
// return value is how long until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	now := rl.nowFn()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok || now.Sub(bucket.windowStart) >= rl.window {
		rl.buckets[key] = &windowBucket{windowStart: now, count: 1}
		rl.pruneLocked(now)
		return true, 0
	}
	if bucket.count < rl.limit {
		bucket.count++
		return true, 0
	}
	return false, bucket.windowStart.Add(rl.window).Sub(now)
}

// pruneLocked drops expired buckets so the map doesn't grow with every
// client ever seen. Called with rl.mu held.
func (rl *RateLimiter) pruneLocked(now time.Time) {
	if len(rl.buckets) < 1024 {
		return
	}
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.windowStart) >= rl.window {
			delete(rl.buckets, key)
		}
	}
}

// Middleware enforces the limit per client IP, answering 429 when exceeded.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, retryAfter := rl.Allow(c.ClientIP())
		if !allowed {
			slog.Warn("Rate limit exceeded", "client_ip", c.ClientIP(),
				"path", c.Request.URL.Path)
			c.Header("Retry-After", retryAfter.Round(time.Second).String())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate limit exceeded",
				"retryAfterSeconds": int(retryAfter.Seconds()) + 1,
			})
			return
		}
		c.Next()
	}
}
