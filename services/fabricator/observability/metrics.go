// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the
// fabricator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring page generation:
//   - Generation counters (by status and error type)
//   - Cache hit/miss/coalesce counters
//   - Model latency and document size histograms
//   - Active generation and live session gauges
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Helper methods are additionally nil-safe so components can run without
// metrics in tests.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "mirage"

// Subsystem for generation metrics
const generationSubsystem = "generation"

// GenerationMetrics holds all Prometheus metrics for page generation.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring generation
// throughput, cache behavior, and model latency. Initialize once at startup
// via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type GenerationMetrics struct {
	// GenerationsTotal counts generation attempts by final status.
	// Labels: status (success, error)
	GenerationsTotal *prometheus.CounterVec

	// ErrorsTotal counts generation errors by type.
	// Labels: error_code (validation, llm_error, malformed_output, timeout, internal)
	ErrorsTotal *prometheus.CounterVec

	// CacheEventsTotal counts content-cache outcomes.
	// Labels: event (hit, miss, coalesced)
	CacheEventsTotal *prometheus.CounterVec

	// ModelLatencySeconds measures wall time of model calls.
	ModelLatencySeconds prometheus.Histogram

	// DocumentBytes measures the size of sanitized documents.
	DocumentBytes prometheus.Histogram

	// ActiveGenerations tracks generations currently in flight.
	ActiveGenerations prometheus.Gauge

	// SessionsLive tracks the number of sessions in the store.
	SessionsLive prometheus.Gauge

	// SessionsSweptTotal counts sessions removed by the TTL sweep.
	SessionsSweptTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of GenerationMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *GenerationMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once at
// application startup.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *GenerationMetrics {
	DefaultMetrics = &GenerationMetrics{
		GenerationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "generations_total",
				Help:      "Total page generation attempts by status",
			},
			[]string{"status"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "errors_total",
				Help:      "Total generation errors by type",
			},
			[]string{"error_code"},
		),

		CacheEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "cache_events_total",
				Help:      "Content cache outcomes (hit, miss, coalesced)",
			},
			[]string{"event"},
		),

		ModelLatencySeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "model_latency_seconds",
				Help:      "Wall time of model calls in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
		),

		DocumentBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "document_bytes",
				Help:      "Size of sanitized documents in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 2, 10),
			},
		),

		ActiveGenerations: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: generationSubsystem,
				Name:      "active_generations",
				Help:      "Number of generations currently in flight",
			},
		),

		SessionsLive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "live",
				Help:      "Number of sessions in the store",
			},
		),

		SessionsSweptTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "swept_total",
				Help:      "Total sessions removed by the TTL sweep",
			},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeLLMError indicates a model API failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeMalformedOutput indicates unrepairable model output.
	ErrorCodeMalformedOutput ErrorCode = "malformed_output"

	// ErrorCodeTimeout indicates a generation timeout.
	ErrorCodeTimeout ErrorCode = "timeout"

	// ErrorCodeInternal indicates an internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordGeneration records a completed generation attempt.
func (m *GenerationMetrics) RecordGeneration(success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.GenerationsTotal.WithLabelValues(status).Inc()
}

// RecordError records a generation error.
func (m *GenerationMetrics) RecordError(code ErrorCode) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(string(code)).Inc()
}

// RecordCacheEvent records a content-cache outcome: "hit", "miss" or
// "coalesced".
func (m *GenerationMetrics) RecordCacheEvent(event string) {
	if m == nil {
		return
	}
	m.CacheEventsTotal.WithLabelValues(event).Inc()
}

// RecordModelLatency records the wall time of one model call.
func (m *GenerationMetrics) RecordModelLatency(seconds float64) {
	if m == nil {
		return
	}
	m.ModelLatencySeconds.Observe(seconds)
}

// RecordDocumentSize records the size of a sanitized document.
func (m *GenerationMetrics) RecordDocumentSize(bytes int) {
	if m == nil {
		return
	}
	m.DocumentBytes.Observe(float64(bytes))
}

// GenerationStarted increments the active generations gauge.
func (m *GenerationMetrics) GenerationStarted() {
	if m == nil {
		return
	}
	m.ActiveGenerations.Inc()
}

// GenerationEnded decrements the active generations gauge.
func (m *GenerationMetrics) GenerationEnded() {
	if m == nil {
		return
	}
	m.ActiveGenerations.Dec()
}

// SetLiveSessions sets the live session gauge.
func (m *GenerationMetrics) SetLiveSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsLive.Set(float64(n))
}

// RecordSweep records the result of one TTL sweep.
func (m *GenerationMetrics) RecordSweep(removed int) {
	if m == nil {
		return
	}
	m.SessionsSweptTotal.Add(float64(removed))
}
