// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/AleutianAI/mirage/services/fabricator/bridge"
	"github.com/AleutianAI/mirage/services/fabricator/engine"
	"github.com/AleutianAI/mirage/services/fabricator/observability"
	"github.com/AleutianAI/mirage/services/fabricator/routes"
	"github.com/AleutianAI/mirage/services/fabricator/store"
	"github.com/AleutianAI/mirage/services/fabricator/ttl"
	"github.com/AleutianAI/mirage/services/llm"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "mirage-otel-collector:4317"
	}
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("fabricator-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

// envDuration reads a duration from the environment, logging and falling
// back to the default on absence or parse failure.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		slog.Info(key+" not set, using default", "default", fallback.String())
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn(key+" is invalid, using default", "value", raw, "default", fallback.String())
		return fallback
	}
	return d
}

func main() {
	port := os.Getenv("FABRICATOR_PORT")
	if port == "" {
		port = "12230"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- Init the tracer ---
	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	log.Println("Configuring the LLM Client")
	var llmClient llm.LLMClient
	llmBackendType := os.Getenv("LLM_BACKEND_TYPE")

	switch llmBackendType {
	case "openai":
		llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	case "anthropic":
		llmClient, err = llm.NewAnthropicClient()
		slog.Info("Using Anthropic LLM backend")
	case "gemini":
		llmClient, err = llm.NewGeminiClient()
		slog.Info("Using Gemini LLM backend")
	default:
		slog.Warn("LLM_BACKEND_TYPE not set or invalid, defaulting to gemini")
		llmClient, err = llm.NewGeminiClient()
	}
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	sessionMaxAge := envDuration("SESSION_MAX_AGE", 24*time.Hour)
	sweepInterval := envDuration("SWEEP_INTERVAL", time.Hour)
	generationTimeout := envDuration("GENERATION_TIMEOUT", 30*time.Second)

	metrics := observability.InitMetrics()
	sessionStore := store.NewStore()
	eng := engine.NewEngine(sessionStore, llmClient, engine.WithMetrics(metrics))
	host := bridge.NewHost(eng, generationTimeout)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	sweeper := ttl.NewScheduler(sweepInterval, sessionMaxAge, eng.SweepSessions)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	router := gin.Default()
	router.Use(otelgin.Middleware("fabricator-service"))

	routes.SetupRoutes(router, eng, host, generationTimeout)
	log.Println("started up the container")

	log.Println("Starting the fabricator server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
