// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package llm provides a common interface over the generative backends used
// by the fabricator service.
package llm

import (
	"context"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
)

// GenerationParams are optional sampling controls. A nil pointer means the
// backend's default applies.
type GenerationParams struct {
	Temperature *float32
	TopK        *int
	TopP        *float32
	MaxTokens   *int

	// ThinkingBudget caps hidden reasoning tokens on backends that support
	// it (Gemini). Zero disables thinking entirely.
	ThinkingBudget *int

	Stop []string
}

// LLMClient is the interface all model backends implement.
type LLMClient interface {
	// Generate produces a completion for a single standalone prompt.
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)

	// Chat produces a completion for a multi-turn conversation. Turns use
	// the "user" / "model" roles; backends translate as needed.
	Chat(ctx context.Context, turns []datatypes.ChatTurn, params GenerationParams) (string, error)
}
