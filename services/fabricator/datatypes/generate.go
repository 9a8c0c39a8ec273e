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
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxInstructionBytes caps the size of any single instruction field.
const MaxInstructionBytes = 16 * 1024

// MaxPathLength caps the length of a requested page path.
const MaxPathLength = 2048

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// maxbytes enforces a byte-length cap on instruction fields; len() on a
	// string counts bytes, so multi-byte runes are counted correctly.
	err := validate.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxInstructionBytes
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register maxbytes validator: %v", err))
	}
}

// SessionKey is an opaque client-supplied session identifier.
//
// Clients historically sent numeric millisecond timestamps, so the decoder
// accepts both a JSON string and a bare JSON number and normalizes to the
// string form.
type SessionKey string

func (k *SessionKey) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if len(trimmed) == 0 {
		return fmt.Errorf("empty session key")
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*k = SessionKey(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session key must be a string or number: %w", err)
	}
	*k = SessionKey(n.String())
	return nil
}

// GenerateRequest asks the service to fabricate the document for one path.
type GenerateRequest struct {
	Path               string     `json:"path" validate:"required,startswith=/,max=2048"`
	Project            string     `json:"project" validate:"required,max=200"`
	Instructions       string     `json:"instructions" validate:"maxbytes"`
	CustomInstructions string     `json:"customInstructions" validate:"maxbytes"`
	SessionID          SessionKey `json:"sessionId" validate:"required,max=128"`
}

// Validate checks the request against its declared constraints.
func (r *GenerateRequest) Validate() error {
	return validate.Struct(r)
}

// InitSessionRequest seeds a session with its project identity before the
// first page is requested. SessionID is optional; when absent the server
// mints one.
type InitSessionRequest struct {
	SessionID    SessionKey `json:"sessionId" validate:"omitempty,max=128"`
	Project      string     `json:"project" validate:"required,max=200"`
	Instructions string     `json:"instructions" validate:"maxbytes"`
}

// Validate checks the request against its declared constraints.
func (r *InitSessionRequest) Validate() error {
	return validate.Struct(r)
}

// InitSessionResponse acknowledges session initialization.
type InitSessionResponse struct {
	SessionID string `json:"sessionId"`
	Project   string `json:"project"`
	Status    string `json:"status"`
}
