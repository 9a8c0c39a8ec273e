// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bridge carries messages between a sandboxed rendering surface and
// the host.
//
// # Description
//
// The surface runs untrusted, model-generated markup, so everything it sends
// is treated as hostile input. Inbound messages form a closed union: exactly
// two types, each with a strict schema, and anything else is rejected.
// Outbound frames (state changes, exports, errors) are host-authored and
// never echo unvalidated surface data.
package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
)

// Inbound message types. The union is closed: these are the only two.
const (
	TypeNavigate = "navigate"
	TypeDownload = "download"
)

// Outbound frame types.
const (
	TypeSession = "session"
	TypeState   = "state"
	TypeExport  = "export"
	TypeError   = "error"
)

// NavigateMessage asks the host to navigate to a fabricated path.
type NavigateMessage struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// DownloadMessage asks the host to produce an export artifact. The host
// builds the artifact from its own session state; the surface only names
// which one it wants. Surfaces may attach their local session snapshot as
// data, which the host accepts for wire compatibility but never reads.
type DownloadMessage struct {
	Type         string          `json:"type"`
	DownloadType string          `json:"downloadType"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// ParseMessage validates one raw inbound message against the union.
//
// # Outputs
//   - interface{}: *NavigateMessage or *DownloadMessage.
//   - error: any schema violation, including unknown types and unknown
//     fields.
func ParseMessage(raw []byte) (interface{}, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	switch envelope.Type {
	case TypeNavigate:
		var msg NavigateMessage
		if err := strictUnmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("invalid navigate message: %w", err)
		}
		if msg.Path == "" || !strings.HasPrefix(msg.Path, "/") {
			return nil, fmt.Errorf("invalid navigate message: path must start with '/'")
		}
		if len(msg.Path) > datatypes.MaxPathLength {
			return nil, fmt.Errorf("invalid navigate message: path too long")
		}
		return &msg, nil

	case TypeDownload:
		var msg DownloadMessage
		if err := strictUnmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("invalid download message: %w", err)
		}
		if !datatypes.ValidExportType(msg.DownloadType) {
			return nil, fmt.Errorf("invalid download message: unknown downloadType %q",
				msg.DownloadType)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("invalid message: missing type")
	default:
		return nil, fmt.Errorf("invalid message: unknown type %q", envelope.Type)
	}
}

// strictUnmarshal rejects unknown fields so the surface cannot smuggle
// extra payload through a valid-looking message.
func strictUnmarshal(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// SessionFrame announces the connection's session key.
type SessionFrame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// StateFrame reports a navigation state change to the surface.
type StateFrame struct {
	Type  string `json:"type"`
	State string `json:"state"`
	Path  string `json:"path,omitempty"`
	HTML  string `json:"html,omitempty"`
	Error string `json:"error,omitempty"`
}

// ExportFrame delivers a requested session export.
type ExportFrame struct {
	Type         string                  `json:"type"`
	DownloadType string                  `json:"downloadType"`
	Data         datatypes.SessionExport `json:"data"`
}

// ErrorFrame reports a rejected message or failed operation.
type ErrorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
