// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fingerprint derives the content-cache key for one generation request.
//
// # Description
//
// The key is a SHA-256 over a canonical length-prefixed encoding of the
// fields that determine the generated document: path, project name, base
// instructions and custom instructions. Length prefixes make the encoding
// unambiguous ("ab"+"c" never collides with "a"+"bc"), and the fixed field
// order makes the key independent of any serialization quirks of the
// request body.
//
// # Inputs
//   - path: the requested page path.
//   - project: the project name.
//   - instructions: the session's base instructions.
//   - custom: per-request custom instructions.
//
// # Outputs
//   - string: 64 hex characters.
func Fingerprint(path, project, instructions, custom string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, field := range []string{path, project, instructions, custom} {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(field)))
		h.Write(lenBuf[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}
