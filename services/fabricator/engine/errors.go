// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"context"
	"fmt"
)

// ErrTimeout marks a generation that exceeded its deadline. It wraps
// context.DeadlineExceeded so callers matching either sentinel see the
// timeout. There is no automatic retry; the caller decides whether to
// re-issue the request.
var ErrTimeout = fmt.Errorf("generation timed out: %w", context.DeadlineExceeded)

// GenerationError wraps any failure while fabricating a page. Unwrap exposes
// the cause so callers can match ErrTimeout or sanitize.MalformedOutputError
// through it.
type GenerationError struct {
	Path string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate page %s: %v", e.Path, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
