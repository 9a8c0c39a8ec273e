// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sanitize turns raw model output into a renderable HTML document or
// rejects it.
//
// # Description
//
// Models wrap documents in markdown fences, prepend chatty prologues, and
// truncate mid-document when they hit a token limit. Clean strips the
// wrapping, trims anything outside the document boundaries, and repairs
// recoverable damage. The repair boundary is deliberate: missing CLOSING
// tags are synthesized because truncation commonly eats them, but a missing
// OPENING tag means the model never produced that section, and inventing one
// would render a broken page as if it were fine. Missing opening tags are
// fatal.
//
// # Thread Safety
//
// All functions are pure and safe for concurrent use.
package sanitize

import (
	"fmt"
	"strings"
)

const doctype = "<!DOCTYPE"

// MalformedOutputError reports model output that could not be repaired into
// a renderable document. Callers treat it as a generation failure; the
// output is never cached.
type MalformedOutputError struct {
	Reason string
}

func (e *MalformedOutputError) Error() string {
	return fmt.Sprintf("malformed model output: %s", e.Reason)
}

// Clean normalizes raw model output into a complete HTML document.
//
// # Description
//
// The pipeline, in order: strip markdown code fences, drop any prologue text
// before the first DOCTYPE, truncate anything after the final </html>,
// prepend a DOCTYPE if the model omitted it, verify the opening <html>,
// <head> and <body> tags exist, then synthesize any missing closing tags in
// nesting order.
//
// # Inputs
//   - raw: the model's response text, as returned by the backend.
//
// # Outputs
//   - string: the repaired document, always starting with <!DOCTYPE and
//     ending with </html>.
//   - error: *MalformedOutputError when an opening tag is absent.
func Clean(raw string) (string, error) {
	cleaned := stripFences(raw)

	if i := strings.Index(cleaned, doctype); i > 0 {
		cleaned = cleaned[i:]
	}
	if i := strings.LastIndex(cleaned, "</html>"); i > 0 {
		cleaned = cleaned[:i+len("</html>")]
	}

	cleaned = strings.TrimSpace(cleaned)
	if !strings.HasPrefix(cleaned, doctype) {
		cleaned = "<!DOCTYPE html>\n" + cleaned
	}

	if !strings.Contains(cleaned, "<html") {
		return "", &MalformedOutputError{Reason: "missing <html> tag"}
	}
	if !strings.Contains(cleaned, "<head") {
		return "", &MalformedOutputError{Reason: "missing <head> tag"}
	}
	if !strings.Contains(cleaned, "<body") {
		return "", &MalformedOutputError{Reason: "missing <body> tag"}
	}

	// Synthesize missing closers innermost-first so nesting stays valid.
	if !strings.Contains(cleaned, "</head>") {
		i := strings.Index(cleaned, "<body")
		cleaned = cleaned[:i] + "</head>\n" + cleaned[i:]
	}
	if !strings.Contains(cleaned, "</body>") {
		if i := strings.LastIndex(cleaned, "</html>"); i >= 0 {
			cleaned = cleaned[:i] + "</body>\n" + cleaned[i:]
		} else {
			cleaned += "\n</body>"
		}
	}
	if !strings.Contains(cleaned, "</html>") {
		cleaned += "\n</html>"
	}

	return cleaned, nil
}

// stripFences removes markdown code-fence markers anywhere in the text.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```html\n", "")
	s = strings.ReplaceAll(s, "```html", "")
	s = strings.ReplaceAll(s, "```\n", "")
	s = strings.ReplaceAll(s, "```", "")
	return s
}
