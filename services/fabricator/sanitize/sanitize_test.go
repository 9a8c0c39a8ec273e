// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sanitize

import (
	"errors"
	"strings"
	"testing"
)

const goodDoc = "<!DOCTYPE html>\n<html><head><title>t</title></head><body>hi</body></html>"

func TestCleanPassThrough(t *testing.T) {
	got, err := Clean(goodDoc)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if got != goodDoc {
		t.Errorf("valid document should pass through unchanged, got %q", got)
	}
}

func TestCleanStripsFences(t *testing.T) {
	got, err := Clean("```html\n" + goodDoc + "\n```")
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if strings.Contains(got, "```") {
		t.Error("fence markers survived cleaning")
	}
	if !strings.HasPrefix(got, "<!DOCTYPE") {
		t.Error("cleaned document must start with DOCTYPE")
	}
}

func TestCleanDropsPrologue(t *testing.T) {
	got, err := Clean("Sure, here is your page:\n\n" + goodDoc)
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if !strings.HasPrefix(got, "<!DOCTYPE") {
		t.Errorf("prologue text must be removed, got prefix %q", got[:20])
	}
}

func TestCleanTruncatesEpilogue(t *testing.T) {
	got, err := Clean(goodDoc + "\n\nLet me know if you need changes!")
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if !strings.HasSuffix(got, "</html>") {
		t.Errorf("trailing text must be removed, got suffix %q", got[len(got)-30:])
	}
}

func TestCleanAddsDoctype(t *testing.T) {
	got, err := Clean("<html><head></head><body>x</body></html>")
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	if !strings.HasPrefix(got, "<!DOCTYPE html>") {
		t.Error("missing DOCTYPE must be prepended")
	}
}

func TestCleanRepairsMissingClosers(t *testing.T) {
	// Truncated output: token limit ate the closing tags.
	truncated := "<!DOCTYPE html>\n<html><head><style>body{}</style></head><body><p>cut off"
	got, err := Clean(truncated)
	if err != nil {
		t.Fatalf("truncated document should be repairable: %v", err)
	}
	if !strings.HasSuffix(got, "</html>") {
		t.Error("repaired document must end with </html>")
	}
	if !strings.Contains(got, "</body>") {
		t.Error("repaired document must contain </body>")
	}
	bodyClose := strings.Index(got, "</body>")
	htmlClose := strings.Index(got, "</html>")
	if bodyClose > htmlClose {
		t.Error("</body> must precede </html>")
	}
}

func TestCleanRepairsMissingHeadClose(t *testing.T) {
	got, err := Clean("<!DOCTYPE html>\n<html><head><title>t</title><body>x</body></html>")
	if err != nil {
		t.Fatalf("Clean returned error: %v", err)
	}
	headClose := strings.Index(got, "</head>")
	bodyOpen := strings.Index(got, "<body")
	if headClose < 0 || headClose > bodyOpen {
		t.Error("synthesized </head> must appear before <body>")
	}
}

func TestCleanMissingOpeningTagsFatal(t *testing.T) {
	cases := map[string]string{
		"no html": "<!DOCTYPE html>\n<head></head><body>x</body>",
		"no head": "<!DOCTYPE html>\n<html><body>x</body></html>",
		"no body": "<!DOCTYPE html>\n<html><head></head></html>",
		"prose":   "I cannot generate that page.",
	}
	for name, input := range cases {
		_, err := Clean(input)
		if err == nil {
			t.Errorf("%s: expected error, got none", name)
			continue
		}
		var malformed *MalformedOutputError
		if !errors.As(err, &malformed) {
			t.Errorf("%s: expected MalformedOutputError, got %T", name, err)
		}
	}
}

func TestCleanAttributedTagsAccepted(t *testing.T) {
	doc := `<!DOCTYPE html><html lang="en"><head></head><body class="dark">x</body></html>`
	if _, err := Clean(doc); err != nil {
		t.Errorf("tags with attributes must be recognized: %v", err)
	}
}
