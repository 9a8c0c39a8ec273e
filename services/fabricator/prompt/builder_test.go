// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
)

func TestPageName(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/", "homepage"},
		{"/about", "about"},
		// Only the leading slash is stripped.
		{"/docs/api", "docs/api"},
	}
	for _, tc := range cases {
		if got := PageName(tc.path); got != tc.want {
			t.Errorf("PageName(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestBuildInitPromptDefaults(t *testing.T) {
	p := BuildInitPrompt("Acme", "")
	if !strings.Contains(p, `"Acme"`) {
		t.Error("init prompt missing project name")
	}
	if !strings.Contains(p, defaultInitInstructions) {
		t.Error("init prompt missing default instructions")
	}
	if !strings.Contains(p, NavigationScript) {
		t.Error("init prompt missing navigation script")
	}
}

func TestBuildPagePromptFirstPage(t *testing.T) {
	p := BuildPagePrompt("/", "Acme", "", "", nil)
	if !strings.Contains(p, "This is the first page for this project.") {
		t.Error("first-page prompt missing first-page marker")
	}
	if !strings.Contains(p, "homepage") {
		t.Error("root path should be described as homepage")
	}
	if !strings.Contains(p, NavigationScript) {
		t.Error("page prompt missing navigation script")
	}
	if !strings.Contains(p, noCustomInstructions) {
		t.Error("empty custom instructions should render as the placeholder")
	}
}

func TestBuildPagePromptListsPriorPages(t *testing.T) {
	pages := []datatypes.PageLogEntry{
		{Path: "/", GeneratedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
		{Path: "/about", GeneratedAt: time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)},
	}
	p := BuildPagePrompt("/pricing", "Acme", "dark theme", "use tables", pages)
	if !strings.Contains(p, "PREVIOUSLY GENERATED PAGES:") {
		t.Error("prompt missing prior-pages section")
	}
	if !strings.Contains(p, "- / (generated 2025-06-01 10:00:00)") {
		t.Error("prompt missing first prior page entry")
	}
	if !strings.Contains(p, "- /about (generated 2025-06-01 10:05:00)") {
		t.Error("prompt missing second prior page entry")
	}
	if !strings.Contains(p, "use tables") {
		t.Error("prompt missing custom instructions")
	}
}

func TestBuildPagePromptDeterministic(t *testing.T) {
	pages := []datatypes.PageLogEntry{
		{Path: "/", GeneratedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)},
	}
	a := BuildPagePrompt("/x", "Acme", "i", "c", pages)
	b := BuildPagePrompt("/x", "Acme", "i", "c", pages)
	if a != b {
		t.Error("identical inputs must produce identical prompts")
	}
}
