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

import "time"

// Export artifact types accepted by the export endpoint and the bridge.
const (
	ExportProjectFiles = "projectFiles"
	ExportPromptLog    = "promptLog"
	ExportFullSession  = "fullSession"
)

// ValidExportType reports whether t names a known export artifact.
func ValidExportType(t string) bool {
	switch t {
	case ExportProjectFiles, ExportPromptLog, ExportFullSession:
		return true
	}
	return false
}

// ProjectConfig is the project identity portion of a session export.
type ProjectConfig struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
}

// SessionExport is the full-session snapshot wire format. It round-trips
// through JSON without loss so an exported session can be re-imported.
type SessionExport struct {
	ProjectConfig     ProjectConfig     `json:"projectConfig"`
	VisitedPages      []string          `json:"visitedPages"`
	PageCache         map[string]string `json:"pageCache"`
	GenerationPrompts []string          `json:"generationPrompts"`
	SessionStartTime  time.Time         `json:"sessionStartTime"`
}

// Export builds the snapshot for this session. The page cache is re-keyed by
// path (latest generation wins) since fingerprints are a server detail.
func (s *Session) Export() SessionExport {
	byPath := make(map[string]string, len(s.Pages))
	for _, entry := range s.Pages {
		if html, ok := s.PageCache[entry.Fingerprint]; ok {
			byPath[entry.Path] = html
		}
	}
	exp := SessionExport{
		ProjectConfig: ProjectConfig{
			Name:         s.ProjectName,
			Instructions: s.BaseInstructions,
		},
		VisitedPages:      append([]string(nil), s.VisitedPaths()...),
		PageCache:         byPath,
		GenerationPrompts: append([]string(nil), s.Prompts...),
		SessionStartTime:  s.CreatedAt,
	}
	return exp
}
