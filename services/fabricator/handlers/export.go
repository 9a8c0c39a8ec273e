// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
	"github.com/AleutianAI/mirage/services/fabricator/engine"
	"github.com/AleutianAI/mirage/services/fabricator/store"
)

// HandleSessionExport returns the handler for
// GET /v1/sessions/:sessionId/export?type=<artifact>.
//
// Artifacts: fullSession (JSON snapshot), promptLog (plain text),
// projectFiles (tar of the generated pages). Defaults to fullSession.
func HandleSessionExport(eng *engine.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("sessionId")
		exportType := c.DefaultQuery("type", datatypes.ExportFullSession)
		if !datatypes.ValidExportType(exportType) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("unknown export type %q", exportType),
			})
			return
		}

		exp, err := eng.Export(sessionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{
					"error":     "session not found",
					"sessionId": sessionID,
				})
				return
			}
			slog.Error("Export failed", "session_id", sessionID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
			return
		}

		switch exportType {
		case datatypes.ExportFullSession:
			writeFullSession(c, sessionID, exp)
		case datatypes.ExportPromptLog:
			writePromptLog(c, sessionID, exp)
		case datatypes.ExportProjectFiles:
			writeProjectFiles(c, exp)
		}
	}
}

func writeFullSession(c *gin.Context, sessionID string, exp datatypes.SessionExport) {
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode session"})
		return
	}
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "session-"+sessionID+".json"))
	c.Data(http.StatusOK, "application/json", data)
}

func writePromptLog(c *gin.Context, sessionID string, exp datatypes.SessionExport) {
	var log strings.Builder
	log.WriteString(fmt.Sprintf("Generation prompt log for %q\n", exp.ProjectConfig.Name))
	log.WriteString(fmt.Sprintf("Session started %s\n", exp.SessionStartTime.Format(time.RFC3339)))
	for i, p := range exp.GenerationPrompts {
		log.WriteString(fmt.Sprintf("\n--- prompt %d ---\n%s\n", i+1, p))
	}
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", "prompt-log-"+sessionID+".txt"))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(log.String()))
}

// writeProjectFiles packs each generated page into a tar archive, one .html
// file per path, plus a project.json with the export metadata.
func writeProjectFiles(c *gin.Context, exp datatypes.SessionExport) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	now := time.Now()

	addFile := func(name string, content []byte) error {
		header := &tar.Header{
			Name:    name,
			Mode:    0644,
			Size:    int64(len(content)),
			ModTime: now,
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		_, err := tw.Write(content)
		return err
	}

	meta := struct {
		ProjectConfig    datatypes.ProjectConfig `json:"projectConfig"`
		VisitedPages     []string                `json:"visitedPages"`
		SessionStartTime time.Time               `json:"sessionStartTime"`
	}{exp.ProjectConfig, exp.VisitedPages, exp.SessionStartTime}
	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err == nil {
		err = addFile("project.json", metaJSON)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build archive"})
		return
	}

	paths := make([]string, 0, len(exp.PageCache))
	for p := range exp.PageCache {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := addFile(pageFileName(p), []byte(exp.PageCache[p])); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build archive"})
			return
		}
	}

	if err := tw.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build archive"})
		return
	}

	name := strings.ToLower(strings.ReplaceAll(exp.ProjectConfig.Name, " ", "-"))
	if name == "" {
		name = "project"
	}
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", name+"-files.tar"))
	c.Data(http.StatusOK, "application/x-tar", buf.Bytes())
}

// pageFileName maps a URL path to an archive entry name.
func pageFileName(path string) string {
	if path == "/" {
		return "index.html"
	}
	return strings.TrimPrefix(path, "/") + ".html"
}
