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
	"fmt"
	"html"
)

// ErrorPage renders the fallback document shown when generation fails. It is
// a complete self-contained page in the service's own styling, so the
// surface always has something renderable even on a 5xx.
func ErrorPage(projectName, errorMessage string) string {
	project := html.EscapeString(projectName)
	message := html.EscapeString(errorMessage)

	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en" class="dark">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Generation Error - %s</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #0a0612 0%%, #1a0a2e 100%%);
            color: #e8dcc8;
            min-height: 100vh;
            display: flex;
            align-items: center;
            justify-content: center;
            padding: 2rem;
        }

        .error-container {
            background: #1e1233;
            border-radius: 16px;
            border: 1px solid rgba(139, 92, 246, 0.2);
            padding: 3rem;
            max-width: 600px;
            text-align: center;
            box-shadow: 0 4px 20px rgba(0, 0, 0, 0.3);
        }

        .error-icon {
            width: 80px;
            height: 80px;
            background: linear-gradient(135deg, #7c3aed, #8b5cf6);
            border-radius: 50%%;
            display: flex;
            align-items: center;
            justify-content: center;
            margin: 0 auto 2rem;
            font-size: 2.5rem;
        }

        h1 {
            font-size: 2rem;
            margin-bottom: 1rem;
            color: #f0c75e;
        }

        .error-message {
            color: #e8dcc8;
            margin-bottom: 2rem;
            line-height: 1.6;
        }

        .error-detail {
            margin-top: 1rem;
            font-family: monospace;
            background: #2a1845;
            padding: 1rem;
            border-radius: 6px;
            font-size: 0.85rem;
            word-break: break-word;
        }

        .retry-info {
            background: rgba(212, 168, 67, 0.1);
            border: 1px solid #d4a843;
            border-radius: 8px;
            padding: 1rem;
            margin-top: 2rem;
        }

        .retry-info p {
            color: #d4a843;
            font-size: 0.9rem;
        }
    </style>
</head>
<body>
    <div class="error-container">
        <div class="error-icon">&#9888;</div>

        <h1>The Conjuration Failed</h1>

        <div class="error-message">
            <p>We encountered an issue while generating this page for <strong>%s</strong>.</p>
            <p class="error-detail">%s</p>
        </div>

        <div class="retry-info">
            <p>The spirits may be resting. Try refreshing or conjuring a different page.</p>
        </div>
    </div>
</body>
</html>`, project, project, message)
}
