// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prompt assembles the model prompts for session initialization and
// page generation. Prompt assembly is deterministic: the same inputs always
// produce byte-identical prompts, which is what makes generation fingerprints
// meaningful.
package prompt

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/mirage/services/fabricator/datatypes"
)

// Defaults substituted when the user supplies no instructions.
const (
	defaultInitInstructions = "Create a modern, professional website"
	defaultPageInstructions = "Create a professional website"
	noCustomInstructions    = "None provided"
)

// PageName derives a human-readable page name from a URL path. The root
// path is the homepage; otherwise the leading slash is stripped.
func PageName(path string) string {
	if path == "/" {
		return "homepage"
	}
	return strings.Replace(path, "/", "", 1)
}

// BuildInitPrompt returns the session-initialization prompt establishing the
// project identity and the rendering contract.
func BuildInitPrompt(projectName, instructions string) string {
	if instructions == "" {
		instructions = defaultInitInstructions
	}

	return fmt.Sprintf(`You are an expert web developer creating a professional website for "%s".

PROJECT CONTEXT:
- Project Name: %s
- User Instructions: %s

YOUR ROLE:
You have complete creative freedom to design and build this website. Use your expertise to create compelling, realistic pages that make sense for this project. Each page should feel authentic and professional.

CRITICAL CONSISTENCY REQUIREMENTS:
1. MAINTAIN IDENTICAL STYLING across ALL pages - same colors, fonts, spacing, layout structure
2. NEVER use images, logos, photos, or any external media files - they won't exist
3. Use CSS-only design elements: gradients, borders, shadows, geometric shapes, icons from CSS/Unicode
4. Keep the EXACT same navigation menu on every page
5. Use the SAME color scheme, typography, and design patterns throughout
6. Maintain consistent header/footer structure across all pages

TECHNICAL GUIDELINES (CRITICAL FOR RENDERING):
1. ALWAYS respond with ONLY valid HTML - no explanations, no markdown, no extra text
2. Include ALL CSS in <style> tags within the <head> section
3. Start every response with <!DOCTYPE html>
4. Use proper HTML5 structure with semantic elements
5. Make pages fully responsive and modern
6. Include realistic content - no placeholders or Lorem ipsum
7. Create logical navigation between pages
8. Ensure cross-browser compatibility
9. CRITICAL: Add navigation JavaScript to handle link clicks properly

NAVIGATION REQUIREMENTS:
- All internal links must use relative paths (e.g., "/about", "/features")
- Include JavaScript that intercepts link clicks and sends navigation messages
- Add this exact JavaScript before closing </body> tag:

%s

DESIGN CONSTRAINTS:
- NO images, logos, photos, or external media files
- NO <img> tags or background-image CSS properties
- Use CSS shapes, gradients, and Unicode symbols instead
- Create visual interest with typography, spacing, and CSS effects
- Build cohesive brand identity through consistent styling only

CREATIVE FREEDOM (within constraints):
- Design the website however you think best represents the project
- Choose appropriate colors, fonts, and layouts (but keep them consistent)
- Create realistic business content and features
- Interpret abstract URLs creatively as business concepts
- Build a cohesive brand experience through design consistency

Remember: You will generate multiple pages for this project. ABSOLUTE consistency in design, branding, navigation, and styling is critical. Be creative but maintain strict visual consistency.

Respond with "Session initialized" to confirm you understand.`,
		projectName, projectName, instructions, NavigationScript)
}

// BuildPagePrompt returns the prompt for fabricating one page. The generated
// page log is rendered into the prompt so the model knows which pages already
// exist and keeps navigation coherent.
func BuildPagePrompt(path, projectName, baseInstructions, customInstructions string,
	generatedPages []datatypes.PageLogEntry) string {

	pageName := PageName(path)
	if baseInstructions == "" {
		baseInstructions = defaultPageInstructions
	}
	if customInstructions == "" {
		customInstructions = noCustomInstructions
	}

	var previousPages strings.Builder
	if len(generatedPages) > 0 {
		previousPages.WriteString("\nPREVIOUSLY GENERATED PAGES:\n")
		for i, p := range generatedPages {
			if i > 0 {
				previousPages.WriteString("\n")
			}
			previousPages.WriteString(fmt.Sprintf("- %s (generated %s)",
				p.Path, p.GeneratedAt.Format("2006-01-02 15:04:05")))
		}
	} else {
		previousPages.WriteString("\nThis is the first page for this project.")
	}

	return fmt.Sprintf(`Generate a complete webpage for "%s" at path: %s

PROJECT CONTEXT:
- Project Name: %s
- URL Path: %s (%s)
- User's Instructions: %s
- Additional Context: %s
%s

CONTEXT FOR THIS PAGE:
You are building page "%s" for the project "%s". Use your web development expertise to create an appropriate page that fits this URL and project. Be creative in interpreting what this page should contain.

CRITICAL CONSISTENCY REQUIREMENTS:
1. Use IDENTICAL styling to previous pages - same colors, fonts, navigation, layout structure
2. NEVER include images, logos, photos, or any media files - use CSS-only design
3. Keep the EXACT same navigation menu structure and styling
4. Maintain consistent header/footer across all pages
5. Use the same color palette, typography, and spacing throughout
6. Create visual elements using CSS gradients, shapes, borders, shadows only

CRITICAL RENDERING REQUIREMENTS:
1. Respond with ONLY the complete HTML document - no explanations
2. Start with <!DOCTYPE html>
3. Include ALL CSS in <style> tags within <head>
4. Create realistic, professional content (no placeholders)
5. Make it fully responsive and modern
6. Include proper navigation to other logical pages
7. Ensure the HTML is valid and will render correctly
8. NO <img> tags or background-image properties - use CSS-only visuals
9. CRITICAL: Add navigation JavaScript before closing </body> tag

NAVIGATION JAVASCRIPT (MUST INCLUDE):
Add this exact script before </body>:

%s

DESIGN CONSISTENCY CHECKLIST:
- Same navigation menu on every page
- Identical color scheme and typography
- Consistent spacing and layout patterns
- Same header/footer structure
- Visual consistency through CSS-only elements

Generate the complete HTML page now:`,
		projectName, path,
		projectName, path, pageName, baseInstructions, customInstructions,
		previousPages.String(),
		pageName, projectName,
		NavigationScript)
}
