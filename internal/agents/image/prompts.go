package image

import (
	"fmt"
	"strings"
)

func candidatePrompt(description, strategy string) string {
	return fmt.Sprintf(`Generate SVG code for an educational diagram:

DESCRIPTION: %s

STYLE REQUIREMENTS (SAT-style exam diagram):
- Pure white background (#FFFFFF)
- Black lines and text (#000000), stroke-width: 2px
- Sans-serif font (Arial or Helvetica)
- Clean, precise lines - no gradients, shadows, or 3D effects
- Size: 400x300px viewBox
- Clear labels positioned to avoid overlap

STRATEGY: %s

OUTPUT: Return ONLY valid SVG code starting with <svg and ending with </svg>.
No explanations or markdown.`, description, strategy)
}

func judgePrompt(description string, candidates []string) string {
	var b strings.Builder
	for i, svg := range candidates {
		fmt.Fprintf(&b, "=== CANDIDATE %d ===\n%s\n\n", i+1, svg)
	}
	return fmt.Sprintf(`You are judging SVG diagram candidates for this description:

DESCRIPTION: %s

CANDIDATES:
%s
Evaluate each candidate on:
1. Accuracy - Does it correctly represent the description?
2. Clarity - Are elements clearly visible and well-positioned?
3. Completeness - Are all required elements present?

Return ONLY the number of the best candidate (1, 2, or 3). Nothing else.`, description, b.String())
}

func criticPrompt(description, svg string) string {
	return fmt.Sprintf(`Analyze this SVG diagram and identify 1-2 specific issues:

DESCRIPTION: %s

SVG:
%s

Identify issues using QUALITATIVE descriptions (not exact coordinates):
- Element positioning: "the circle should be more centered", "labels overlap"
- Missing elements: "needs a label for X"
- Proportions: "the rectangle is too wide relative to height"

If the SVG is already good, respond with "APPROVED".
Otherwise, list 1-2 specific issues to fix.`, description, svg)
}

func refinePrompt(description, svg, critique string) string {
	return fmt.Sprintf(`Improve this SVG based on the following critique:

ORIGINAL SVG:
%s

CRITIQUE:
%s

DESCRIPTION: %s

Generate an improved SVG that addresses the critique.
Return ONLY the complete SVG code, no explanations.`, svg, critique, description)
}
