//-------------------------------------------------------------------------
//
// pgEdge Retrieval Engine
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package guideline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pgEdge/pgedge-retrieval-engine/internal/database"
)

const selectionSystemPrompt = `You select the single guideline whose condition best matches the given context.
Respond with exactly two lines:
chosen guideline id: <id>
confidence: <value between 0.0 and 1.0>
If no guideline applies well, pick the closest one and lower your confidence accordingly.`

// buildSelectionPrompt renders the shortlisted candidates for the
// selection model. Candidates keep their fused order so the model sees
// the retrieval ranking.
func buildSelectionPrompt(contextText string, candidates []database.Guideline) string {
	var b strings.Builder

	b.WriteString("Context:\n")
	b.WriteString(contextText)
	b.WriteString("\n\nCandidate guidelines:\n")

	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. id: %d\n   title: %s\n   condition: %s\n   priority: %d\n",
			i+1, c.ID, c.Title, c.Condition, c.Priority)
	}

	b.WriteString("\nWhich guideline's condition matches the context best?")
	return b.String()
}

var (
	chosenIDPattern   = regexp.MustCompile(`(?i)chosen guideline id\s*:\s*(\d+)`)
	confidencePattern = regexp.MustCompile(`(?i)confidence\s*:\s*([0-9]*\.?[0-9]+)`)
)

// parseSelection extracts the chosen guideline id and confidence from
// the model's response. A missing confidence defaults to the parse
// fallback value rather than failing the whole selection.
func parseSelection(response string) (id int64, confidence float64, ok bool) {
	idMatch := chosenIDPattern.FindStringSubmatch(response)
	if idMatch == nil {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(idMatch[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	confidence = confidenceParseFailure
	if confMatch := confidencePattern.FindStringSubmatch(response); confMatch != nil {
		if v, err := strconv.ParseFloat(confMatch[1], 64); err == nil {
			confidence = v
		}
	}

	return id, confidence, true
}
