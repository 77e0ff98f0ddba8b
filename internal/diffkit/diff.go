// Package diffkit computes the unified diff and the token estimates the
// pipeline feeds to the model. Pure functions, no error conditions: any
// two strings are valid input.
package diffkit

import (
	"fmt"
	"math"

	"github.com/pmezard/go-difflib/difflib"
)

// contextLines matches the source-document diffs the prompts were tuned on.
const contextLines = 3

// Unified returns a unified diff between the old and new snapshots with
// three lines of context. Deterministic for identical inputs; identical
// snapshots yield a diff with no added or removed lines.
func Unified(oldText, newText string) string {
	out, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: "old version",
		ToFile:   "new version",
		Context:  contextLines,
	})
	if err != nil {
		// GetUnifiedDiffString only fails on writer errors; a string
		// builder cannot produce one.
		return ""
	}
	return out
}

// EstimateTokens approximates the token count of text. Roughly 4 chars
// per token for English, closer to 3 for mixed content; used for display
// and budgeting only, never for correctness.
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(len(text)) / 3.5))
}

// FormatTokens renders a token estimate for the digest meta field.
func FormatTokens(tokens int) string {
	if tokens < 1000 {
		return fmt.Sprintf("~%d tokens", tokens)
	}
	return fmt.Sprintf("~%.1fK tokens", float64(tokens)/1000)
}
