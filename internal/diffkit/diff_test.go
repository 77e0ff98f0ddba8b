package diffkit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnified_Deterministic(t *testing.T) {
	oldText := "line one\nline two\nline three\n"
	newText := "line one\nline 2\nline three\n"

	first := Unified(oldText, newText)
	second := Unified(oldText, newText)
	assert.Equal(t, first, second, "identical inputs must yield byte-identical output")
	assert.Contains(t, first, "-line two")
	assert.Contains(t, first, "+line 2")
	assert.Contains(t, first, "old version")
	assert.Contains(t, first, "new version")
}

func TestUnified_NoChanges(t *testing.T) {
	text := "alpha\nbeta\ngamma\n"
	out := Unified(text, text)
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
			t.Fatalf("unexpected added line in no-op diff: %q", line)
		}
		if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
			t.Fatalf("unexpected removed line in no-op diff: %q", line)
		}
	}
}

func TestUnified_EmptyInputs(t *testing.T) {
	assert.NotPanics(t, func() { Unified("", "") })
	out := Unified("", "something\n")
	assert.Contains(t, out, "+something")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 2, EstimateTokens("abcdefg")) // ceil(7/3.5)
	assert.Equal(t, 100, EstimateTokens(strings.Repeat("x", 350)))
}

func TestFormatTokens(t *testing.T) {
	assert.Equal(t, "~999 tokens", FormatTokens(999))
	assert.Equal(t, "~1.2K tokens", FormatTokens(1200))
	assert.Equal(t, "~10.0K tokens", FormatTokens(10000))
}
