package llmtool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

func encodeBlock(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
	return buf.String()
}

// FormatToolSpecs renders the tool specs as a JSON block for prompt
// inclusion.
func FormatToolSpecs(tools []ToolSpec) string {
	if tools == nil {
		tools = []ToolSpec{}
	}
	return encodeBlock(tools)
}

// FormatToolResults renders prior tool results as a JSON block.
func FormatToolResults(results []ToolResult) string {
	if results == nil {
		results = []ToolResult{}
	}
	return encodeBlock(results)
}

// DefaultPromptBuilder appends the tool catalog, prior results and the
// envelope contract after a task-specific base prompt.
func DefaultPromptBuilder(base string) PromptBuilder {
	return func(_ context.Context, state *State, tools []ToolSpec) (string, error) {
		if base == "" {
			return "", fmt.Errorf("llmtool: base prompt is empty")
		}
		var buf bytes.Buffer
		buf.WriteString(base)
		buf.WriteString("\n\n[TOOLS]\n")
		buf.WriteString(FormatToolSpecs(tools))
		if len(state.ToolResults) > 0 {
			buf.WriteString("\n[TOOL_RESULTS]\n")
			buf.WriteString(FormatToolResults(state.ToolResults))
		}
		buf.WriteString("\n[RESPONSE FORMAT]\n")
		buf.WriteString(`Reply with one JSON object. To call a tool: {"action":"tool","tool_name":"<name>","tool_input":{...}}. To finish: {"action":"final","final":{...}}.` + "\n")
		return buf.String(), nil
	}
}
