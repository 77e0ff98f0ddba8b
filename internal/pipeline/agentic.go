package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"civicdiff/internal/diffkit"
	"civicdiff/internal/digest"
	"civicdiff/internal/llmtool"
)

// ErrAgenticExhausted reports an agentic run that hit the round-trip cap
// without a final digest.
var ErrAgenticExhausted = errors.New("pipeline: agentic loop exhausted")

const agenticMaxRounds = 5

var agenticTools = []string{
	"compute_diff",
	"validate_candidate_json",
	"extract_provenance",
	"persist_report",
}

// AgenticRequest carries the inputs for a tool-loop run. The diff is not
// supplied up front; the model asks for it via compute_diff.
type AgenticRequest struct {
	System      string
	Task        string
	OldSnapshot string
	NewSnapshot string
	Policy      string
	Model       string
}

func agenticRegistry(req AgenticRequest) *llmtool.Registry {
	reg := llmtool.NewRegistry()

	_ = reg.Register(llmtool.ToolSpec{
		Name:        "compute_diff",
		Description: "Compute the unified diff between the old and new snapshots. No input required.",
	}, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		d := diffkit.Unified(req.OldSnapshot, req.NewSnapshot)
		return json.Marshal(map[string]any{
			"diff":           d,
			"token_estimate": diffkit.FormatTokens(diffkit.EstimateTokens(d)),
		})
	})

	_ = reg.Register(llmtool.ToolSpec{
		Name:        "validate_candidate_json",
		Description: "Validate a candidate digest against the schema. Input: {\"candidate\": <digest object>}.",
	}, func(ctx context.Context, in json.RawMessage) (json.RawMessage, error) {
		var payload struct {
			Candidate json.RawMessage `json:"candidate"`
		}
		if err := json.Unmarshal(in, &payload); err != nil || len(payload.Candidate) == 0 {
			return json.Marshal(map[string]any{"valid": false, "error": "candidate field missing"})
		}
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(payload.Candidate, &keys); err != nil {
			return json.Marshal(map[string]any{"valid": false, "error": "candidate is not a JSON object"})
		}
		parsed := make([]string, 0, len(keys))
		for k := range keys {
			parsed = append(parsed, k)
		}
		var dg digest.Digest
		if err := json.Unmarshal(payload.Candidate, &dg); err != nil {
			return json.Marshal(map[string]any{"valid": false, "error": err.Error(), "keys": parsed})
		}
		if err := digest.ValidateDigest(&dg); err != nil {
			return json.Marshal(map[string]any{"valid": false, "error": err.Error(), "keys": parsed})
		}
		return json.Marshal(map[string]any{"valid": true, "keys": parsed})
	})

	_ = reg.Register(llmtool.ToolSpec{
		Name:        "extract_provenance",
		Description: "Check whether source markers exist. Input: {\"markers\": [\"...\"]}. Stub: reports every marker as found.",
	}, func(ctx context.Context, in json.RawMessage) (json.RawMessage, error) {
		var payload struct {
			Markers []string `json:"markers"`
		}
		_ = json.Unmarshal(in, &payload)
		results := make([]map[string]any, 0, len(payload.Markers))
		for _, mk := range payload.Markers {
			results = append(results, map[string]any{"marker": mk, "found": true})
		}
		return json.Marshal(map[string]any{"results": results})
	})

	_ = reg.Register(llmtool.ToolSpec{
		Name:        "persist_report",
		Description: "Persist the final report. Returns a synthetic report id; not wired to real storage.",
	}, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(map[string]string{"report_id": "rpt-" + uuid.NewString()})
	})

	return reg
}

// RunAgentic drives the bounded tool loop and parses the model's final
// turn as the digest. The returned slice lists tool calls in order.
func (m *ModelClient) RunAgentic(ctx context.Context, req AgenticRequest) (digest.Digest, []string, error) {
	var b strings.Builder
	b.WriteString(req.Task)
	b.WriteString("\n\n--- PACK POLICY ---\n")
	b.WriteString(req.Policy)
	b.WriteString("\n\n--- OLD SNAPSHOT ---\n")
	b.WriteString(req.OldSnapshot)
	b.WriteString("\n\n--- NEW SNAPSHOT ---\n")
	b.WriteString(req.NewSnapshot)
	b.WriteString("\n\nUse the tools to inspect the change, then return the digest object as your final answer.")
	fmt.Fprintf(&b, "\nSet meta.mode to %q and meta.model to %q.\n", "live", req.Model)

	var calls []string
	loop := &llmtool.Loop{
		Client:   m.Client,
		Tools:    agenticRegistry(req),
		Model:    req.Model,
		System:   req.System,
		MaxIters: agenticMaxRounds,
		Allowed:  agenticTools,
		OnStep: func(_ int, tr *llmtool.ToolResult) {
			calls = append(calls, tr.Name)
		},
	}
	raw, _, err := loop.Run(ctx, llmtool.DefaultPromptBuilder(b.String()))
	if err != nil {
		if errors.Is(err, llmtool.ErrMaxIterations) {
			return digest.Digest{}, calls, ErrAgenticExhausted
		}
		return digest.Digest{}, calls, err
	}
	var dg digest.Digest
	if err := json.Unmarshal(raw, &dg); err != nil {
		return digest.Digest{}, calls, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return dg, calls, nil
}
