package llm

import (
	"context"
	"encoding/json"
)

// Fake returns deterministic payloads per shape for offline runs and
// tests. Scripted responses, when present, are consumed first in order;
// scripted errors likewise.
type Fake struct {
	Responses []json.RawMessage
	Errors    []error
	Calls     []Request
}

func (f *Fake) Name() string { return "FakeLLM" }
func (f *Fake) Close() error { return nil }

func (f *Fake) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	f.Calls = append(f.Calls, req)
	if len(f.Errors) > 0 {
		err := f.Errors[0]
		f.Errors = f.Errors[1:]
		if err != nil {
			return nil, err
		}
	}
	if len(f.Responses) > 0 {
		out := f.Responses[0]
		f.Responses = f.Responses[1:]
		return out, nil
	}
	switch req.Shape {
	case ShapeDigest:
		return json.RawMessage(fakeDigestJSON), nil
	case ShapeSelfcheck:
		return json.RawMessage(fakeSelfcheckJSON), nil
	default:
		return json.RawMessage(`{}`), nil
	}
}

const fakeDigestJSON = `{
  "executive_summary": "Placeholder digest produced without a provider call.",
  "what_changed": [{"change": "fake change", "impact": "low", "evidence": []}],
  "deadlines": [],
  "action_checklist": [{"action": "fake action", "priority": "P2", "evidence": []}],
  "risk_flags": [],
  "provenance": [{"source_id": "fake", "location": "n/a", "type": "diff"}],
  "meta": {"mode": "live", "model": "FakeLLM", "token_estimate": "~0 tokens"}
}`

const fakeSelfcheckJSON = `{
  "valid_json": true,
  "schema_pass": true,
  "word_limits_ok": true,
  "safety_ok": true,
  "notes": "fake selfcheck output"
}`
