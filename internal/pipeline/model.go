// Package pipeline turns a loaded pack into a change digest. ModelClient
// wraps the three provider operations; Orchestrator sequences them into
// the demo and live runs the dashboard shows step by step.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"civicdiff/internal/digest"
	"civicdiff/internal/llm"
)

const (
	digestTemperature    = 0.2
	selfcheckTemperature = 0.1
)

// ErrMalformedOutput reports model output that parsed as JSON but not as
// the expected shape.
var ErrMalformedOutput = errors.New("pipeline: malformed model output")

// ModelClient issues the digest, selfcheck and agentic calls.
type ModelClient struct {
	Client llm.Client
	Log    *zap.Logger
}

func (m *ModelClient) logger() *zap.Logger {
	if m.Log == nil {
		return zap.NewNop()
	}
	return m.Log
}

// DigestRequest carries everything generate-digest embeds in its prompt.
type DigestRequest struct {
	System        string
	Task          string
	OldSnapshot   string
	NewSnapshot   string
	Diff          string
	Policy        string
	Model         string
	ThinkingLevel string
}

// GenerateDigest builds the single-shot digest prompt and parses the
// structured reply.
func (m *ModelClient) GenerateDigest(ctx context.Context, req DigestRequest) (digest.Digest, error) {
	var b strings.Builder
	b.WriteString(req.Task)
	b.WriteString("\n\n--- PACK POLICY ---\n")
	b.WriteString(req.Policy)
	b.WriteString("\n\n--- OLD SNAPSHOT ---\n")
	b.WriteString(req.OldSnapshot)
	b.WriteString("\n\n--- NEW SNAPSHOT ---\n")
	b.WriteString(req.NewSnapshot)
	b.WriteString("\n\n--- COMPUTED DIFF ---\n")
	b.WriteString(req.Diff)
	fmt.Fprintf(&b, "\n\nSet meta.mode to %q and meta.model to %q.\n", "live", req.Model)
	if req.ThinkingLevel == "high" {
		b.WriteString("Reason carefully about every change before answering.\n")
	}

	m.logger().Info("generate digest",
		zap.String("model", req.Model),
		zap.Int("prompt_bytes", b.Len()),
	)
	raw, err := m.Client.GenerateJSON(ctx, llm.Request{
		Model:       req.Model,
		System:      req.System,
		Prompt:      b.String(),
		Temperature: digestTemperature,
		Shape:       llm.ShapeDigest,
	})
	if err != nil {
		return digest.Digest{}, err
	}
	var dg digest.Digest
	if err := json.Unmarshal(raw, &dg); err != nil {
		return digest.Digest{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return dg, nil
}

// GenerateSelfcheck runs the independent second pass over a digest. It
// uses a lower temperature than digest generation; the check should be
// near-deterministic.
func (m *ModelClient) GenerateSelfcheck(ctx context.Context, dg digest.Digest, task, model string) (digest.Selfcheck, error) {
	dgJSON, err := json.MarshalIndent(dg, "", "  ")
	if err != nil {
		return digest.Selfcheck{}, err
	}
	var b strings.Builder
	b.WriteString(task)
	b.WriteString("\n\n--- DIGEST UNDER REVIEW ---\n")
	b.Write(dgJSON)
	b.WriteString("\n")

	m.logger().Info("generate selfcheck", zap.String("model", model))
	raw, err := m.Client.GenerateJSON(ctx, llm.Request{
		Model:       model,
		Prompt:      b.String(),
		Temperature: selfcheckTemperature,
		Shape:       llm.ShapeSelfcheck,
	})
	if err != nil {
		return digest.Selfcheck{}, err
	}
	var sc digest.Selfcheck
	if err := json.Unmarshal(raw, &sc); err != nil {
		return digest.Selfcheck{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return sc, nil
}
