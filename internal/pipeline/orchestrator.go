package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"civicdiff/internal/diffkit"
	"civicdiff/internal/digest"
	"civicdiff/internal/llm"
	"civicdiff/internal/packs"
)

// Step statuses.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusError   = "error"
)

// Step is one observable stage of a run. Created fresh per run, mutated
// in place, discarded at run end.
type Step struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Status     string `json:"status"`
	DurationMs int64  `json:"durationMs,omitempty"`
	Error      string `json:"error,omitempty"`
}

// StepSink receives a snapshot of a step on every transition.
type StepSink func(Step)

// RunRequest describes one analysis run.
type RunRequest struct {
	PackID        string
	Mode          string
	Model         string
	ThinkingLevel string
	UseAgentic    bool
	// SkipSelfcheck marks the selfcheck step as a non-fatal error
	// without calling the provider; set when its admission window is
	// exhausted.
	SkipSelfcheck bool
	Sink          StepSink
}

// Result is what a completed run returns to the HTTP layer.
type Result struct {
	Mode        string            `json:"mode"`
	Digest      digest.Digest     `json:"digest"`
	Selfcheck   *digest.Selfcheck `json:"selfcheck,omitempty"`
	Steps       []Step            `json:"steps"`
	ToolCalls   []string          `json:"toolCalls,omitempty"`
	TotalTokens int               `json:"totalTokens"`
}

// Orchestrator sequences one run. It is limiter-unaware; admission
// happens before Run is called.
type Orchestrator struct {
	Repo  *packs.Repository
	Model *ModelClient
	Log   *zap.Logger
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}

type runState struct {
	steps []Step
	sink  StepSink
}

func newRunState(sink StepSink, ids ...[2]string) *runState {
	rs := &runState{sink: sink}
	for _, p := range ids {
		rs.steps = append(rs.steps, Step{ID: p[0], Label: p[1], Status: StatusPending})
	}
	return rs
}

func (rs *runState) emit(i int) {
	if rs.sink != nil {
		rs.sink(rs.steps[i])
	}
}

// run executes stage i, stamping status and duration. fn's error marks
// the step; fatality is the caller's decision.
func (rs *runState) run(i int, fn func() error) error {
	rs.steps[i].Status = StatusRunning
	rs.emit(i)
	start := time.Now()
	err := fn()
	rs.steps[i].DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		rs.steps[i].Status = StatusError
		rs.steps[i].Error = err.Error()
	} else {
		rs.steps[i].Status = StatusDone
	}
	rs.emit(i)
	return err
}

// Run dispatches on mode. Any mode other than "live" runs the demo path.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*Result, error) {
	if req.Mode == "live" {
		return o.RunLive(ctx, req)
	}
	return o.RunDemo(ctx, req)
}

// RunDemo replays the pack's golden digest through the full step
// sequence. The only fatal path is a bundle that fails to load; a golden
// fixture that drifted out of schema is surfaced as a validate-step
// error with the digest still returned.
func (o *Orchestrator) RunDemo(ctx context.Context, req RunRequest) (*Result, error) {
	rs := newRunState(req.Sink,
		[2]string{"load", "Load pack"},
		[2]string{"fetch", "Fetch sources"},
		[2]string{"diff", "Compute diff"},
		[2]string{"analyze", "Analyze changes"},
		[2]string{"validate", "Validate digest"},
	)

	var bundle *packs.Bundle
	if err := rs.run(0, func() error {
		var err error
		bundle, err = o.Repo.Load(ctx, req.PackID)
		return err
	}); err != nil {
		return &Result{Mode: "demo", Steps: rs.steps}, err
	}

	// Fixture snapshots are already on disk; fetch is a formality.
	_ = rs.run(1, func() error { return nil })

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var diff string
	_ = rs.run(2, func() error {
		diff = diffkit.Unified(bundle.OldSnapshot, bundle.NewSnapshot)
		return nil
	})

	total := diffkit.EstimateTokens(bundle.OldSnapshot + bundle.NewSnapshot + diff + bundle.Policy)
	var dg digest.Digest
	_ = rs.run(3, func() error {
		dg = bundle.Golden
		dg.Meta = digest.Meta{
			Mode:          "demo",
			Model:         llm.DefaultModel,
			TokenEstimate: diffkit.FormatTokens(total),
		}
		return nil
	})

	_ = rs.run(4, func() error { return digest.ValidateDigest(&dg) })

	o.logger().Info("demo run complete", zap.String("pack", req.PackID))
	return &Result{Mode: "demo", Digest: dg, Steps: rs.steps, TotalTokens: total}, nil
}

// RunLive calls the provider for the digest and a follow-up selfcheck.
// Only the analyze stage is fatal; validate and selfcheck failures are
// recorded on their steps and the digest is returned regardless.
func (o *Orchestrator) RunLive(ctx context.Context, req RunRequest) (*Result, error) {
	rs := newRunState(req.Sink,
		[2]string{"load", "Load pack"},
		[2]string{"fetch", "Fetch sources"},
		[2]string{"diff", "Compute diff"},
		[2]string{"analyze", "Analyze changes"},
		[2]string{"validate", "Validate digest"},
		[2]string{"selfcheck", "Self-check"},
	)

	var bundle *packs.Bundle
	if err := rs.run(0, func() error {
		var err error
		bundle, err = o.Repo.Load(ctx, req.PackID)
		return err
	}); err != nil {
		return &Result{Mode: "live", Steps: rs.steps}, err
	}

	_ = rs.run(1, func() error { return nil })

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var diff string
	_ = rs.run(2, func() error {
		diff = diffkit.Unified(bundle.OldSnapshot, bundle.NewSnapshot)
		return nil
	})

	model := req.Model
	if model == "" {
		model = llm.DefaultModel
	}
	total := diffkit.EstimateTokens(bundle.OldSnapshot + bundle.NewSnapshot + diff + bundle.Policy)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var dg digest.Digest
	var toolCalls []string
	if err := rs.run(3, func() error {
		var err error
		if req.UseAgentic {
			dg, toolCalls, err = o.Model.RunAgentic(ctx, AgenticRequest{
				System:      bundle.SystemPrompt,
				Task:        bundle.DigestTaskPrompt,
				OldSnapshot: bundle.OldSnapshot,
				NewSnapshot: bundle.NewSnapshot,
				Policy:      bundle.Policy,
				Model:       model,
			})
		} else {
			dg, err = o.Model.GenerateDigest(ctx, DigestRequest{
				System:        bundle.SystemPrompt,
				Task:          bundle.DigestTaskPrompt,
				OldSnapshot:   bundle.OldSnapshot,
				NewSnapshot:   bundle.NewSnapshot,
				Diff:          diff,
				Policy:        bundle.Policy,
				Model:         model,
				ThinkingLevel: req.ThinkingLevel,
			})
		}
		return err
	}); err != nil {
		o.logger().Warn("live analyze failed", zap.String("pack", req.PackID), zap.Error(err))
		return &Result{Mode: "live", Steps: rs.steps, ToolCalls: toolCalls}, err
	}
	// The model is asked to fill meta, but the orchestrator's stamp is
	// authoritative.
	dg.Meta = digest.Meta{
		Mode:          "live",
		Model:         model,
		TokenEstimate: diffkit.FormatTokens(total),
	}

	_ = rs.run(4, func() error { return digest.ValidateDigest(&dg) })

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sc *digest.Selfcheck
	_ = rs.run(5, func() error {
		if req.SkipSelfcheck {
			return errors.New("selfcheck skipped: rate limited")
		}
		got, err := o.Model.GenerateSelfcheck(ctx, dg, bundle.SelfcheckTaskPrompt, model)
		if err != nil {
			return err
		}
		sc = &got
		return digest.ValidateSelfcheck(&got)
	})

	o.logger().Info("live run complete",
		zap.String("pack", req.PackID),
		zap.String("model", model),
		zap.Bool("agentic", req.UseAgentic),
	)
	return &Result{
		Mode:        "live",
		Digest:      dg,
		Selfcheck:   sc,
		Steps:       rs.steps,
		ToolCalls:   toolCalls,
		TotalTokens: total,
	}, nil
}
