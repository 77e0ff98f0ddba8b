package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"civicdiff/internal/apperr"
	"civicdiff/internal/llm"
	"civicdiff/internal/pipeline"
	"civicdiff/internal/ratelimit"
)

type analyzeRequest struct {
	PackID        string `json:"packId"`
	Mode          string `json:"mode"`
	Model         string `json:"model"`
	ThinkingLevel string `json:"thinkingLevel"`
	UseAgentic    bool   `json:"useAgentic"`
	RunID         string `json:"runId"`
}

type analyzeResponse struct {
	Success     bool              `json:"success"`
	RunID       string            `json:"runId"`
	Mode        string            `json:"mode"`
	Digest      any               `json:"digest"`
	Selfcheck   any               `json:"selfcheck,omitempty"`
	Steps       []pipeline.Step   `json:"steps"`
	ToolCalls   []string          `json:"toolCalls,omitempty"`
	TotalTokens int               `json:"totalTokens"`
	Budget      *ratelimit.Budget `json:"budget,omitempty"`
}

// handleAnalyze admits the request through the mode's rate limits, then
// hands it to the orchestrator. Supplying a runId lets a websocket
// watcher subscribe to the run's step transitions.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body", Code: "validation"})
		return
	}
	if req.PackID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "packId is required", Code: "validation"})
		return
	}
	if req.Mode == "" {
		req.Mode = "demo"
	}
	if req.Mode != "demo" && req.Mode != "live" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "mode must be demo or live", Code: "validation"})
		return
	}
	if req.Model != "" && !llm.IsSupported(req.Model) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unsupported model", Code: "validation"})
		return
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	client := clientID(r)
	var budget *ratelimit.Budget
	skipSelfcheck := false

	if req.Mode == "live" {
		if !s.deps.Config.HasKey() {
			s.writeError(w, apperr.ErrProviderNotConfigured)
			return
		}
		if res := s.deps.Limiter.Check("live:"+client, ratelimit.LiveConfig()); !res.Allowed {
			s.writeError(w, &apperr.RateLimitError{Scope: "live", RetryAfter: res.RetryAfter})
			return
		}
		if res := s.deps.Limiter.CheckHourlyBudget(client); !res.Allowed {
			s.writeError(w, &apperr.BudgetError{RetryAfter: res.RetryAfter})
			return
		}
		// The selfcheck is a second live call with its own window. An
		// exhausted window skips the step instead of failing the run.
		if res := s.deps.Limiter.Check("selfcheck:"+client, ratelimit.SelfcheckConfig()); !res.Allowed {
			skipSelfcheck = true
		}
		b := s.deps.Limiter.BudgetInfo(client)
		budget = &b
	} else {
		if res := s.deps.Limiter.Check("demo:"+client, ratelimit.DemoConfig()); !res.Allowed {
			s.writeError(w, &apperr.RateLimitError{Scope: "demo", RetryAfter: res.RetryAfter})
			return
		}
	}

	runID := req.RunID
	result, err := s.deps.Orchestrator.Run(r.Context(), pipeline.RunRequest{
		PackID:        req.PackID,
		Mode:          req.Mode,
		Model:         req.Model,
		ThinkingLevel: req.ThinkingLevel,
		UseAgentic:    req.UseAgentic,
		SkipSelfcheck: skipSelfcheck,
		Sink: func(step pipeline.Step) {
			s.hub.publish(runID, step)
		},
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := analyzeResponse{
		Success:     true,
		RunID:       runID,
		Mode:        result.Mode,
		Digest:      result.Digest,
		Steps:       result.Steps,
		ToolCalls:   result.ToolCalls,
		TotalTokens: result.TotalTokens,
		Budget:      budget,
	}
	if result.Selfcheck != nil {
		resp.Selfcheck = result.Selfcheck
	}
	writeJSON(w, http.StatusOK, resp)
}
