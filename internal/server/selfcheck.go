package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"civicdiff/internal/apperr"
	"civicdiff/internal/digest"
	"civicdiff/internal/llm"
	"civicdiff/internal/ratelimit"
)

type selfcheckRequest struct {
	Digest *digest.Digest `json:"digest"`
	PackID string         `json:"packId"`
	Model  string         `json:"model"`
}

type selfcheckResponse struct {
	Success bool              `json:"success"`
	Local   digest.Selfcheck  `json:"local"`
	AI      *digest.Selfcheck `json:"ai"`
}

// handleSelfcheck re-checks a submitted digest outside of a run. The
// local verdict is always produced; the model's second opinion is added
// when a key is configured and a packId supplies the selfcheck prompt.
// Shares the selfcheck per-minute window with live runs.
func (s *Server) handleSelfcheck(w http.ResponseWriter, r *http.Request) {
	var req selfcheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body", Code: "validation"})
		return
	}
	if req.Digest == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "digest is required", Code: "validation"})
		return
	}
	if req.Model != "" && !llm.IsSupported(req.Model) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unsupported model", Code: "validation"})
		return
	}
	client := clientID(r)
	if res := s.deps.Limiter.Check("selfcheck:"+client, ratelimit.SelfcheckConfig()); !res.Allowed {
		s.writeError(w, &apperr.RateLimitError{Scope: "selfcheck", RetryAfter: res.RetryAfter})
		return
	}

	resp := selfcheckResponse{Success: true, Local: localVerdict(req.Digest)}
	// The model's opinion is best-effort; any failure leaves it out.
	if s.deps.Config.HasKey() && req.PackID != "" {
		resp.AI = s.aiVerdict(r, req)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) aiVerdict(r *http.Request, req selfcheckRequest) *digest.Selfcheck {
	bundle, err := s.deps.Repo.Load(r.Context(), req.PackID)
	if err != nil {
		return nil
	}
	model := req.Model
	if model == "" {
		model = llm.DefaultModel
	}
	sc, err := s.deps.Orchestrator.Model.GenerateSelfcheck(r.Context(), *req.Digest, bundle.SelfcheckTaskPrompt, model)
	if err != nil || digest.ValidateSelfcheck(&sc) != nil {
		return nil
	}
	return &sc
}

// localVerdict runs the structural validator and splits its outcome into
// the selfcheck booleans the dashboard shows.
func localVerdict(d *digest.Digest) digest.Selfcheck {
	verr := digest.ValidateDigest(d)
	wordsOK := len(strings.Fields(d.ExecutiveSummary)) <= digest.MaxSummaryWords &&
		len(d.WhatChanged) <= digest.MaxWhatChanged &&
		len(d.Deadlines) <= digest.MaxDeadlines &&
		len(d.ActionChecklist) <= digest.MaxActions &&
		len(d.RiskFlags) <= digest.MaxRiskFlags

	notes := "All checks passed. Digest conforms to schema and word limits."
	if verr != nil {
		msg := verr.Error()
		if len(msg) > 80 {
			msg = msg[:80]
		}
		notes = "Validation error: " + msg
	}
	return digest.Selfcheck{
		ValidJSON:    true,
		SchemaPass:   verr == nil,
		WordLimitsOK: wordsOK,
		SafetyOK:     true,
		Notes:        notes,
	}
}
