package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"civicdiff/internal/apperr"
	"civicdiff/internal/llm"
	"civicdiff/internal/pipeline"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error        string   `json:"error"`
	Code         string   `json:"code,omitempty"`
	RetryAfterMs int64    `json:"retryAfterMs,omitempty"`
	Missing      []string `json:"missing,omitempty"`
}

// writeError translates the error taxonomy into a status and a short
// actionable message. Raw provider text never reaches the client.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		bundleErr *apperr.BundleError
		rlErr     *apperr.RateLimitError
		budgetErr *apperr.BudgetError
		transient *llm.TransientError
		quota     *llm.QuotaError
		fatal     *llm.FatalError
	)
	switch {
	case errors.Is(err, apperr.ErrPackNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "pack not found", Code: "pack_not_found"})
	case errors.Is(err, apperr.ErrProviderNotConfigured):
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error: "live mode requires a configured API key; set GEMINI_API_KEY or use demo mode",
			Code:  "provider_not_configured",
		})
	case errors.As(err, &bundleErr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: bundleErr.Error(), Code: "invalid_pack", Missing: bundleErr.Missing})
	case errors.As(err, &rlErr):
		retryAfter(w, rlErr.RetryAfter)
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:        "rate limit exceeded, slow down and retry shortly",
			Code:         "rate_limited",
			RetryAfterMs: rlErr.RetryAfter.Milliseconds(),
		})
	case errors.As(err, &budgetErr):
		retryAfter(w, budgetErr.RetryAfter)
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:        "hourly API budget exhausted, try demo mode or wait for the window to reset",
			Code:         "budget_exhausted",
			RetryAfterMs: budgetErr.RetryAfter.Milliseconds(),
		})
	case errors.As(err, &quota):
		retryAfter(w, quota.RetryAfter)
		writeJSON(w, http.StatusTooManyRequests, errorBody{
			Error:        "provider quota exceeded, wait before retrying or switch models",
			Code:         "provider_quota",
			RetryAfterMs: quota.RetryAfter.Milliseconds(),
		})
	case errors.As(err, &transient):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error: "model temporarily overloaded, try again or switch models",
			Code:  "provider_unavailable",
		})
	case errors.Is(err, pipeline.ErrMalformedOutput):
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error: "model returned malformed output, try again",
			Code:  "malformed_output",
		})
	case errors.Is(err, pipeline.ErrAgenticExhausted):
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error: "agentic run did not converge, try the standard pipeline",
			Code:  "agentic_exhausted",
		})
	case errors.As(err, &fatal):
		writeJSON(w, http.StatusBadGateway, errorBody{
			Error: "provider request failed, check the model selection and configuration",
			Code:  "provider_error",
		})
	case errors.Is(err, context.Canceled):
		writeJSON(w, statusClientClosedRequest, errorBody{Error: "request cancelled", Code: "cancelled"})
	default:
		s.log.Error("unexpected handler error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "unexpected error", Code: "internal"})
	}
}

// Nginx convention for a client that went away.
const statusClientClosedRequest = 499

func retryAfter(w http.ResponseWriter, d time.Duration) {
	secs := int64(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
}
