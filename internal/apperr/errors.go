// Package apperr defines the error taxonomy shared between the pipeline
// and the HTTP layer. Handlers translate these into statuses and short
// user-facing messages; raw provider text never crosses the API boundary.
package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrPackNotFound reports that no bundle exists for the requested pack id.
	ErrPackNotFound = errors.New("pack not found")

	// ErrProviderNotConfigured reports a live-mode request without credentials.
	ErrProviderNotConfigured = errors.New("provider API key is not configured")
)

// BundleError rejects a pack upload or load with an incomplete or invalid bundle.
type BundleError struct {
	Reason  string
	Missing []string
}

func (e *BundleError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("incomplete pack bundle: missing %s", strings.Join(e.Missing, ", "))
	}
	return e.Reason
}

// RateLimitError reports a denied per-minute window check.
type RateLimitError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s scope", e.Scope)
}

// BudgetError reports an exhausted hourly call budget.
type BudgetError struct {
	RetryAfter time.Duration
}

func (e *BudgetError) Error() string { return "hourly API budget exhausted" }
