package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidJSON reports a provider reply that is not parseable JSON.
var ErrInvalidJSON = errors.New("llm: invalid JSON from model")

// TransientError marks provider failures worth retrying: overload,
// unavailability, internal errors, deadline expiry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// QuotaError marks quota or provider-side rate-limit exhaustion. Retrying
// immediately wastes budget, so it is never retried; RetryAfter carries
// the provider's suggested wait.
type QuotaError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *QuotaError) Error() string { return e.Err.Error() }
func (e *QuotaError) Unwrap() error { return e.Err }

// FatalError marks failures that cannot resolve on their own:
// authentication problems, malformed requests.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

var retryDelayRe = regexp.MustCompile(`(?i)retry\s*(?:in|Delay['"]?:?\s*['"]?\s*)(\d+)`)

// Classify wraps a raw provider error into the taxonomy. The provider
// SDK does not expose typed errors for these cases, so classification is
// by message content, mirroring the signals the provider actually emits.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var t *TransientError
	var q *QuotaError
	var f *FatalError
	if errors.As(err, &t) || errors.As(err, &q) || errors.As(err, &f) {
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "503"),
		strings.Contains(msg, "UNAVAILABLE"),
		strings.Contains(msg, "overloaded"),
		strings.Contains(msg, "INTERNAL"),
		strings.Contains(msg, "deadline"),
		strings.Contains(msg, "500"):
		return &TransientError{Err: err}
	case strings.Contains(msg, "RESOURCE_EXHAUSTED"),
		strings.Contains(msg, "quota"),
		strings.Contains(msg, "429"):
		return &QuotaError{RetryAfter: suggestedRetry(msg), Err: err}
	default:
		return &FatalError{Err: err}
	}
}

// suggestedRetry extracts the provider's retry hint, defaulting to a
// minute for quota errors without one.
func suggestedRetry(msg string) time.Duration {
	if m := retryDelayRe.FindStringSubmatch(msg); m != nil {
		if sec, err := strconv.Atoi(m[1]); err == nil {
			return time.Duration(sec) * time.Second
		}
	}
	return time.Minute
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

func malformed(err error) error {
	return &FatalError{Err: fmt.Errorf("%w: %v", ErrInvalidJSON, err)}
}
