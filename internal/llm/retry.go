package llm

import (
	"context"
	"encoding/json"
	"time"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
	defaultMaxDelay   = 16 * time.Second
)

// Retry retries transient provider errors up to maxRetries additional
// attempts with exponential backoff: base, 2*base, 4*base... capped at
// maxDelay per wait. Quota and fatal errors propagate immediately, and a
// canceled context stops the loop. No lock is held while sleeping; only
// the one in-flight request waits.
func Retry(maxRetries int, base, maxDelay time.Duration) Middleware {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if base <= 0 {
		base = defaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}
	return func(next Client) Client {
		return &retrying{next: next, retries: maxRetries, base: base, cap: maxDelay}
	}
}

// DefaultRetry is the production policy: 4 total attempts, 2s/4s/8s waits.
func DefaultRetry() Middleware {
	return Retry(defaultMaxRetries, defaultBaseDelay, defaultMaxDelay)
}

type retrying struct {
	next    Client
	retries int
	base    time.Duration
	cap     time.Duration
}

func (r *retrying) Name() string { return r.next.Name() }
func (r *retrying) Close() error { return r.next.Close() }

func (r *retrying) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		out, err := r.next.GenerateJSON(ctx, req)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == r.retries || !IsTransient(err) {
			return nil, err
		}
		delay := r.base << attempt
		if delay > r.cap {
			delay = r.cap
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, lastErr
}
