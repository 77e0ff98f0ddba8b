package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingClient struct {
	calls int
	errs  []error
	out   json.RawMessage
}

func (c *countingClient) Name() string { return "counting" }
func (c *countingClient) Close() error { return nil }

func (c *countingClient) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	c.calls++
	if c.calls <= len(c.errs) {
		return nil, c.errs[c.calls-1]
	}
	return c.out, nil
}

func TestRetryTransientExhaustsAttempts(t *testing.T) {
	inner := &countingClient{errs: []error{
		&TransientError{Err: errors.New("503 UNAVAILABLE")},
		&TransientError{Err: errors.New("503 UNAVAILABLE")},
		&TransientError{Err: errors.New("503 UNAVAILABLE")},
		&TransientError{Err: errors.New("503 UNAVAILABLE")},
	}}
	cli := Chain(inner, Retry(3, time.Millisecond, 4*time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), Request{Prompt: "p"})
	require.Error(t, err)
	require.True(t, IsTransient(err))
	require.Equal(t, 4, inner.calls, "1 initial attempt + 3 retries")
}

func TestRetryRecoversAfterTransient(t *testing.T) {
	inner := &countingClient{
		errs: []error{&TransientError{Err: errors.New("model overloaded")}},
		out:  json.RawMessage(`{"ok":true}`),
	}
	cli := Chain(inner, Retry(3, time.Millisecond, 4*time.Millisecond))

	out, err := cli.GenerateJSON(context.Background(), Request{Prompt: "p"})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, string(out))
	require.Equal(t, 2, inner.calls)
}

func TestRetryQuotaFailsFast(t *testing.T) {
	inner := &countingClient{errs: []error{
		&QuotaError{RetryAfter: 30 * time.Second, Err: errors.New("RESOURCE_EXHAUSTED")},
	}}
	cli := Chain(inner, Retry(3, time.Millisecond, 4*time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), Request{Prompt: "p"})
	var q *QuotaError
	require.ErrorAs(t, err, &q)
	require.Equal(t, 1, inner.calls, "quota errors must not be retried")
}

func TestRetryFatalFailsFast(t *testing.T) {
	inner := &countingClient{errs: []error{
		&FatalError{Err: errors.New("API key not valid")},
	}}
	cli := Chain(inner, Retry(3, time.Millisecond, 4*time.Millisecond))

	_, err := cli.GenerateJSON(context.Background(), Request{Prompt: "p"})
	var f *FatalError
	require.ErrorAs(t, err, &f)
	require.Equal(t, 1, inner.calls)
}

func TestRetryHonorsContextCancel(t *testing.T) {
	inner := &countingClient{errs: []error{
		&TransientError{Err: errors.New("503")},
		&TransientError{Err: errors.New("503")},
	}}
	cli := Chain(inner, Retry(3, time.Hour, time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := cli.GenerateJSON(ctx, Request{Prompt: "p"})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, inner.calls)
}
