package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(maxPerHour int) (*Limiter, *time.Time) {
	l := New(maxPerHour)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestCheck_FixedWindow(t *testing.T) {
	l, _ := newTestLimiter(50)
	cfg := Config{Limit: 3, Window: time.Minute}

	for i, want := range []int{2, 1, 0} {
		res := l.Check("live:1.2.3.4", cfg)
		require.True(t, res.Allowed, "call %d should be allowed", i+1)
		assert.Equal(t, want, res.Remaining)
		assert.Zero(t, res.RetryAfter)
	}

	res := l.Check("live:1.2.3.4", cfg)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	other := l.Check("live:5.6.7.8", cfg)
	assert.True(t, other.Allowed, "distinct keys are independent")
}

func TestCheck_WindowExpiryReplacesEntry(t *testing.T) {
	l, now := newTestLimiter(50)
	cfg := Config{Limit: 1, Window: time.Minute}

	require.True(t, l.Check("demo:c", cfg).Allowed)
	require.False(t, l.Check("demo:c", cfg).Allowed)

	*now = now.Add(time.Minute)
	res := l.Check("demo:c", cfg)
	assert.True(t, res.Allowed, "expired window starts fresh")
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, now.Add(time.Minute), res.ResetAt)
}

func TestCheckHourlyBudget_Tracking(t *testing.T) {
	l, _ := newTestLimiter(50)

	for i := 1; i <= 3; i++ {
		res := l.CheckHourlyBudget("client")
		require.True(t, res.Allowed)
		info := l.BudgetInfo("client")
		assert.Equal(t, i, info.Used)
		assert.Equal(t, 50-i, info.Remaining)
		require.NotNil(t, info.ResetsAt)
	}
}

func TestBudgetInfo_UnseenKey(t *testing.T) {
	l, _ := newTestLimiter(50)
	info := l.BudgetInfo("stranger")
	assert.Equal(t, 0, info.Used)
	assert.Equal(t, 50, info.Max)
	assert.Equal(t, 50, info.Remaining)
	assert.Nil(t, info.ResetsAt)
}

func TestHourlyBudget_IndependentFromMinuteWindows(t *testing.T) {
	l, _ := newTestLimiter(2)
	cfg := Config{Limit: 10, Window: time.Minute}

	require.True(t, l.CheckHourlyBudget("c").Allowed)
	require.True(t, l.CheckHourlyBudget("c").Allowed)
	assert.False(t, l.CheckHourlyBudget("c").Allowed, "budget exhausted")

	assert.True(t, l.Check("live:c", cfg).Allowed, "minute window unaffected by budget keyspace")
	assert.True(t, l.Check("c", cfg).Allowed, "same literal key in minute store is separate")
}

func TestCheck_ConcurrentSameKey(t *testing.T) {
	l := New(50)
	cfg := Config{Limit: 100, Window: time.Minute}

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- l.Check("shared", cfg).Allowed
		}()
	}
	wg.Wait()
	close(allowed)

	var admitted int
	for ok := range allowed {
		if ok {
			admitted++
		}
	}
	assert.Equal(t, 100, admitted, "no lost updates under concurrent increments")
}

func TestScopeConfigs_Defaults(t *testing.T) {
	assert.Equal(t, 20, DemoConfig().Limit)
	assert.Equal(t, 5, LiveConfig().Limit)
	assert.Equal(t, SelfcheckConfig().Limit, LiveConfig().Limit)
	assert.Equal(t, time.Minute, DemoConfig().Window)
}

func TestEnvInt_Fallbacks(t *testing.T) {
	t.Setenv("MAX_LIVE_CALLS_PER_HOUR", "not-a-number")
	assert.Equal(t, 50, envInt("MAX_LIVE_CALLS_PER_HOUR", 50))
	t.Setenv("MAX_LIVE_CALLS_PER_HOUR", "7")
	assert.Equal(t, 7, envInt("MAX_LIVE_CALLS_PER_HOUR", 50))

	l := NewFromEnv()
	info := l.BudgetInfo(fmt.Sprintf("c-%d", time.Now().UnixNano()))
	assert.Equal(t, 7, info.Max)
}
