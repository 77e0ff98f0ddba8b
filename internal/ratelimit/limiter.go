// Package ratelimit implements the fixed-window request counters guarding
// the analysis endpoints: per-minute windows scoped by mode, and an
// independent hourly budget capping total provider spend per client.
//
// Fixed windows are deliberate: simpler than token buckets and sufficient
// for a cost guard. Burstiness at window boundaries is an accepted
// tradeoff.
package ratelimit

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// Config sets the ceiling for one fixed window.
type Config struct {
	Limit  int
	Window time.Duration
}

// Result reports the outcome of one window check.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Budget is the read-only hourly budget view surfaced to clients.
type Budget struct {
	Used      int        `json:"used"`
	Max       int        `json:"max"`
	Remaining int        `json:"remaining"`
	ResetsAt  *time.Time `json:"resetsAt"`
}

type entry struct {
	count   int
	resetAt time.Time
}

// Limiter holds the counter stores. Construct one per process and inject
// it into handlers; each instance is fully independent, which keeps tests
// isolated.
type Limiter struct {
	mu         sync.Mutex
	store      map[string]*entry
	hourly     map[string]*entry
	maxPerHour int
	now        func() time.Time
}

const hourlyWindow = time.Hour

// New builds a limiter with the given hourly budget ceiling.
func New(maxPerHour int) *Limiter {
	if maxPerHour <= 0 {
		maxPerHour = 50
	}
	return &Limiter{
		store:      make(map[string]*entry),
		hourly:     make(map[string]*entry),
		maxPerHour: maxPerHour,
		now:        time.Now,
	}
}

// NewFromEnv reads MAX_LIVE_CALLS_PER_HOUR (default 50).
func NewFromEnv() *Limiter {
	return New(envInt("MAX_LIVE_CALLS_PER_HOUR", 50))
}

// Check performs one atomic read-check-increment against the per-minute
// store. Expired windows are replaced with a fresh entry, never
// incremented.
func (l *Limiter) Check(key string, cfg Config) Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return check(l.store, key, cfg.Limit, cfg.Window, l.now())
}

// CheckHourlyBudget counts one live call against the client's hourly
// budget. The keyspace is independent from Check: the budget caps total
// spend regardless of mode, while per-minute windows cap each mode's
// burst rate.
func (l *Limiter) CheckHourlyBudget(clientID string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return check(l.hourly, clientID, l.maxPerHour, hourlyWindow, l.now())
}

// BudgetInfo reports the client's current budget without consuming a
// call. Unseen or expired clients report zero usage and a nil reset.
func (l *Limiter) BudgetInfo(clientID string) Budget {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.hourly[clientID]
	if !ok || !l.now().Before(e.resetAt) {
		return Budget{Used: 0, Max: l.maxPerHour, Remaining: l.maxPerHour, ResetsAt: nil}
	}
	remaining := l.maxPerHour - e.count
	if remaining < 0 {
		remaining = 0
	}
	reset := e.resetAt
	return Budget{Used: e.count, Max: l.maxPerHour, Remaining: remaining, ResetsAt: &reset}
}

func check(store map[string]*entry, key string, limit int, window time.Duration, now time.Time) Result {
	e, ok := store[key]
	if !ok || !now.Before(e.resetAt) {
		reset := now.Add(window)
		store[key] = &entry{count: 1, resetAt: reset}
		return Result{Allowed: true, Remaining: limit - 1, ResetAt: reset}
	}
	if e.count >= limit {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.resetAt, RetryAfter: e.resetAt.Sub(now)}
	}
	e.count++
	return Result{Allowed: true, Remaining: limit - e.count, ResetAt: e.resetAt}
}

// Scope configs. The selfcheck scope shares the live ceiling on purpose:
// a self-check is a second live call.

func DemoConfig() Config {
	return Config{Limit: envInt("RATE_LIMIT_DEMO_RPM", 20), Window: time.Minute}
}

func LiveConfig() Config {
	return Config{Limit: envInt("RATE_LIMIT_LIVE_RPM", 5), Window: time.Minute}
}

func SelfcheckConfig() Config {
	return Config{Limit: envInt("RATE_LIMIT_LIVE_RPM", 5), Window: time.Minute}
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
