package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxLedgerEntries bounds the in-memory call log.
const maxLedgerEntries = 500

// Entry is one recorded provider call.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Model      string    `json:"model"`
	Kind       string    `json:"kind"`
	DurationMs int64     `json:"duration_ms"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
}

// Stats aggregates the ledger for the stats endpoint.
type Stats struct {
	TotalCalls int            `json:"total_calls"`
	Errors     int            `json:"errors"`
	ByModel    map[string]int `json:"by_model"`
	ByKind     map[string]int `json:"by_kind"`
	AvgMs      int64          `json:"avg_ms"`
}

// Ledger keeps a bounded, newest-first log of provider calls. Logging is
// on by default and can be toggled at runtime without dropping history.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
	enabled bool
}

func NewLedger() *Ledger {
	return &Ledger{enabled: true}
}

func (l *Ledger) SetEnabled(on bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = on
}

func (l *Ledger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

func (l *Ledger) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	l.entries = append(l.entries, e)
	if len(l.entries) > maxLedgerEntries {
		l.entries = l.entries[len(l.entries)-maxLedgerEntries:]
	}
}

// Entries returns a newest-first copy of the log.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}

func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := Stats{ByModel: map[string]int{}, ByKind: map[string]int{}}
	var total int64
	for _, e := range l.entries {
		s.TotalCalls++
		if e.Status == "error" {
			s.Errors++
		}
		s.ByModel[e.Model]++
		s.ByKind[e.Kind]++
		total += e.DurationMs
	}
	if s.TotalCalls > 0 {
		s.AvgMs = total / int64(s.TotalCalls)
	}
	return s
}

func kindForShape(s Shape) string {
	switch s {
	case ShapeDigest:
		return "digest"
	case ShapeSelfcheck:
		return "selfcheck"
	default:
		return "tool"
	}
}

// Record wires the ledger into a client chain; every call through the
// wrapped client lands in the log, success or failure.
func Record(l *Ledger) Middleware {
	return func(next Client) Client {
		return &recording{next: next, ledger: l}
	}
}

type recording struct {
	next   Client
	ledger *Ledger
}

func (r *recording) Name() string { return r.next.Name() }
func (r *recording) Close() error { return r.next.Close() }

func (r *recording) GenerateJSON(ctx context.Context, req Request) (json.RawMessage, error) {
	start := time.Now()
	out, err := r.next.GenerateJSON(ctx, req)
	e := Entry{
		Model:      req.Model,
		Kind:       kindForShape(req.Shape),
		DurationMs: time.Since(start).Milliseconds(),
		Status:     "ok",
	}
	if req.Model == "" {
		e.Model = r.next.Name()
	}
	if err != nil {
		e.Status = "error"
		e.Error = err.Error()
	}
	r.ledger.Append(e)
	return out, err
}
