// Package llmtool runs a bounded JSON tool loop on top of the llm
// client. The model replies with an action envelope that either calls a
// registered tool or delivers the final payload; tool outputs are fed
// back into the next prompt.
package llmtool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// ToolSpec is the model-facing description of one tool.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// ToolFunc executes one tool call.
type ToolFunc func(ctx context.Context, input json.RawMessage) (json.RawMessage, error)

// Registry holds the tools a loop may call.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]ToolSpec
	funcs map[string]ToolFunc
}

func NewRegistry() *Registry {
	return &Registry{
		specs: map[string]ToolSpec{},
		funcs: map[string]ToolFunc{},
	}
}

// Register adds a tool. Re-registering a name replaces it.
func (r *Registry) Register(spec ToolSpec, fn ToolFunc) error {
	if spec.Name == "" {
		return fmt.Errorf("llmtool: tool name is empty")
	}
	if fn == nil {
		return fmt.Errorf("llmtool: tool %q has no function", spec.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Name] = spec
	r.funcs[spec.Name] = fn
	return nil
}

// Specs returns the registered tool specs, sorted by name for prompt
// stability.
func (r *Registry) Specs() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSpec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call runs the named tool.
func (r *Registry) Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return fn(ctx, input)
}
