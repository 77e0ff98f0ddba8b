package llmtool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"civicdiff/internal/llm"
)

var (
	ErrMaxIterations  = errors.New("llmtool: max iterations reached")
	ErrUnknownAction  = errors.New("llmtool: unknown action")
	ErrToolNotFound   = errors.New("llmtool: tool not found")
	ErrToolNotAllowed = errors.New("llmtool: tool not allowed")
)

// ToolProvider abstracts the tool registry so loops can be tested
// without a real Registry.
type ToolProvider interface {
	Specs() []ToolSpec
	Call(ctx context.Context, name string, input json.RawMessage) (json.RawMessage, error)
}

// PromptBuilder renders the prompt for one iteration from the loop
// state and the available tools.
type PromptBuilder func(ctx context.Context, state *State, tools []ToolSpec) (string, error)

// Loop drives tool-call iterations until the model returns a final
// payload or the iteration cap trips.
type Loop struct {
	Client   llm.Client
	Tools    ToolProvider
	Model    string
	System   string
	MaxIters int
	Allowed  []string
	OnStep   func(iteration int, result *ToolResult)
}

// State accumulates tool results across iterations.
type State struct {
	Iterations  int
	ToolResults []ToolResult
}

// ToolResult is the recorded outcome of one tool call.
type ToolResult struct {
	Name   string          `json:"name"`
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Run executes the loop and returns the final JSON payload. Tool
// failures do not abort the loop; the error text goes back to the model
// in the next iteration's results block.
func (l *Loop) Run(ctx context.Context, build PromptBuilder) (json.RawMessage, *State, error) {
	if l == nil || l.Client == nil || l.Tools == nil {
		return nil, nil, fmt.Errorf("llmtool: missing client or tools")
	}
	if build == nil {
		return nil, nil, fmt.Errorf("llmtool: prompt builder is nil")
	}
	max := l.MaxIters
	if max <= 0 {
		max = 5
	}
	allowed := make(map[string]struct{}, len(l.Allowed))
	for _, a := range l.Allowed {
		if a = strings.TrimSpace(a); a != "" {
			allowed[a] = struct{}{}
		}
	}

	state := &State{}
	tools := l.Tools.Specs()
	for i := 0; i < max; i++ {
		state.Iterations = i + 1
		prompt, err := build(ctx, state, tools)
		if err != nil {
			return nil, state, err
		}
		raw, err := l.Client.GenerateJSON(ctx, llm.Request{
			Model:  l.Model,
			System: l.System,
			Prompt: prompt,
			Shape:  llm.ShapeNone,
		})
		if err != nil {
			return nil, state, err
		}
		action, err := ParseAction(raw)
		if err != nil {
			return nil, state, err
		}
		switch action.Action {
		case "final":
			return action.Final, state, nil
		case "tool":
			if action.ToolName == "" {
				return nil, state, fmt.Errorf("llmtool: tool_name required")
			}
			if len(allowed) > 0 {
				if _, ok := allowed[action.ToolName]; !ok {
					return nil, state, ErrToolNotAllowed
				}
			}
			out, callErr := l.Tools.Call(ctx, action.ToolName, action.ToolInput)
			tr := ToolResult{Name: action.ToolName, Input: action.ToolInput, Output: out}
			if callErr != nil {
				tr.Error = callErr.Error()
			}
			state.ToolResults = append(state.ToolResults, tr)
			if l.OnStep != nil {
				l.OnStep(state.Iterations, &tr)
			}
		default:
			return nil, state, ErrUnknownAction
		}
	}
	return nil, state, ErrMaxIterations
}
