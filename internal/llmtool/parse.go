package llmtool

import (
	"encoding/json"
	"fmt"
)

// ActionEnvelope is the shape of a loop iteration's model reply.
type ActionEnvelope struct {
	Action    string          `json:"action,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	ToolInput json.RawMessage `json:"tool_input,omitempty"`
	Final     json.RawMessage `json:"final,omitempty"`
}

// ParseAction interprets the model reply as an action envelope. A reply
// carrying none of the envelope fields is treated as the final payload
// itself; models in structured-output mode sometimes skip the wrapper.
func ParseAction(raw json.RawMessage) (ActionEnvelope, error) {
	var env ActionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return ActionEnvelope{}, err
	}
	if env.Action == "" && env.ToolName == "" && len(env.Final) == 0 {
		return ActionEnvelope{Action: "final", Final: raw}, nil
	}
	if env.Action == "" {
		switch {
		case len(env.Final) > 0:
			env.Action = "final"
		case env.ToolName != "" || len(env.ToolInput) > 0:
			env.Action = "tool"
		}
	}
	switch env.Action {
	case "final", "tool":
		return env, nil
	default:
		return ActionEnvelope{}, fmt.Errorf("llmtool: invalid action %q", env.Action)
	}
}
