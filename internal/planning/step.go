package planning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PlannedStep is a single proposed tool invocation. It lives in the plan
// queue until it is dispatched.
type PlannedStep struct {
	ID         string                 `json:"id"`
	Goal       string                 `json:"goal,omitempty"`
	Tool       string                 `json:"tool"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// RawStep is a step exactly as the model wrote it, before the tool name is
// checked against the registry.
type RawStep struct {
	ID         string
	Goal       string
	Tool       string
	Parameters map[string]interface{}
}

// rawStepFromValue coerces one element of a decoded plan array. Models use a
// handful of spellings for the same fields; all of them are accepted.
func rawStepFromValue(v interface{}) (RawStep, bool) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return RawStep{}, false
	}

	step := RawStep{
		ID:   stringField(obj, "id", "step_id"),
		Goal: stringField(obj, "goal", "description", "purpose", "reason"),
		Tool: stringField(obj, "tool", "name", "tool_name", "function"),
	}
	if step.Tool == "" {
		return RawStep{}, false
	}

	for _, key := range []string{"parameters", "params", "args", "arguments", "input"} {
		raw, ok := obj[key]
		if !ok || raw == nil {
			continue
		}
		switch p := raw.(type) {
		case map[string]interface{}:
			step.Parameters = p
		case string:
			var decoded map[string]interface{}
			if err := json.Unmarshal([]byte(p), &decoded); err == nil {
				step.Parameters = decoded
			}
		}
		if step.Parameters != nil {
			break
		}
	}
	if step.Parameters == nil {
		step.Parameters = map[string]interface{}{}
	}
	return step, true
}

func stringField(obj map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return fmt.Sprintf("%d", int(v))
		}
	}
	return ""
}
