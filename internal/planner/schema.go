// Package planner implements the planner output-parsing pipeline:
// schema-transport-first with a prompt-mode fallback, a bounded repair
// loop, a one-shot retry, and a legacy markdown-tolerant extractor, each
// attempt counted and the final outcome persisted as an invalid-output
// artifact when every strategy is exhausted. LLM JSON is always decoded
// into typed structs with encoding/json, never walked as a generic
// map[string]any, on the general principle that a model's first answer
// should never be trusted without a parse step that can reject it.
package planner

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/zace-run/zace/internal/agentcore"
)

// rawPlanResult is the wire shape of the planner JSON schema, decoded with
// DisallowUnknownFields so additional properties are rejected.
type rawPlanResult struct {
	Action                 string          `json:"action"`
	Reasoning              string          `json:"reasoning"`
	UserMessage            string          `json:"userMessage,omitempty"`
	ToolCall               *rawToolCall    `json:"toolCall,omitempty"`
	Gates                  json.RawMessage `json:"gates,omitempty"`
}

type rawToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

var validActions = map[string]agentcore.PlanAction{
	"continue":  agentcore.ActionContinue,
	"ask_user":  agentcore.ActionAskUser,
	"blocked":   agentcore.ActionBlocked,
	"complete":  agentcore.ActionComplete,
}

var validToolNames = map[string]bool{
	"execute_command":        true,
	"search_session_messages": true,
	"write_session_message":   true,
}

// parsedGates is the decoded form of the schema's gates field, which is
// either an array of gate command strings or the literal string "none".
type parsedGates struct {
	DeclaredNone bool
	Commands     []string
}

// validateAndConvert turns a decoded rawPlanResult into an agentcore.PlanResult,
// enforcing the schema's semantic constraints (valid action/tool name,
// action=continue requires toolCall). Every violation is collected into a
// single *agentcore.ValidationErrors rather than stopping at the first one,
// so a repair prompt can tell the model everything that's wrong in one pass.
func validateAndConvert(raw rawPlanResult) (*agentcore.PlanResult, *agentcore.ValidationErrors) {
	var errs agentcore.ValidationErrors

	action, ok := validActions[raw.Action]
	if !ok {
		errs.Add("action", `one of "continue", "ask_user", "blocked", "complete"`, raw.Action, "use one of the allowed action values")
	}
	if raw.Reasoning == "" {
		errs.Add("reasoning", "non-empty string", raw.Reasoning, "explain the reasoning behind this action")
	}

	var toolCall *agentcore.ToolCall
	if raw.ToolCall != nil {
		if !validToolNames[raw.ToolCall.Name] {
			errs.Add("toolCall.name", `one of "execute_command", "search_session_messages", "write_session_message"`, raw.ToolCall.Name, "use one of the allowed tool names")
		} else {
			toolCall = &agentcore.ToolCall{Name: raw.ToolCall.Name, Arguments: raw.ToolCall.Arguments}
		}
	}
	if ok && action == agentcore.ActionContinue && toolCall == nil {
		errs.Add("toolCall", "present", nil, `action="continue" requires a toolCall`)
	}

	gates, gateErrs := parseGates(raw.Gates)
	errs.Errors = append(errs.Errors, gateErrs.Errors...)

	if errs.HasErrors() {
		return nil, &errs
	}

	return &agentcore.PlanResult{
		Action:                      action,
		Reasoning:                   raw.Reasoning,
		UserMessage:                 raw.UserMessage,
		ToolCall:                    toolCall,
		CompletionGateCommands:      gates.Commands,
		CompletionGatesDeclaredNone: gates.DeclaredNone,
	}, nil
}

func parseGates(raw json.RawMessage) (parsedGates, agentcore.ValidationErrors) {
	var errs agentcore.ValidationErrors
	if len(raw) == 0 {
		return parsedGates{}, errs
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString != "none" {
			errs.Add("gates", `"none"`, asString, `the only valid gates string value is "none"`)
			return parsedGates{}, errs
		}
		return parsedGates{DeclaredNone: true}, errs
	}
	var asArray []string
	if err := json.Unmarshal(raw, &asArray); err == nil {
		return parsedGates{Commands: asArray}, errs
	}
	errs.Add("gates", `string array or "none"`, string(raw), "gates must be an array of command strings or the literal string \"none\"")
	return parsedGates{}, errs
}

// decodeStrict decodes raw JSON into a rawPlanResult, rejecting unknown
// top-level properties per the schema.
func decodeStrict(raw []byte) (rawPlanResult, error) {
	var out rawPlanResult
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return rawPlanResult{}, err
	}
	return out, nil
}

// PlannerSchema is the JSON schema handed to schema-transport-capable
// providers.
var PlannerSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"action":    map[string]any{"type": "string", "enum": []string{"continue", "ask_user", "blocked", "complete"}},
		"reasoning": map[string]any{"type": "string", "minLength": 1},
		"userMessage": map[string]any{"type": "string"},
		"toolCall": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name":      map[string]any{"type": "string", "enum": []string{"execute_command", "search_session_messages", "write_session_message"}},
				"arguments": map[string]any{"type": "object"},
			},
			"required":             []string{"name", "arguments"},
			"additionalProperties": false,
		},
		"gates": map[string]any{
			"oneOf": []any{
				map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				map[string]any{"type": "string", "enum": []string{"none"}},
			},
		},
	},
	"required":             []string{"action", "reasoning"},
	"additionalProperties": false,
}
