package planner

import (
	"strings"
	"testing"

	"github.com/zace-run/zace/internal/agentcore"
)

func TestValidateAndConvertAccumulatesAllErrors(t *testing.T) {
	raw := rawPlanResult{
		Action:   "nonsense",
		Reasoning: "",
		ToolCall: &rawToolCall{Name: "rm_everything", Arguments: map[string]any{}},
	}

	result, errs := validateAndConvert(raw)
	if result != nil {
		t.Fatalf("expected nil result on validation failure, got %+v", result)
	}
	if !errs.HasErrors() {
		t.Fatal("expected validation errors")
	}
	if len(errs.Errors) != 3 {
		t.Fatalf("expected 3 accumulated errors (action, reasoning, toolCall.name), got %d: %+v", len(errs.Errors), errs.Errors)
	}

	prompt := errs.ToPrompt()
	for _, field := range []string{"action", "reasoning", "toolCall.name"} {
		if !strings.Contains(prompt, field) {
			t.Fatalf("expected rendered prompt to mention field %q, got:\n%s", field, prompt)
		}
	}
}

func TestValidateAndConvertRejectsContinueWithoutToolCall(t *testing.T) {
	raw := rawPlanResult{Action: "continue", Reasoning: "doing a thing"}

	result, errs := validateAndConvert(raw)
	if result != nil {
		t.Fatal("expected nil result")
	}
	if len(errs.Errors) != 1 || errs.Errors[0].Field != "toolCall" {
		t.Fatalf("expected a single toolCall error, got %+v", errs.Errors)
	}
}

func TestValidateAndConvertAcceptsWellFormedPlan(t *testing.T) {
	raw := rawPlanResult{
		Action:    "complete",
		Reasoning: "all gates passed",
	}
	result, errs := validateAndConvert(raw)
	if errs.HasErrors() {
		t.Fatalf("unexpected validation errors: %+v", errs.Errors)
	}
	if result.Action != agentcore.ActionComplete {
		t.Fatalf("expected complete, got %v", result.Action)
	}
}

func TestParseGatesRejectsInvalidStringValue(t *testing.T) {
	_, errs := parseGates([]byte(`"maybe"`))
	if !errs.HasErrors() {
		t.Fatal("expected a validation error for a non-\"none\" gates string")
	}
}

func TestParseGatesAcceptsNoneAndArray(t *testing.T) {
	gates, errs := parseGates([]byte(`"none"`))
	if errs.HasErrors() || !gates.DeclaredNone {
		t.Fatalf("expected gates:\"none\" to parse as DeclaredNone, errs=%+v", errs.Errors)
	}

	gates, errs = parseGates([]byte(`["go test ./..."]`))
	if errs.HasErrors() || len(gates.Commands) != 1 {
		t.Fatalf("expected gates array to parse, errs=%+v gates=%+v", errs.Errors, gates)
	}
}
