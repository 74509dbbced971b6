package agentcore

import (
	"fmt"
	"strings"
)

// ValidationError is a single structured validation failure, designed to be
// rendered back into a repair prompt as well as a Go error.
type ValidationError struct {
	Field    string
	Expected string
	Actual   any
	Message  string
}

// ValidationErrors collects validation failures found while decoding a
// structured payload (planner JSON, tool-call arguments, servers.json).
type ValidationErrors struct {
	Errors []ValidationError
}

func (v *ValidationErrors) Add(field, expected string, actual any, msg string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Expected: expected, Actual: actual, Message: msg})
}

func (v *ValidationErrors) HasErrors() bool {
	return v != nil && len(v.Errors) > 0
}

func (v *ValidationErrors) Error() string {
	if !v.HasErrors() {
		return "no validation errors"
	}
	if len(v.Errors) == 1 {
		e := v.Errors[0]
		return fmt.Sprintf("validation error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed with %d errors", len(v.Errors))
}

// ToPrompt renders the errors as an actionable block suitable for embedding
// in a planner repair prompt.
func (v *ValidationErrors) ToPrompt() string {
	if !v.HasErrors() {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Validation failed with %d error(s):\n\n", len(v.Errors))
	for i, e := range v.Errors {
		fmt.Fprintf(&sb, "%d. Field: %s\n", i+1, e.Field)
		fmt.Fprintf(&sb, "   Expected: %s\n", e.Expected)
		fmt.Fprintf(&sb, "   Found: %v\n", formatActual(e.Actual))
		fmt.Fprintf(&sb, "   Fix: %s\n", e.Message)
		if i < len(v.Errors)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func formatActual(actual any) string {
	if actual == nil {
		return "null"
	}
	switch val := actual.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	case []string:
		if len(val) == 0 {
			return "[]"
		}
		quoted := make([]string, len(val))
		for i, s := range val {
			quoted[i] = fmt.Sprintf("%q", s)
		}
		return "[" + strings.Join(quoted, ", ") + "]"
	default:
		return fmt.Sprintf("%v", actual)
	}
}
