package progress

import (
	"bytes"
	"strings"
	"testing"

	"github.com/zace-run/zace/internal/agentcore"
)

func TestTruncate(t *testing.T) {
	cases := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello..."},
		{"hello", 0, "hello"},
		{"hello", 3, "hello"},
	}
	for _, c := range cases {
		if got := Truncate(c.in, c.n); got != c.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", c.in, c.n, got, c.want)
		}
	}
}

func TestReporter_StepAndToolResult(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithOptions(&buf, true, NoColorTheme())

	r.Step(3, "inspecting the failing test", &agentcore.ToolCall{Name: "execute_command"})
	r.ToolResult(&agentcore.ToolResult{Success: true, Output: "all tests passed\nmore detail"})

	out := buf.String()
	if !strings.Contains(out, "step 3") {
		t.Fatalf("expected step number in output, got %q", out)
	}
	if !strings.Contains(out, "execute_command") {
		t.Fatalf("expected tool name in output, got %q", out)
	}
	if !strings.Contains(out, "all tests passed") || strings.Contains(out, "more detail") {
		t.Fatalf("expected only first line of output, got %q", out)
	}
}

func TestReporter_GateResult(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithOptions(&buf, true, NoColorTheme())

	r.GateResult(agentcore.Gate{Command: "go test ./...", Label: "unit tests"}, false, "exit status 1")

	out := buf.String()
	if !strings.Contains(out, "unit tests") {
		t.Fatalf("expected gate label, got %q", out)
	}
	if !strings.Contains(out, SymbolError) {
		t.Fatalf("expected failure symbol, got %q", out)
	}
}

func TestReporter_RunEnd(t *testing.T) {
	var buf bytes.Buffer
	r := NewWithOptions(&buf, true, NoColorTheme())

	r.RunEnd(agentcore.StateCompleted, 5)

	out := buf.String()
	if !strings.Contains(out, "completed") || !strings.Contains(out, "5 steps") {
		t.Fatalf("expected completed summary, got %q", out)
	}
}
