// Package progress renders the run loop's step-by-step activity to a
// terminal: a banner when a run starts, one line per step, gate pass/fail
// lines, and a closing banner for the terminal state. It owns no run state
// of its own — every method is a pure write against an io.Writer driven by
// whatever the loop package hands it.
package progress

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"

	"github.com/zace-run/zace/internal/agentcore"
)

// Reporter writes run progress to an underlying writer using a Theme.
type Reporter struct {
	out   io.Writer
	theme *Theme
	width int
}

// New returns a Reporter writing to out, selecting NoColorTheme when noColor
// is set and DefaultTheme otherwise; out is not checked for being a terminal.
func New(out io.Writer, noColor bool) *Reporter {
	return NewWithOptions(out, noColor, nil)
}

// NewWithOptions returns a Reporter with an explicit theme override (nil
// selects automatically from noColor).
func NewWithOptions(out io.Writer, noColor bool, theme *Theme) *Reporter {
	if theme == nil {
		if noColor {
			theme = NoColorTheme()
		} else {
			theme = DefaultTheme()
		}
	}
	return &Reporter{out: out, theme: theme, width: terminalWidth()}
}

func terminalWidth() int {
	w, _, err := term.GetSize(1)
	if err != nil || w <= 0 {
		return 80
	}
	if w > 120 {
		return 120
	}
	return w
}

// RunStart prints the banner at the top of a run: the task description
// boxed between rules.
func (r *Reporter) RunStart(runID, task string, maxSteps int) {
	t := r.theme
	rule := strings.Repeat(SectionBreak, r.width)
	fmt.Fprintln(r.out, t.RunBorder(rule))
	fmt.Fprintf(r.out, "%s %s\n", t.RunLabel("zace run"), t.Dim(runID))
	fmt.Fprintf(r.out, "%s %s\n", t.RunLabel("task"), t.RunText(Truncate(task, r.width-6)))
	fmt.Fprintf(r.out, "%s %d\n", t.Dim("max steps"), maxSteps)
	fmt.Fprintln(r.out, t.RunBorder(rule))
}

// Step prints one line summarizing a completed step: its number, the
// planner's reasoning (truncated), and the tool invoked if any.
func (r *Reporter) Step(stepNum int, reasoning string, toolCall *agentcore.ToolCall) {
	t := r.theme
	line := fmt.Sprintf("%s %s step %d%s %s",
		IndentStep, t.Dim(GutterStep), stepNum, t.Dim(":"), t.StepText(Truncate(reasoning, r.width-20)))
	fmt.Fprintln(r.out, line)
	if toolCall != nil {
		fmt.Fprintf(r.out, "%s%s %s %s\n", IndentStep, IndentStep, t.Dim(GutterDot), t.StepToolCount(toolCall.Name))
	}
}

// StepWithUsage is Step plus a trailing token-usage annotation appended
// after the response line.
func (r *Reporter) StepWithUsage(stepNum int, reasoning string, toolCall *agentcore.ToolCall, usage *agentcore.Usage) {
	r.Step(stepNum, reasoning, toolCall)
	if usage == nil || usage.ContextWindow == 0 {
		return
	}
	t := r.theme
	pct := float64(usage.InputTokens+usage.OutputTokens) / float64(usage.ContextWindow) * 100
	fmt.Fprintf(r.out, "%s%s %s\n", IndentStep, IndentStep,
		t.Dim(fmt.Sprintf("%d tokens (%.1f%% of context)", usage.InputTokens+usage.OutputTokens, pct)))
}

// ToolResult prints the outcome of a tool call: a green check with a short
// output excerpt on success, a red cross with the error on failure.
func (r *Reporter) ToolResult(result *agentcore.ToolResult) {
	t := r.theme
	if result == nil {
		return
	}
	if result.Success {
		fmt.Fprintf(r.out, "%s%s %s %s\n", IndentStep, IndentStep, t.Success(SymbolSuccess), t.Dim(Truncate(firstLine(result.Output), r.width-12)))
		return
	}
	fmt.Fprintf(r.out, "%s%s %s %s\n", IndentStep, IndentStep, t.Error(SymbolError), t.Error(Truncate(firstLine(result.Error), r.width-12)))
}

// GateResult prints one gate's pass/fail line.
func (r *Reporter) GateResult(gate agentcore.Gate, passed bool, detail string) {
	t := r.theme
	symbol := t.Success(SymbolSuccess)
	if !passed {
		symbol = t.Error(SymbolError)
	}
	label := gate.Label
	if label == "" {
		label = gate.Command
	}
	fmt.Fprintf(r.out, "%s%s %s %s\n", IndentStep, t.GateText(GutterGate), symbol, t.GateText(label))
	if detail != "" {
		fmt.Fprintf(r.out, "%s%s%s %s\n", IndentStep, IndentStep, t.Dim(GutterDot), t.Dim(Truncate(detail, r.width-12)))
	}
}

// WaitingForUser prints the blocking message shown when a run pauses for
// human input.
func (r *Reporter) WaitingForUser(message string) {
	t := r.theme
	fmt.Fprintf(r.out, "%s %s %s\n", t.Warning(SymbolWaiting), t.Warning("waiting for you:"), t.RunText(message))
}

// RunEnd prints the closing banner for a run's terminal state.
func (r *Reporter) RunEnd(state agentcore.RunState, stepCount int) {
	t := r.theme
	rule := strings.Repeat(SectionBreak, r.width)
	fmt.Fprintln(r.out, t.RunBorder(rule))
	switch state {
	case agentcore.StateCompleted:
		fmt.Fprintf(r.out, "%s %s after %d steps\n", t.Success(SymbolSuccess), t.Bold("completed"), stepCount)
	case agentcore.StateBlocked:
		fmt.Fprintf(r.out, "%s %s after %d steps\n", t.Error(SymbolError), t.Bold("blocked"), stepCount)
	case agentcore.StateWaitingForUser:
		fmt.Fprintf(r.out, "%s %s after %d steps\n", t.Warning(SymbolWaiting), t.Bold("waiting for user"), stepCount)
	case agentcore.StateError:
		fmt.Fprintf(r.out, "%s %s after %d steps\n", t.Error(SymbolError), t.Bold("error"), stepCount)
	case agentcore.StateInterrupted:
		fmt.Fprintf(r.out, "%s %s after %d steps\n", t.Warning(SymbolWarning), t.Bold("interrupted"), stepCount)
	default:
		fmt.Fprintf(r.out, "%s %d steps\n", t.Bold(string(state)), stepCount)
	}
	fmt.Fprintln(r.out, t.RunBorder(rule))
}

// Info, Warning, and Error print a single annotated line each, for
// miscellaneous operator-facing notices that don't belong to a step or gate.
func (r *Reporter) Info(msg string)    { fmt.Fprintf(r.out, "%s %s\n", r.theme.Info(SymbolPending), r.theme.RunText(msg)) }
func (r *Reporter) Warning(msg string) { fmt.Fprintf(r.out, "%s %s\n", r.theme.Warning(SymbolWarning), r.theme.RunText(msg)) }
func (r *Reporter) Error(msg string)   { fmt.Fprintf(r.out, "%s %s\n", r.theme.Error(SymbolError), r.theme.RunText(msg)) }

// Truncate shortens s to at most n runes, appending an ellipsis if cut. A
// too-small n returns s unchanged rather than collapsing every line to "...".
func Truncate(s string, n int) string {
	if n <= 3 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
