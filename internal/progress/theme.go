package progress

import "github.com/fatih/color"

// Box drawing characters.
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxHorizontal  = "─"
	BoxVertical    = "│"
	SectionBreak   = "━"
)

// Status symbols.
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolWaiting = "↻"
	SymbolPending = "○"
)

// GutterStep and GutterDot mark the left-hand indicator column for step and
// gate output lines.
const (
	GutterStep = "▸"
	GutterDot  = "·"
	GutterGate = "⬡"
)

// IndentStep is the left indentation applied to step/gate output lines.
const IndentStep = "  "

// Theme holds every color function the reporter uses, split into the run
// banner (prominent) and step/gate output (subdued) registers.
type Theme struct {
	RunBorder func(a ...interface{}) string
	RunLabel  func(a ...interface{}) string
	RunText   func(a ...interface{}) string

	StepTimestamp func(a ...interface{}) string
	StepText      func(a ...interface{}) string
	StepToolCount func(a ...interface{}) string
	GateText      func(a ...interface{}) string

	Success func(a ...interface{}) string
	Error   func(a ...interface{}) string
	Warning func(a ...interface{}) string
	Info    func(a ...interface{}) string

	Bold      func(a ...interface{}) string
	Dim       func(a ...interface{}) string
	Separator func(a ...interface{}) string
}

// DefaultTheme is the color theme used on a TTY.
func DefaultTheme() *Theme {
	return &Theme{
		RunBorder: color.New(color.FgCyan).SprintFunc(),
		RunLabel:  color.New(color.FgCyan, color.Bold).SprintFunc(),
		RunText:   color.New(color.FgWhite).SprintFunc(),

		StepTimestamp: color.New(color.FgHiBlack).SprintFunc(),
		StepText:      color.New(color.FgWhite).SprintFunc(),
		StepToolCount: color.New(color.FgHiBlack).SprintFunc(),
		GateText:      color.New(color.FgMagenta).SprintFunc(),

		Success: color.New(color.FgGreen).SprintFunc(),
		Error:   color.New(color.FgRed).SprintFunc(),
		Warning: color.New(color.FgYellow).SprintFunc(),
		Info:    color.New(color.FgCyan).SprintFunc(),

		Bold:      color.New(color.Bold).SprintFunc(),
		Dim:       color.New(color.FgHiBlack).SprintFunc(),
		Separator: color.New(color.FgCyan).SprintFunc(),
	}
}

// NoColorTheme renders every function as a plain passthrough, used for
// --no-color.
func NoColorTheme() *Theme {
	identity := func(a ...interface{}) string {
		if len(a) == 0 {
			return ""
		}
		s, ok := a[0].(string)
		if !ok {
			return ""
		}
		return s
	}
	return &Theme{
		RunBorder:     identity,
		RunLabel:      identity,
		RunText:       identity,
		StepTimestamp: identity,
		StepText:      identity,
		StepToolCount: identity,
		GateText:      identity,
		Success:       identity,
		Error:         identity,
		Warning:       identity,
		Info:          identity,
		Bold:          identity,
		Dim:           identity,
		Separator:     identity,
	}
}
