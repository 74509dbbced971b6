// Package agentstate holds the pure, immutable-by-replacement Context that
// a run accumulates: its step history, script catalog, and file summaries.
// Every operation here returns a new Context rather than mutating in place,
// mirroring json_context.go/json_state.go's load-validate-save discipline
// but applied to the in-memory run record instead of a project roadmap.
package agentstate

import (
	"fmt"

	"github.com/zace-run/zace/internal/agentcore"
)

// Context is the immutable-by-replacement record of a single agent run.
type Context struct {
	Task          string                                 `json:"task"`
	MaxSteps      int                                    `json:"max_steps"`
	CurrentStep   int                                    `json:"current_step"`
	State         agentcore.RunState                     `json:"state"`
	Steps         []agentcore.Step                       `json:"steps"`
	ScriptCatalog map[string]agentcore.ScriptCatalogEntry `json:"script_catalog"`
	FileSummaries map[string]string                      `json:"file_summaries"`
}

// Validate enforces that steps are append-only and contiguous, and that
// currentStep equals len(steps).
func (c *Context) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("context.max_steps: must be positive")
	}
	if !c.State.IsValid() {
		return fmt.Errorf("context.state: %q is not a valid run state", c.State)
	}
	if c.CurrentStep != len(c.Steps) {
		return fmt.Errorf("context.current_step: %d does not equal len(steps)=%d", c.CurrentStep, len(c.Steps))
	}
	for i, s := range c.Steps {
		if s.Step != i+1 {
			return fmt.Errorf("context.steps[%d].step: expected %d, got %d", i, i+1, s.Step)
		}
	}
	return nil
}

// CreateInitialContext builds the Context a fresh run starts from.
func CreateInitialContext(task string, maxSteps int) Context {
	return Context{
		Task:          task,
		MaxSteps:      maxSteps,
		CurrentStep:   0,
		State:         agentcore.StatePlanning,
		Steps:         nil,
		ScriptCatalog: map[string]agentcore.ScriptCatalogEntry{},
		FileSummaries: map[string]string{},
	}
}

// TransitionState returns a copy of ctx with its top-level state replaced.
func TransitionState(ctx Context, state agentcore.RunState) Context {
	next := ctx
	next.State = state
	return next
}

// AddStep appends a step to the history. step.Step must equal
// ctx.CurrentStep+1; the returned Context has CurrentStep advanced to
// match, preserving the append-only/contiguous invariant.
func AddStep(ctx Context, step agentcore.Step) (Context, error) {
	expected := ctx.CurrentStep + 1
	if step.Step != expected {
		return ctx, fmt.Errorf("addStep: expected step number %d, got %d", expected, step.Step)
	}
	next := ctx
	next.Steps = make([]agentcore.Step, len(ctx.Steps), len(ctx.Steps)+1)
	copy(next.Steps, ctx.Steps)
	next.Steps = append(next.Steps, step)
	next.CurrentStep = len(next.Steps)
	return next, nil
}

// UpdateScriptCatalog returns a copy of ctx with its script catalog
// replaced by catalog.
func UpdateScriptCatalog(ctx Context, catalog map[string]agentcore.ScriptCatalogEntry) Context {
	next := ctx
	next.ScriptCatalog = catalog
	return next
}

// LastStep returns the most recently recorded step, or nil if none exist.
func (c *Context) LastStep() *agentcore.Step {
	if len(c.Steps) == 0 {
		return nil
	}
	return &c.Steps[len(c.Steps)-1]
}
