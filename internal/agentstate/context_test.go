package agentstate

import (
	"testing"

	"github.com/zace-run/zace/internal/agentcore"
)

func TestAddStepContiguity(t *testing.T) {
	ctx := CreateInitialContext("do the thing", 10)

	ctx, err := AddStep(ctx, agentcore.Step{Step: 1, State: agentcore.StateExecuting, Reasoning: "first"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.CurrentStep != 1 || len(ctx.Steps) != 1 {
		t.Fatalf("expected currentStep=1 len(steps)=1, got %d/%d", ctx.CurrentStep, len(ctx.Steps))
	}

	if _, err := AddStep(ctx, agentcore.Step{Step: 3, State: agentcore.StateExecuting}); err == nil {
		t.Fatal("expected error adding a non-contiguous step")
	}

	ctx, err = AddStep(ctx, agentcore.Step{Step: 2, State: agentcore.StateExecuting, Reasoning: "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ctx.Validate(); err != nil {
		t.Fatalf("context should validate: %v", err)
	}
}

func TestAddStepIsAppendOnlyCopy(t *testing.T) {
	ctx := CreateInitialContext("task", 5)
	ctx, _ = AddStep(ctx, agentcore.Step{Step: 1, State: agentcore.StateExecuting})

	mutated, _ := AddStep(ctx, agentcore.Step{Step: 2, State: agentcore.StateExecuting})

	if len(ctx.Steps) != 1 {
		t.Fatalf("original context must not be mutated by AddStep, got %d steps", len(ctx.Steps))
	}
	if len(mutated.Steps) != 2 {
		t.Fatalf("expected mutated copy to have 2 steps, got %d", len(mutated.Steps))
	}
}

func TestValidateRejectsNonContiguousSteps(t *testing.T) {
	ctx := CreateInitialContext("task", 5)
	ctx.Steps = []agentcore.Step{{Step: 1}, {Step: 3}}
	ctx.CurrentStep = 2
	ctx.State = agentcore.StatePlanning

	if err := ctx.Validate(); err == nil {
		t.Fatal("expected validation error for non-contiguous steps")
	}
}

func TestApplyScriptMarkers(t *testing.T) {
	catalog := map[string]agentcore.ScriptCatalogEntry{}
	lines := ScriptMarkerLines(
		"ZACE_SCRIPT_REGISTER|migrate|scripts/migrate.sh|runs db migrations\nsome other stdout",
		"ZACE_SCRIPT_USE|migrate",
	)

	catalog = ApplyScriptMarkers(catalog, lines, 3)

	entry, ok := catalog["migrate"]
	if !ok {
		t.Fatal("expected migrate entry to be registered")
	}
	if entry.Path != "scripts/migrate.sh" || entry.Purpose != "runs db migrations" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if entry.TimesUsed != 1 {
		t.Fatalf("expected TimesUsed=1, got %d", entry.TimesUsed)
	}
	if entry.LastTouchedStep != 3 {
		t.Fatalf("expected LastTouchedStep=3, got %d", entry.LastTouchedStep)
	}
}

func TestApplyScriptMarkersUnknownUseIgnored(t *testing.T) {
	catalog := map[string]agentcore.ScriptCatalogEntry{}
	lines := ScriptMarkerLines("", "ZACE_SCRIPT_USE|nonexistent")

	catalog = ApplyScriptMarkers(catalog, lines, 1)

	if len(catalog) != 0 {
		t.Fatalf("expected no entries, got %d", len(catalog))
	}
}
