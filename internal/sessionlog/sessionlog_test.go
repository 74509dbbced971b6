package sessionlog

import (
	"path/filepath"
	"testing"
)

func TestOpenWritesRunStartedAndCloseWritesFinalState(t *testing.T) {
	dir := t.TempDir()
	reg := NewRegistry(dir)

	sl := reg.Open("run-1")
	if sl == nil {
		t.Fatal("expected non-nil SessionLog")
	}
	sl.Message("user", "do the thing")
	sl.RunEvent(1, PhasePlanning, "plan_started", nil)
	reg.Close("run-1", "completed")

	entries, err := ReadEntries(filepath.Join(dir, "run-1.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].Event != "run_started" {
		t.Fatalf("expected first entry run_started, got %+v", entries[0])
	}
	last := entries[len(entries)-1]
	if last.Event != "final_state_set" || last.Payload["final_state"] != "completed" {
		t.Fatalf("expected final_state_set=completed, got %+v", last)
	}
}

func TestNilSessionLogMethodsAreNoOps(t *testing.T) {
	var sl *SessionLog
	sl.Message("user", "should not panic")
	sl.Summary("should not panic")
	sl.RunEvent(1, PhasePlanning, "noop", nil)
}

func TestRecoverInterruptedRunDetectsMissingFinalState(t *testing.T) {
	entries := []Entry{
		{Kind: KindRun, RunID: "run-2", Event: "run_started"},
		{Kind: KindRunEvent, RunID: "run-2", Step: 3, Phase: PhaseExecuting, Event: "tool_call_finished"},
	}
	recovered := RecoverInterruptedRun("run-2", entries)
	if len(recovered) != 2 {
		t.Fatalf("expected 2 synthetic entries, got %+v", recovered)
	}
	if recovered[0].Event != "run_interrupted_recovered" {
		t.Fatalf("expected run_interrupted_recovered first, got %+v", recovered[0])
	}
	if recovered[1].Payload["final_state"] != "interrupted" {
		t.Fatalf("expected final_state=interrupted, got %+v", recovered[1])
	}
}

func TestRecoverInterruptedRunNoOpsWhenAlreadyTerminal(t *testing.T) {
	entries := []Entry{
		{Kind: KindRun, RunID: "run-3", Event: "run_started"},
		{Kind: KindRunEvent, RunID: "run-3", Event: "final_state_set", Payload: map[string]any{"final_state": "completed"}},
	}
	if recovered := RecoverInterruptedRun("run-3", entries); recovered != nil {
		t.Fatalf("expected no recovery for terminal run, got %+v", recovered)
	}
}
