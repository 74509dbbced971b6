package executoranalysis

import (
	"context"
	"testing"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/llmtransport"
)

func TestAnalyze_SuccessNeverCallsModel(t *testing.T) {
	fake := &llmtransport.Fake{}
	a := &Analyzer{Client: fake, Model: "test-model"}

	retry, _, err := a.Analyze(context.Background(), agentcore.ToolCall{}, &agentcore.ToolResult{Success: true}, 1)
	if err != nil || retry {
		t.Fatalf("expected no retry and no error for a successful result, got retry=%v err=%v", retry, err)
	}
	if len(fake.Requests) != 0 {
		t.Fatalf("expected no model call for a successful result, got %d", len(fake.Requests))
	}
}

func TestAnalyze_RetrySignal(t *testing.T) {
	fake := &llmtransport.Fake{
		Responses: []*llmtransport.Response{
			{Text: "some reasoning\n###RECOVERY:retry:use a longer timeout###"},
		},
	}
	a := &Analyzer{Client: fake, Model: "test-model", BaseDelayMs: 500}

	retry, delay, err := a.Analyze(context.Background(), agentcore.ToolCall{}, &agentcore.ToolResult{Success: false, Error: "timeout"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !retry {
		t.Fatal("expected retry=true for a retry signal")
	}
	if delay != 1000 {
		t.Fatalf("expected delay scaled by attempt (500*2=1000), got %d", delay)
	}
}

func TestAnalyze_SkipSignalDoesNotRetry(t *testing.T) {
	fake := &llmtransport.Fake{
		Responses: []*llmtransport.Response{
			{Text: "###RECOVERY:skip:not worth retrying###"},
		},
	}
	a := &Analyzer{Client: fake, Model: "test-model"}

	retry, _, err := a.Analyze(context.Background(), agentcore.ToolCall{}, &agentcore.ToolResult{Success: false, Error: "gone"}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if retry {
		t.Fatal("expected retry=false for a skip signal")
	}
}

func TestParseRecoveryDecision(t *testing.T) {
	action, detail := parseRecoveryDecision("blah\n###RECOVERY:fix-state:remove the lockfile###\ntrailing")
	if action != ActionFixState || detail != "remove the lockfile" {
		t.Fatalf("got action=%q detail=%q", action, detail)
	}

	action, _ = parseRecoveryDecision("no signal here")
	if action != ActionManual {
		t.Fatalf("expected fallback to manual, got %q", action)
	}
}
