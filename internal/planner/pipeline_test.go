package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/config"
	"github.com/zace-run/zace/internal/llmtransport"
)

func newTestPlanner(fake *llmtransport.Fake) *Planner {
	opts := config.Default()
	return &Planner{
		Client:     fake,
		Fs:         afero.NewMemMapFs(),
		RuntimeDir: "/runtime",
		Model:      "test-model",
		Options:    opts,
	}
}

func TestPlanSchemaTransportSuccess(t *testing.T) {
	fake := &llmtransport.Fake{Responses: []*llmtransport.Response{
		{Text: `{"action":"continue","reasoning":"do it","toolCall":{"name":"execute_command","arguments":{"command":"ls"}}}`},
	}}
	p := newTestPlanner(fake)

	result, err := p.Plan(context.Background(), "run-1", "system", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != agentcore.ActionContinue {
		t.Fatalf("expected continue, got %v", result.Action)
	}
	if result.ParseMode != agentcore.ParseModeSchemaTransport {
		t.Fatalf("expected schema_transport parse mode, got %v", result.ParseMode)
	}
	if result.ParseAttempts != 1 {
		t.Fatalf("expected 1 parse attempt, got %d", result.ParseAttempts)
	}
}

func TestPlanFallsThroughToPromptModeOnUnsupportedSchema(t *testing.T) {
	fake := &llmtransport.Fake{Responses: []*llmtransport.Response{
		{Rejection: llmtransport.RejectionResponseFormatUnsupported},
		{Text: "Here's my plan:\n```json\n{\"action\":\"ask_user\",\"reasoning\":\"need input\"}\n```"},
	}}
	p := newTestPlanner(fake)

	result, err := p.Plan(context.Background(), "run-1", "system", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != agentcore.ActionAskUser {
		t.Fatalf("expected ask_user, got %v", result.Action)
	}
	if result.ParseMode != agentcore.ParseModeRepairJSON {
		t.Fatalf("expected repair_json parse mode, got %v", result.ParseMode)
	}
}

func TestPlanSchemaStrictModeBlocksOnUnsupportedSchema(t *testing.T) {
	fake := &llmtransport.Fake{Responses: []*llmtransport.Response{
		{Rejection: llmtransport.RejectionResponseFormatUnsupported, RejectionDetail: "no tool support"},
	}}
	p := newTestPlanner(fake)
	p.Options.PlannerOutputMode = config.PlannerOutputSchemaStrict

	result, err := p.Plan(context.Background(), "run-1", "system", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != agentcore.ActionBlocked {
		t.Fatalf("expected blocked, got %v", result.Action)
	}
}

func TestPlanExhaustionPersistsInvalidArtifact(t *testing.T) {
	opts := config.Default()
	opts.PlannerParseMaxRepairs = 1
	fake := &llmtransport.Fake{Responses: []*llmtransport.Response{
		{Text: "not json at all"},
		{Text: "still not json"},
		{Text: "still garbage"},
		{Text: "final garbage"},
	}}
	p := &Planner{Client: fake, Fs: afero.NewMemMapFs(), RuntimeDir: "/runtime", Model: "m", Options: opts}

	result, err := p.Plan(context.Background(), "run-1", "system", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != agentcore.ActionBlocked {
		t.Fatalf("expected blocked on exhaustion, got %v", result.Action)
	}
	if result.InvalidOutputArtifactPath == "" {
		t.Fatal("expected invalid output artifact path to be set")
	}
	exists, _ := afero.Exists(p.Fs, result.InvalidOutputArtifactPath)
	if !exists {
		t.Fatal("expected invalid output artifact to be persisted to disk")
	}
}

func TestPlanRepairPromptCarriesValidationGuidance(t *testing.T) {
	opts := config.Default()
	opts.PlannerOutputMode = config.PlannerOutputPromptOnly
	fake := &llmtransport.Fake{Responses: []*llmtransport.Response{
		{Text: `{"action":"sideways","reasoning":"do it"}`},
		{Text: `{"action":"complete","reasoning":"fixed"}`},
	}}
	p := &Planner{Client: fake, Fs: afero.NewMemMapFs(), RuntimeDir: "/runtime", Model: "m", Options: opts}

	result, err := p.Plan(context.Background(), "run-1", "system", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != agentcore.ActionComplete {
		t.Fatalf("expected the repair attempt to succeed, got %v", result.Action)
	}
	if len(fake.Requests) != 2 {
		t.Fatalf("expected exactly 2 calls (prompt-mode, then repair), got %d", len(fake.Requests))
	}
	repairReq := fake.Requests[1]
	repairMsg := repairReq.Messages[len(repairReq.Messages)-1].Content
	if !strings.Contains(repairMsg, "Field: action") {
		t.Fatalf("expected repair prompt to carry structured validation guidance, got:\n%s", repairMsg)
	}
}

func TestPlanContinueWithoutToolCallIsRejected(t *testing.T) {
	fake := &llmtransport.Fake{Responses: []*llmtransport.Response{
		{Text: `{"action":"continue","reasoning":"missing tool call"}`},
		{Text: `{"action":"blocked","reasoning":"fallback"}`},
	}}
	p := newTestPlanner(fake)

	result, err := p.Plan(context.Background(), "run-1", "system", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Action != agentcore.ActionBlocked {
		t.Fatalf("expected the invalid continue to be rejected and fall through to blocked, got %v", result.Action)
	}
}
