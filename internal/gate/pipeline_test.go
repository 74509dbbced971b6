package gate

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/config"
	"github.com/zace-run/zace/internal/shellexec"
)

type alwaysAllow struct{}

func (alwaysAllow) ResolveCommandApproval(ctx context.Context, command, cwd string) (*agentcore.ApprovalDecision, error) {
	return &agentcore.ApprovalDecision{Allow: &agentcore.AllowDecision{Scope: agentcore.ScopeOnce}}, nil
}

type alwaysDeny struct{}

func (alwaysDeny) ResolveCommandApproval(ctx context.Context, command, cwd string) (*agentcore.ApprovalDecision, error) {
	return &agentcore.ApprovalDecision{Deny: &agentcore.DenyDecision{Message: "no"}}, nil
}

func newPipeline(approver Approver) *Pipeline {
	opts := config.Default()
	return &Pipeline{
		Executor: &shellexec.Executor{Fs: afero.NewMemMapFs(), ArtifactsDir: "/artifacts", OutputLimitChars: 1000, Logger: zap.NewNop()},
		Approver: approver,
		Options:  opts,
		Logger:   zap.NewNop(),
	}
}

func TestPipelineRejectsMaskingGate(t *testing.T) {
	p := newPipeline(alwaysAllow{})
	plan := &agentcore.CompletionPlan{Gates: []agentcore.Gate{{Command: "go test ./... || true", Label: "test"}}}

	out := p.Run(context.Background(), Input{Plan: plan, WorkingDirectory: t.TempDir()})
	if !out.Blocked {
		t.Fatal("expected masking gate to block completion")
	}
	if !out.Masked {
		t.Fatal("expected masking gate to set Outcome.Masked")
	}
}

func TestPipelineDenyShortCircuits(t *testing.T) {
	p := newPipeline(alwaysDeny{})
	plan := &agentcore.CompletionPlan{Gates: []agentcore.Gate{{Command: "echo ok", Label: "ok"}}}

	out := p.Run(context.Background(), Input{Plan: plan, WorkingDirectory: t.TempDir()})
	if !out.Blocked {
		t.Fatal("expected denied gate to block completion")
	}
}

func TestPipelineSuccessRunsGatesAndChecksFreshness(t *testing.T) {
	p := newPipeline(alwaysAllow{})
	plan := &agentcore.CompletionPlan{Gates: []agentcore.Gate{{Command: "true", Label: "noop"}}}

	out := p.Run(context.Background(), Input{
		Plan:                          plan,
		WorkingDirectory:              t.TempDir(),
		LastSuccessfulValidationStep:  5,
		LastWriteStep:                 3,
	})
	if !out.Completed {
		t.Fatalf("expected completion, got %+v", out)
	}
}

func TestPipelineFreshnessBlocksStaleValidation(t *testing.T) {
	p := newPipeline(alwaysAllow{})
	plan := &agentcore.CompletionPlan{Gates: []agentcore.Gate{{Command: "true", Label: "noop"}}}

	out := p.Run(context.Background(), Input{
		Plan:                          plan,
		WorkingDirectory:              t.TempDir(),
		LastSuccessfulValidationStep:  2,
		LastWriteStep:                 5,
	})
	if !out.Blocked {
		t.Fatal("expected stale validation to block completion")
	}
}

func TestPipelineBootstrapGateBlocksWhenLSPRequired(t *testing.T) {
	p := newPipeline(alwaysAllow{})
	p.Options.CompletionRequireLSP = true
	plan := &agentcore.CompletionPlan{}

	out := p.Run(context.Background(), Input{
		Plan:              plan,
		WorkingDirectory:  t.TempDir(),
		LSPBootstrapState: agentcore.BootstrapRequired,
	})
	if !out.Blocked {
		t.Fatal("expected bootstrap-required state to block completion")
	}
}
