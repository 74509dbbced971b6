package gate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/config"
	"github.com/zace-run/zace/internal/shellexec"
)

// Approver resolves whether a gate command may run, reusing the same
// approval workflow shell commands go through.
type Approver interface {
	ResolveCommandApproval(ctx context.Context, command, cwd string) (*agentcore.ApprovalDecision, error)
}

// Pipeline runs the completion-gate pipeline against a CompletionPlan.
type Pipeline struct {
	Executor *shellexec.Executor
	Approver Approver
	Options  *config.Options
	Logger   *zap.Logger
}

// Outcome is the completion-gate pipeline's result.
type Outcome struct {
	Completed        bool
	Blocked          bool
	WaitingForUser   bool
	Masked           bool
	Message          string
	Plan             *agentcore.CompletionPlan
}

// Input carries everything the pipeline needs about the current run state
// to decide and execute gates.
type Input struct {
	Plan                      *agentcore.CompletionPlan
	PlannerGateCommands       []string
	PlannerDeclaredGatesNone  bool
	HasWrittenSinceLastValidation bool
	StrictMode                bool
	WorkingDirectory          string
	LastSuccessfulValidationStep int
	LastWriteStep             int
	LSPBootstrapState         agentcore.BootstrapState
	LSPAutoProvisionBudgetRemaining bool
}

// normalizeCommand collapses whitespace so near-duplicate gate commands
// dedupe correctly.
func normalizeCommand(cmd string) string {
	return strings.Join(strings.Fields(cmd), " ")
}

// Run executes the full pipeline against in, mutating and returning the
// updated CompletionPlan alongside the outcome.
func (p *Pipeline) Run(ctx context.Context, in Input) Outcome {
	plan := clonePlan(in.Plan)

	// 1. Bootstrap gate.
	if p.Options.CompletionRequireLSP && p.Options.LSPEnabled {
		blocked := in.LSPBootstrapState == agentcore.BootstrapRequired ||
			(in.LSPBootstrapState == agentcore.BootstrapFailed && p.Options.LSPBootstrapBlockOnFailed)
		if blocked {
			if in.LSPAutoProvisionBudgetRemaining {
				return Outcome{Blocked: true, Plan: plan, Message: "LSP bootstrap required; continuing loop for auto-provision"}
			}
			return Outcome{WaitingForUser: true, Plan: plan, Message: "LSP bootstrap required and auto-provision budget exhausted"}
		}
	}

	// 2. Merge planner gates.
	if len(in.PlannerGateCommands) > 0 {
		source := agentcore.GateSourcePlanner
		if plan.Source != agentcore.GateSourceNone {
			source = agentcore.GateSourceMerged
		}
		for _, cmd := range in.PlannerGateCommands {
			norm := normalizeCommand(cmd)
			if !plan.HasCommand(norm) {
				plan.Gates = append(plan.Gates, agentcore.Gate{Command: norm, Label: norm})
			}
		}
		plan.Source = source
	}

	// 3. Auto-discover.
	shouldDiscover := in.HasWrittenSinceLastValidation &&
		((in.StrictMode && p.Options.CompletionRequireDiscoveredGates) ||
			(len(plan.Gates) == 0 && !in.PlannerDeclaredGatesNone))
	if shouldDiscover {
		discovered := Discover(in.WorkingDirectory)
		if len(discovered) > 0 {
			source := agentcore.GateSourceAutoDiscovered
			if plan.Source != agentcore.GateSourceNone {
				source = agentcore.GateSourceMerged
			}
			for _, d := range discovered {
				norm := normalizeCommand(d.Command)
				if !plan.HasCommand(norm) {
					plan.Gates = append(plan.Gates, agentcore.Gate{Command: norm, Label: d.Label})
				}
			}
			plan.Source = source
		}
	}

	// 4. Strict gates:none-after-write rule.
	if in.StrictMode && in.PlannerDeclaredGatesNone && in.HasWrittenSinceLastValidation && len(plan.Gates) == 0 {
		return Outcome{Blocked: true, Plan: plan, Message: "strict mode rejects gates:none after a write with no runtime-discovered gates"}
	}

	// 5. Masking check.
	if p.Options.GateDisallowMasking || in.StrictMode {
		for _, g := range plan.Gates {
			if shellexec.IsMasking(g.Command) {
				return Outcome{Blocked: true, Masked: true, Plan: plan, Message: fmt.Sprintf("gate command %q rejected: || true masking (or an equivalent pattern) would hide a failing exit code", g.Command)}
			}
		}
	}

	// 6. Gate approval.
	for _, g := range plan.Gates {
		decision, err := p.Approver.ResolveCommandApproval(ctx, g.Command, in.WorkingDirectory)
		if err != nil {
			return Outcome{Blocked: true, Plan: plan, Message: fmt.Sprintf("approval check failed for gate %q: %v", g.Command, err)}
		}
		if decision.Deny != nil {
			return Outcome{Blocked: true, Plan: plan, Message: fmt.Sprintf("gate %q denied: %s", g.Command, decision.Deny.Message)}
		}
		if decision.RequestUser != nil {
			return Outcome{WaitingForUser: true, Plan: plan, Message: decision.RequestUser.Message}
		}
	}

	// 7. Gate execution, sequential.
	for _, g := range plan.Gates {
		result, err := p.Executor.Execute(ctx, shellexec.ExecuteInput{
			Command:          g.Command,
			WorkingDirectory: in.WorkingDirectory,
			Timeout:          120 * time.Second,
		})
		if err != nil || !result.Success {
			return Outcome{Blocked: true, Plan: plan, Message: fmt.Sprintf("completion gate %q failed", g.Command)}
		}
	}

	// 8. Freshness.
	if in.LastSuccessfulValidationStep <= in.LastWriteStep {
		return Outcome{Blocked: true, Plan: plan, Message: "completion blocked: no successful validation since the last write"}
	}

	// 9. Success.
	return Outcome{Completed: true, Plan: plan}
}

func clonePlan(plan *agentcore.CompletionPlan) *agentcore.CompletionPlan {
	if plan == nil {
		return &agentcore.CompletionPlan{Source: agentcore.GateSourceNone}
	}
	gates := make([]agentcore.Gate, len(plan.Gates))
	copy(gates, plan.Gates)
	return &agentcore.CompletionPlan{Gates: gates, Source: plan.Source, RawSpec: plan.RawSpec}
}
