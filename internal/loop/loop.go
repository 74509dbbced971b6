package loop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/agentstate"
	"github.com/zace-run/zace/internal/config"
	"github.com/zace-run/zace/internal/gate"
	"github.com/zace-run/zace/internal/llmtransport"
	"github.com/zace-run/zace/internal/lsp"
	"github.com/zace-run/zace/internal/memory"
	"github.com/zace-run/zace/internal/planner"
	"github.com/zace-run/zace/internal/retry"
	"github.com/zace-run/zace/internal/sessionlog"
	"github.com/zace-run/zace/internal/shellexec"
)

// ApprovalResolver is the seam the loop depends on to decide whether a
// shell command may run, implemented by *approval.Resolver.
type ApprovalResolver interface {
	Resolve(ctx context.Context, command, cwd string) (*agentcore.ApprovalDecision, error)
}

// approverAdapter lets a Loop hand its ApprovalResolver to gate.Pipeline,
// whose Approver interface names the method ResolveCommandApproval.
type approverAdapter struct{ r ApprovalResolver }

func (a approverAdapter) ResolveCommandApproval(ctx context.Context, command, cwd string) (*agentcore.ApprovalDecision, error) {
	return a.r.Resolve(ctx, command, cwd)
}

// NewGateApprover adapts an ApprovalResolver to gate.Approver, so a single
// *approval.Resolver can back both the tool-call approval phase and the
// completion-gate pipeline's own approval step.
func NewGateApprover(r ApprovalResolver) gate.Approver {
	return approverAdapter{r: r}
}

// ExecutorAnalyzer optionally opines on whether a failed tool call should
// be retried and how long to wait first. A nil Loop.ExecutorAnalysis
// disables the call entirely, equivalent to config.ExecutorAnalysisNever.
type ExecutorAnalyzer interface {
	Analyze(ctx context.Context, toolCall agentcore.ToolCall, result *agentcore.ToolResult, attempt int) (shouldRetry bool, retryDelayMs int, err error)
}

// Loop is the run loop orchestrator. It owns no persisted state itself; it
// sequences calls across the planner, completion-gate pipeline, approval
// resolver, shell executor, LSP registry, message log, and session log for
// the lifetime of one run.
type Loop struct {
	Planner          *planner.Planner
	GatePipeline     *gate.Pipeline
	Approver         ApprovalResolver
	Executor         *shellexec.Executor
	Policy           *shellexec.Policy
	LSPRegistry      *lsp.Registry
	LSPServers       []lsp.ServerSpec
	Memory           *memory.Log
	SessionLog       *sessionlog.SessionLog
	ExecutorAnalysis ExecutorAnalyzer
	Options          *config.Options
	Logger           *zap.Logger

	RunID            string
	WorkingDirectory string

	state *RuntimeState
}

// Run drives ctx forward one step at a time until a terminal state is
// reached or the step budget is exhausted.
func (l *Loop) Run(parent context.Context, ctx agentstate.Context) (agentstate.Context, error) {
	if l.Logger == nil {
		l.Logger = zap.NewNop()
	}
	l.state = NewRuntimeState()

	if l.Memory.Len() <= 1 && ctx.CurrentStep == 0 {
		l.Memory.AddMessage(memory.Message{Role: memory.RoleUser, Content: ctx.Task})
		l.SessionLog.Message("user", ctx.Task)
	}

	for {
		select {
		case <-parent.Done():
			return l.finalize(ctx, agentcore.StateInterrupted), nil
		default:
		}

		if ctx.CurrentStep >= ctx.MaxSteps {
			return l.finalize(agentstate.TransitionState(ctx, agentcore.StateBlocked), agentcore.StateBlocked), nil
		}

		next, terminalState, err := l.step(parent, ctx)
		if err != nil {
			return l.finalize(agentstate.TransitionState(ctx, agentcore.StateError), agentcore.StateError), nil
		}
		ctx = next
		if terminalState != "" {
			return l.finalize(ctx, terminalState), nil
		}
	}
}

// finalize sets ctx's top-level state and writes the run's terminal session
// log entry.
func (l *Loop) finalize(ctx agentstate.Context, state agentcore.RunState) agentstate.Context {
	ctx = agentstate.TransitionState(ctx, state)
	l.SessionLog.RunEvent(ctx.CurrentStep, sessionlog.PhaseFinalizing, "final_state_set", map[string]any{"final_state": string(state)})
	return ctx
}

// step runs one iteration of the 12-phase per-step schedule. It returns the
// updated Context and, when the run has reached a terminal outcome, the
// terminal RunState (empty otherwise).
func (l *Loop) step(ctx context.Context, runCtx agentstate.Context) (agentstate.Context, agentcore.RunState, error) {
	stepNum := runCtx.CurrentStep + 1

	// 1. Abort check.
	select {
	case <-ctx.Done():
		return runCtx, agentcore.StateInterrupted, nil
	default:
	}

	// 2. Transition to planning, emit telemetry.
	runCtx = agentstate.TransitionState(runCtx, agentcore.StatePlanning)
	l.SessionLog.RunEvent(stepNum, sessionlog.PhasePlanning, "plan_started", nil)
	schemaMode := l.Options.PlannerOutputMode
	l.SessionLog.RunEvent(stepNum, sessionlog.PhasePlanning, "planner_schema_mode_selected", map[string]any{"mode": string(schemaMode)})

	// 3. Call the planner.
	systemPrompt := l.Memory.SystemPrompt()
	messages := toLLMMessages(l.Memory.Messages())
	plan, err := l.Planner.Plan(ctx, l.RunID, systemPrompt, messages)
	if err != nil {
		return runCtx, "", fmt.Errorf("planner call failed at step %d: %w", stepNum, err)
	}
	l.SessionLog.RunEvent(stepNum, sessionlog.PhasePlanning, "plan_parsed", map[string]any{
		"action":     string(plan.Action),
		"parse_mode": string(plan.ParseMode),
	})

	// 4. Compaction check.
	if plan.Usage != nil && memory.ShouldCompact(plan.Usage.InputTokens, plan.Usage.ContextWindow, l.Options.CompactionTriggerRatio) {
		if summarizer, ok := l.Planner.Client.(memory.Summarizer); ok {
			if cerr := l.Memory.Compact(summarizer, l.Options.CompactionPreserveRecentMessages); cerr == nil {
				l.SessionLog.RunEvent(stepNum, sessionlog.PhasePlanning, "memory_compacted", nil)
			}
		}
	}

	l.Memory.AddMessage(memory.Message{Role: memory.RoleAssistant, Content: plan.Reasoning})
	l.SessionLog.Message("assistant", plan.Reasoning)

	// 5. Branch on planner action.
	switch plan.Action {
	case agentcore.ActionAskUser:
		step := agentcore.Step{Step: stepNum, State: agentcore.StateWaitingForUser, Reasoning: plan.Reasoning}
		next, aerr := agentstate.AddStep(runCtx, step)
		if aerr != nil {
			return runCtx, "", aerr
		}
		return next, agentcore.StateWaitingForUser, nil

	case agentcore.ActionBlocked:
		step := agentcore.Step{Step: stepNum, State: agentcore.StateBlocked, Reasoning: plan.Reasoning}
		next, aerr := agentstate.AddStep(runCtx, step)
		if aerr != nil {
			return runCtx, "", aerr
		}
		return next, agentcore.StateBlocked, nil

	case agentcore.ActionComplete:
		return l.runCompletionGate(ctx, runCtx, stepNum, plan)

	case agentcore.ActionContinue:
		// falls through to the execution phase below
	default:
		return runCtx, "", fmt.Errorf("planner returned unrecognized action %q", plan.Action)
	}

	// No tool call on a continue action: track consecutive no-progress steps.
	if plan.ToolCall == nil {
		l.state.ConsecutiveNoToolContinues++
		if l.state.ConsecutiveNoToolContinues > MaxConsecutiveNoToolContinues {
			step := agentcore.Step{Step: stepNum, State: agentcore.StateWaitingForUser, Reasoning: plan.Reasoning}
			next, aerr := agentstate.AddStep(runCtx, step)
			if aerr != nil {
				return runCtx, "", aerr
			}
			l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "no_tool_progress_guard", nil)
			return next, agentcore.StateWaitingForUser, nil
		}
		step := agentcore.Step{Step: stepNum, State: agentcore.StateExecuting, Reasoning: plan.Reasoning}
		next, aerr := agentstate.AddStep(runCtx, step)
		return next, "", aerr
	}
	l.state.ConsecutiveNoToolContinues = 0

	return l.runToolCall(ctx, runCtx, stepNum, plan)
}

// runCompletionGate runs the completion-gate pipeline for a planner
// action=complete decision and folds the outcome back into the run state.
func (l *Loop) runCompletionGate(ctx context.Context, runCtx agentstate.Context, stepNum int, plan *agentcore.PlanResult) (agentstate.Context, agentcore.RunState, error) {
	cwd := l.state.LastExecutionWorkingDirectory
	if cwd == "" {
		cwd = l.WorkingDirectory
	}

	in := gate.Input{
		Plan:                            l.state.CompletionPlan,
		PlannerGateCommands:             plan.CompletionGateCommands,
		PlannerDeclaredGatesNone:        plan.CompletionGatesDeclaredNone,
		HasWrittenSinceLastValidation:   l.state.LastWriteStep > l.state.LastSuccessfulValidationStep,
		StrictMode:                      l.Options.CompletionValidationMode == config.ValidationStrict,
		WorkingDirectory:                cwd,
		LastSuccessfulValidationStep:    l.state.LastSuccessfulValidationStep,
		LastWriteStep:                   l.state.LastWriteStep,
		LSPBootstrapState:               l.state.LSPBootstrap.State,
		LSPAutoProvisionBudgetRemaining: l.state.LSPBootstrap.ProvisionAttempts < l.Options.LSPProvisionMaxAttempts,
	}
	outcome := l.GatePipeline.Run(ctx, in)
	l.state.CompletionPlan = outcome.Plan

	switch {
	case outcome.Completed:
		step := agentcore.Step{Step: stepNum, State: agentcore.StateCompleted, Reasoning: plan.Reasoning}
		next, aerr := agentstate.AddStep(runCtx, step)
		if aerr != nil {
			return runCtx, "", aerr
		}
		l.SessionLog.RunEvent(stepNum, sessionlog.PhaseFinalizing, "completion_gate_passed", nil)
		return next, agentcore.StateCompleted, nil

	case outcome.WaitingForUser:
		step := agentcore.Step{Step: stepNum, State: agentcore.StateWaitingForUser, Reasoning: outcome.Message}
		next, aerr := agentstate.AddStep(runCtx, step)
		if aerr != nil {
			return runCtx, "", aerr
		}
		return next, agentcore.StateWaitingForUser, nil

	default: // Blocked: replan unless the same block message repeats past the limit.
		if outcome.Masked {
			l.SessionLog.RunEvent(stepNum, sessionlog.PhaseFinalizing, "validation_gate_masked", map[string]any{"message": outcome.Message})
		}
		l.SessionLog.RunEvent(stepNum, sessionlog.PhaseFinalizing, "completion_gate_blocked", map[string]any{"message": outcome.Message})
		if outcome.Message == l.state.LastCompletionBlockMessage {
			l.state.CompletionBlockRepeatCount++
		} else {
			l.state.CompletionBlockRepeatCount = 1
			l.state.LastCompletionBlockMessage = outcome.Message
		}
		if l.state.CompletionBlockRepeatCount >= l.Options.CompletionBlockRepeatLimit {
			msg := "I am repeatedly blocked from completing this task: " + outcome.Message
			step := agentcore.Step{Step: stepNum, State: agentcore.StateWaitingForUser, Reasoning: msg}
			next, aerr := agentstate.AddStep(runCtx, step)
			if aerr != nil {
				return runCtx, "", aerr
			}
			l.SessionLog.RunEvent(stepNum, sessionlog.PhaseFinalizing, "completion_block_loop_guard_triggered", nil)
			l.Memory.AddMessage(memory.Message{Role: memory.RoleAssistant, Content: msg})
			return next, agentcore.StateWaitingForUser, nil
		}
		l.Memory.AddMessage(memory.Message{Role: memory.RoleTool, Content: "completion blocked: " + outcome.Message})
		step := agentcore.Step{Step: stepNum, State: agentcore.StatePlanning, Reasoning: plan.Reasoning}
		next, aerr := agentstate.AddStep(runCtx, step)
		if aerr != nil {
			return runCtx, "", aerr
		}
		return next, "", nil
	}
}

// runToolCall implements phases 6 through 12 of the per-step schedule for a
// planner decision carrying a tool call.
func (l *Loop) runToolCall(ctx context.Context, runCtx agentstate.Context, stepNum int, plan *agentcore.PlanResult) (agentstate.Context, agentcore.RunState, error) {
	toolCall := *plan.ToolCall
	cwd := l.WorkingDirectory
	var command string

	if toolCall.Name == "execute_command" {
		var cerr error
		command, cwd, cerr = extractCommand(toolCall, l.WorkingDirectory)
		if cerr != nil {
			l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "tool_call_validation_failed", map[string]any{"error": cerr.Error()})
			return l.recordToolResult(runCtx, stepNum, plan, &agentcore.ToolResult{Success: false, Error: cerr.Error()})
		}

		// 6a. Runtime-script protocol enforcement.
		if blocked, reason := l.checkRuntimeScriptProtocol(command); blocked {
			return l.recordToolResult(runCtx, stepNum, plan, &agentcore.ToolResult{Success: false, Error: reason})
		}

		// 6b. Process-level allow/deny policy.
		if l.Policy != nil {
			if ok, reason := l.Policy.Check(command); !ok {
				return l.recordToolResult(runCtx, stepNum, plan, &agentcore.ToolResult{Success: false, Error: "policy rejected command: " + reason})
			}
		}

		// 6c. Pre-execution doom-loop guard.
		sig := agentcore.BuildToolCallSignature(toolCall.Name, toolCall.Arguments, cwd)
		wasReadonly := IsReadonlyInspectionCommand(command)
		if allEqual(l.state.ToolCallSignatureHistory, sig, l.Options.DoomLoopThreshold) {
			if wasReadonly && !l.state.RecoveredSignatures[sig] {
				l.state.RecoveredSignatures[sig] = true
				l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "inspection_loop_recovery_triggered", map[string]any{"signature": sig})
			} else {
				step := agentcore.Step{Step: stepNum, State: agentcore.StateWaitingForUser, Reasoning: plan.Reasoning, ToolCall: &toolCall}
				next, aerr := agentstate.AddStep(runCtx, step)
				if aerr != nil {
					return runCtx, "", aerr
				}
				l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "loop_guard_triggered", map[string]any{"signature": sig})
				return next, agentcore.StateWaitingForUser, nil
			}
		}
		l.state.ToolCallSignatureHistory = pushSignature(l.state.ToolCallSignatureHistory, sig, l.Options.DoomLoopThreshold)

		// 7. Approval phase.
		decision, derr := l.Approver.Resolve(ctx, command, cwd)
		if derr != nil {
			return l.recordToolResult(runCtx, stepNum, plan, &agentcore.ToolResult{Success: false, Error: "approval check failed: " + derr.Error()})
		}
		if decision.Deny != nil {
			return l.recordToolResult(runCtx, stepNum, plan, &agentcore.ToolResult{Success: false, Error: "command denied: " + decision.Deny.Message})
		}
		if decision.RequestUser != nil {
			step := agentcore.Step{Step: stepNum, State: agentcore.StateWaitingForUser, Reasoning: decision.RequestUser.Message, ToolCall: &toolCall}
			next, aerr := agentstate.AddStep(runCtx, step)
			if aerr != nil {
				return runCtx, "", aerr
			}
			return next, agentcore.StateWaitingForUser, nil
		}

		// 8. Execute, with transient retry.
		result, rerr := l.executeWithRetry(ctx, toolCall, command, cwd, stepNum)
		if rerr != nil {
			return runCtx, "", rerr
		}

		l.applyPostExecutionUpdates(stepNum, command, result)
		l.runLSPHandling(ctx, stepNum, result, cwd)

		if sig, blocked := l.checkPostExecutionGuardrails(stepNum, toolCall, result); blocked {
			step := agentcore.Step{Step: stepNum, State: agentcore.StateWaitingForUser, Reasoning: plan.Reasoning, ToolCall: &toolCall, ToolResult: result}
			next, aerr := agentstate.AddStep(runCtx, step)
			if aerr != nil {
				return runCtx, "", aerr
			}
			l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "post_execution_repetition_guard_triggered", map[string]any{"signature": sig})
			return next, agentcore.StateWaitingForUser, nil
		}

		return l.recordToolResult(runCtx, stepNum, plan, result)
	}

	// Non-shell tools: search/write against the message log directly.
	var result *agentcore.ToolResult
	switch toolCall.Name {
	case "search_session_messages":
		result = searchSessionMessages(l.Memory, toolCall)
	case "write_session_message":
		result = writeSessionMessage(l.Memory, toolCall)
	default:
		l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "tool_call_validation_failed", map[string]any{"error": fmt.Sprintf("unrecognized tool %q", toolCall.Name)})
		result = &agentcore.ToolResult{Success: false, Error: fmt.Sprintf("unrecognized tool %q", toolCall.Name)}
	}
	return l.recordToolResult(runCtx, stepNum, plan, result)
}

// recordToolResult appends the step and mirrors the tool result into memory
// and the session log, then checks the read-only stagnation guardrail.
func (l *Loop) recordToolResult(runCtx agentstate.Context, stepNum int, plan *agentcore.PlanResult, result *agentcore.ToolResult) (agentstate.Context, agentcore.RunState, error) {
	step := agentcore.Step{Step: stepNum, State: agentcore.StateExecuting, Reasoning: plan.Reasoning, ToolCall: plan.ToolCall, ToolResult: result}
	next, err := agentstate.AddStep(runCtx, step)
	if err != nil {
		return runCtx, "", err
	}

	digest := result.Output
	if !result.Success {
		digest = "error: " + result.Error
	}
	l.Memory.AddMessage(memory.Message{Role: memory.RoleTool, Content: digest})
	l.SessionLog.Message("tool", digest)

	if l.checkReadonlyStagnation(next) {
		l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "readonly_stagnation_guard_triggered", nil)
		return next, agentcore.StateWaitingForUser, nil
	}

	return next, "", nil
}

// checkRuntimeScriptProtocol enforces that mutating or multi-statement
// commands run through a registered runtime script rather than an inline
// shell one-liner, when that protocol is turned on.
func (l *Loop) checkRuntimeScriptProtocol(command string) (blocked bool, reason string) {
	if !l.Options.RuntimeScriptEnforced {
		return false, ""
	}
	if IsReadonlyInspectionCommand(command) {
		return false, ""
	}
	if !isMultiStatement(command) {
		return false, ""
	}
	if strings.Contains(command, ".zace/runtime/scripts/") {
		return false, ""
	}
	return true, "runtime-script protocol requires multi-statement commands to run from a registered script under .zace/runtime/scripts/"
}

func isMultiStatement(command string) bool {
	return strings.ContainsAny(command, ";\n") || strings.Contains(command, "&&") || strings.Contains(command, "||") || strings.Contains(command, "|")
}

// executeWithRetry runs one tool call through the executor, retrying while
// the retry classifier reports transient and the attempt budget allows.
func (l *Loop) executeWithRetry(ctx context.Context, toolCall agentcore.ToolCall, command, cwd string, stepNum int) (*agentcore.ToolResult, error) {
	timeout := time.Duration(l.Options.ShellTimeoutMs) * time.Millisecond
	maxAttempts := l.Options.TransientRetryMaxAttempts + 1

	var result *agentcore.ToolResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "tool_call_started", map[string]any{"tool": toolCall.Name, "attempt": attempt})
		r, err := l.Executor.Execute(ctx, shellexec.ExecuteInput{
			RunID:            l.RunID,
			Step:             stepNum,
			Command:          command,
			WorkingDirectory: cwd,
			Timeout:          timeout,
		})
		if err != nil {
			l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "tool_call_finished", map[string]any{"tool": toolCall.Name, "attempt": attempt, "success": false, "error": err.Error()})
			return nil, fmt.Errorf("execution failed at step %d: %w", stepNum, err)
		}
		result = r
		l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "tool_call_finished", map[string]any{"tool": toolCall.Name, "attempt": attempt, "success": result.Success})
		if result.Success {
			return result, nil
		}

		classification := retry.ClassifyRetry(toolCall, result)
		if result.Artifacts != nil {
			result.Artifacts.RetryCategory = classification.Category
		}

		analysisShouldRetry := false
		analysisDelayMs := 0
		runAnalysis := l.ExecutorAnalysis != nil && (l.Options.ExecutorAnalysis == config.ExecutorAnalysisAlways || l.Options.ExecutorAnalysis == config.ExecutorAnalysisOnFailure)
		if runAnalysis {
			shouldRetry, delayMs, aerr := l.ExecutorAnalysis.Analyze(ctx, toolCall, result, attempt)
			if aerr == nil {
				analysisShouldRetry = shouldRetry
				analysisDelayMs = delayMs
			}
		}

		shouldRetry := classification.Category == agentcore.RetryTransient
		if !shouldRetry && analysisShouldRetry && result.Artifacts != nil {
			result.Artifacts.RetrySuppressedReason = "non_transient: " + classification.Reason
			l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "retry_suppressed_non_transient", map[string]any{"reason": classification.Reason, "category": "non_transient"})
		}
		if !shouldRetry || attempt >= maxAttempts {
			return result, nil
		}

		delayMs := analysisDelayMs
		if delayMs > l.Options.TransientRetryMaxDelayMs {
			delayMs = l.Options.TransientRetryMaxDelayMs
		}
		if delayMs > 0 {
			select {
			case <-time.After(time.Duration(delayMs) * time.Millisecond):
			case <-ctx.Done():
				return result, nil
			}
		}
	}
	return result, nil
}

// applyPostExecutionUpdates folds one tool result's outcome into the
// loop's cross-step bookkeeping: working directory, write tracking, and
// validation freshness.
func (l *Loop) applyPostExecutionUpdates(stepNum int, command string, result *agentcore.ToolResult) {
	if result.Artifacts == nil {
		return
	}
	l.state.LastExecutionWorkingDirectory = l.WorkingDirectory
	if len(result.Artifacts.ChangedFiles) > 0 {
		l.state.LastWriteStep = stepNum
		l.state.LastWriteWorkingDirectory = l.WorkingDirectory
	}
	if result.Success && IsValidatorCommand(command) {
		l.state.LastSuccessfulValidationStep = stepNum
	}
}

// runLSPHandling probes changed files through the LSP registry, advances
// the bootstrap FSM, and flags a write regression when the error count
// climbs since the prior write's probe.
func (l *Loop) runLSPHandling(ctx context.Context, stepNum int, result *agentcore.ToolResult, cwd string) {
	if !l.Options.LSPEnabled || result.Artifacts == nil {
		return
	}
	pending := lsp.FilterPendingChangedFiles(result.Artifacts.ChangedFiles, l.Options.LSPServerConfigPath, ".zace/runtime/tmp/")
	var status agentcore.LSPStatus
	var reason string
	var diagFiles []string
	if len(pending) == 0 {
		status = agentcore.LSPStatusNoChangedFiles
	} else {
		probe := l.LSPRegistry.ProbeFiles(ctx, pending, l.LSPServers, cwd, l.Options.LSPWaitForDiagnosticsMs)
		status = agentcore.LSPStatus(probe.Status)
		reason = probe.Reason
		diagFiles = probe.DiagnosticsFiles
	}

	result.Artifacts.LSPStatus = status
	result.Artifacts.LSPStatusReason = reason
	result.Artifacts.LSPDiagnosticsFiles = diagFiles
	result.Artifacts.LSPErrorCount = len(diagFiles)

	signal := lsp.DeriveSignal(status)
	reasonChanged := reason != l.state.LSPBootstrap.LastFailureReason
	transition := lsp.Transition(l.state.LSPBootstrap.State, signal, reasonChanged)
	l.state.LSPBootstrap.State = transition.NextState
	l.state.LSPBootstrap.LastFailureReason = reason
	if transition.EmitRequired {
		l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "lsp_bootstrap_required", map[string]any{"reason": reason})
	}
	if transition.EmitCleared {
		l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "lsp_bootstrap_cleared", nil)
	}

	if l.state.LastWriteStep == stepNum {
		if result.Artifacts.LSPErrorCount-l.state.LastLSPErrorCount >= l.Options.WriteRegressionErrorSpike {
			result.Artifacts.WriteRegressionDetected = true
			l.SessionLog.RunEvent(stepNum, sessionlog.PhaseExecuting, "write_regression_detected", map[string]any{
				"previous_error_count": l.state.LastLSPErrorCount,
				"current_error_count":  result.Artifacts.LSPErrorCount,
			})
		}
		l.state.LastLSPErrorCount = result.Artifacts.LSPErrorCount
	}
}

// checkPostExecutionGuardrails reports whether the most recent tool result
// extends a 3-identical-consecutive-result signature streak, the
// post-execution repetition guard.
func (l *Loop) checkPostExecutionGuardrails(stepNum int, toolCall agentcore.ToolCall, result *agentcore.ToolResult) (string, bool) {
	sig := agentcore.BuildToolLoopSignature(toolCall.Name, toolCall.Arguments, result.Output, result.Success)
	l.state.PostExecutionHashHistory = pushSignature(l.state.PostExecutionHashHistory, sig, 3)
	return sig, allEqual(l.state.PostExecutionHashHistory, sig, 3)
}

// checkReadonlyStagnation reports whether the tail of runCtx's steps since
// the last write consists entirely of read-only, no-progress tool calls
// spanning the configured stagnation window.
func (l *Loop) checkReadonlyStagnation(runCtx agentstate.Context) bool {
	window := l.Options.ReadonlyStagnationWindow
	if window <= 0 || len(runCtx.Steps) < window || l.state.LastWriteStep <= 0 {
		return false
	}
	tail := runCtx.Steps[len(runCtx.Steps)-window:]
	for _, s := range tail {
		if s.Step <= l.state.LastWriteStep {
			return false
		}
		if s.ToolCall == nil || s.ToolResult == nil {
			return false
		}
		if s.ToolCall.Name != "execute_command" {
			return false
		}
		command, _ := s.ToolCall.Arguments["command"].(string)
		if !IsReadonlyInspectionCommand(command) {
			return false
		}
		if s.ToolResult.Artifacts != nil && len(s.ToolResult.Artifacts.ChangedFiles) > 0 {
			return false
		}
	}
	return true
}

// toLLMMessages converts the message log to the shape the planner's
// transport client expects, dropping the system message since Plan takes
// it as a separate argument.
func toLLMMessages(messages []memory.Message) []llmtransport.Message {
	out := make([]llmtransport.Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == memory.RoleSystem {
			continue
		}
		out = append(out, llmtransport.Message{Role: string(m.Role), Content: m.Content})
	}
	return out
}
