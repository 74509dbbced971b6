// Package loop implements the run loop orchestrator: the per-step schedule
// that calls the planner, runs pre/post-execution guardrails, dispatches
// tool calls through approval and execution, and finalizes a run into one
// of completed/blocked/waiting_for_user/interrupted/error. It is the one
// package that imports and sequences every other runtime package: a single
// driving for-loop over steps with an explicit struct carrying
// cross-iteration counters.
package loop

import "github.com/zace-run/zace/internal/agentcore"

const MaxConsecutiveNoToolContinues = 2

// RuntimeState is the ephemeral, in-memory bookkeeping the loop accumulates
// across steps. Unlike agentstate.Context (the persisted, replayable run
// record), none of this is written to disk; it exists only to drive the
// guardrails for the lifetime of one process.
type RuntimeState struct {
	ConsecutiveNoToolContinues int

	ToolCallSignatureHistory []string
	RecoveredSignatures      map[string]bool

	LastExecutionWorkingDirectory string
	LastWriteStep                 int
	LastWriteWorkingDirectory     string
	LastSuccessfulValidationStep  int
	LastLSPErrorCount             int

	CompletionBlockRepeatCount int
	LastCompletionBlockMessage string

	PostExecutionHashHistory []string

	LSPBootstrap agentcore.LSPBootstrapContext

	CompletionPlan *agentcore.CompletionPlan
}

// NewRuntimeState returns a RuntimeState for a fresh run.
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{
		RecoveredSignatures: map[string]bool{},
		LSPBootstrap:        agentcore.LSPBootstrapContext{State: agentcore.BootstrapIdle},
	}
}

// pushSignature appends sig to the bounded history used for doom-loop
// detection, keeping only the last `keep` entries.
func pushSignature(history []string, sig string, keep int) []string {
	history = append(history, sig)
	if len(history) > keep {
		history = history[len(history)-keep:]
	}
	return history
}

// allEqual reports whether history has at least `n` entries and its last n
// entries are all equal to sig.
func allEqual(history []string, sig string, n int) bool {
	if n <= 0 || len(history) < n {
		return false
	}
	tail := history[len(history)-n:]
	for _, s := range tail {
		if s != sig {
			return false
		}
	}
	return true
}
