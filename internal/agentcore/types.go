// Package agentcore holds the shared data model the rest of the agent
// runtime is built on: the run Context and its Steps, tool calls and
// results, completion plans, LSP bootstrap state, approval decisions, and
// planner outputs. Nothing in this package talks to a process, a file, or
// an LLM — it is the vocabulary every other package shares.
package agentcore

import "time"

// ToolCall is a single tool invocation requested by the planner.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResultArtifacts is the structured telemetry a shell execution produces,
// independent of the human-readable rendered output string.
type ToolResultArtifacts struct {
	ChangedFiles         []string       `json:"changed_files,omitempty"`
	ChangedFilesSource   []ChangeSource `json:"changed_files_source,omitempty"`
	CommandSignature     string         `json:"command_signature"`
	DurationMs           int64          `json:"duration_ms"`
	ExitCode             *int           `json:"exit_code,omitempty"`
	Signal               string         `json:"signal,omitempty"`
	LifecycleEvent       LifecycleEvent `json:"lifecycle_event"`
	TimedOut             bool           `json:"timed_out"`
	Aborted              bool           `json:"aborted"`
	StdoutPath           string         `json:"stdout_path,omitempty"`
	StderrPath           string         `json:"stderr_path,omitempty"`
	CombinedPath         string         `json:"combined_path,omitempty"`
	StdoutTruncated      bool           `json:"stdout_truncated"`
	StderrTruncated      bool           `json:"stderr_truncated"`
	OutputLimitChars     int            `json:"output_limit_chars"`
	ProgressSignal       ProgressSignal `json:"progress_signal"`
	LSPStatus            LSPStatus      `json:"lsp_status,omitempty"`
	LSPStatusReason      string         `json:"lsp_status_reason,omitempty"`
	LSPErrorCount        int            `json:"lsp_error_count"`
	LSPDiagnosticsFiles  []string       `json:"lsp_diagnostics_files,omitempty"`
	RetryCategory        RetryCategory  `json:"retry_category,omitempty"`
	RetrySuppressedReason string        `json:"retry_suppressed_reason,omitempty"`
	WriteRegressionDetected bool        `json:"write_regression_detected,omitempty"`
}

// ToolResult is what executing a tool call produced.
type ToolResult struct {
	Success   bool                  `json:"success"`
	Output    string                `json:"output"`
	Error     string                `json:"error,omitempty"`
	Artifacts *ToolResultArtifacts  `json:"artifacts,omitempty"`
}

// Step is one plan/execute/observe cycle recorded against a run.
type Step struct {
	Step      int         `json:"step"`
	State     RunState    `json:"state"`
	Reasoning string      `json:"reasoning"`
	ToolCall  *ToolCall   `json:"tool_call,omitempty"`
	ToolResult *ToolResult `json:"tool_result,omitempty"`
}

// ScriptCatalogEntry tracks a runtime script the agent has registered via a
// ZACE_SCRIPT_REGISTER marker.
type ScriptCatalogEntry struct {
	ID            string `json:"id"`
	Path          string `json:"path"`
	Purpose       string `json:"purpose"`
	LastTouchedStep int  `json:"last_touched_step"`
	TimesUsed     int    `json:"times_used"`
}

// Gate is a single completion-validation shell command.
type Gate struct {
	Command string `json:"command"`
	Label   string `json:"label"`
}

// CompletionPlan is the ordered, deduplicated set of gates that must pass
// before a run may finalize as completed.
type CompletionPlan struct {
	Gates   []Gate     `json:"gates"`
	Source  GateSource `json:"source"`
	RawSpec string     `json:"raw_spec,omitempty"`
}

// HasCommand reports whether a gate with this normalized command already
// exists in the plan.
func (p *CompletionPlan) HasCommand(normalized string) bool {
	for _, g := range p.Gates {
		if g.Command == normalized {
			return true
		}
	}
	return false
}

// LSPBootstrapContext is the mutable state of the LSP bootstrap FSM.
type LSPBootstrapContext struct {
	State               BootstrapState `json:"state"`
	LastFailureReason   string         `json:"last_failure_reason,omitempty"`
	PendingChangedFiles map[string]struct{} `json:"-"`
	ProvisionAttempts   int            `json:"provision_attempts"`
	AttemptedCommands   []string       `json:"attempted_commands,omitempty"` // bounded ring of 5
}

// RecordAttempt appends a command to the bounded ring of the last 5
// auto-provision attempts.
func (c *LSPBootstrapContext) RecordAttempt(cmd string) {
	c.AttemptedCommands = append(c.AttemptedCommands, cmd)
	if len(c.AttemptedCommands) > 5 {
		c.AttemptedCommands = c.AttemptedCommands[len(c.AttemptedCommands)-5:]
	}
}

// ApprovalDecision is the sum type resolveCommandApproval returns.
// Exactly one of Allow/Deny/RequestUser is non-nil.
type ApprovalDecision struct {
	Allow       *AllowDecision
	Deny        *DenyDecision
	RequestUser *RequestUserDecision
}

type AllowDecision struct {
	Scope             ApprovalScope
	RequiredApproval  bool
}

type DenyDecision struct {
	Scope   ApprovalScope
	Message string
}

type RequestUserDecision struct {
	CommandSignature string
	Reason           string
	Message          string
}

// PlanResult is the outcome of a single planner.plan() call.
type PlanResult struct {
	Action                       PlanAction `json:"action"`
	Reasoning                    string     `json:"reasoning"`
	UserMessage                  string     `json:"user_message,omitempty"`
	ToolCall                     *ToolCall  `json:"tool_call,omitempty"`
	CompletionGateCommands       []string   `json:"completion_gate_commands,omitempty"`
	CompletionGatesDeclaredNone  bool       `json:"completion_gates_declared_none,omitempty"`
	ParseMode                    ParseMode  `json:"parse_mode"`
	ParseAttempts                int        `json:"parse_attempts"`
	RawInvalidCount               int       `json:"raw_invalid_count"`
	InvalidOutputArtifactPath    string     `json:"invalid_output_artifact_path,omitempty"`
	TransportStructured          bool       `json:"transport_structured"`
	Usage                        *Usage     `json:"usage,omitempty"`
}

// Usage carries token accounting for a single LLM call.
type Usage struct {
	InputTokens    int `json:"input_tokens"`
	OutputTokens   int `json:"output_tokens"`
	ContextWindow  int `json:"context_window"`
}

// Message is one entry of the ordered conversation log.
type Message struct {
	Role    string `json:"role"` // system | user | assistant | tool
	Content string `json:"content"`
}

// RunEventPhase names where within a step an event was emitted.
type RunEventPhase string

const (
	PhasePlanning   RunEventPhase = "planning"
	PhaseExecuting  RunEventPhase = "executing"
	PhaseApproval   RunEventPhase = "approval"
	PhaseFinalizing RunEventPhase = "finalizing"
)

// RunEvent is a single typed entry in the append-only session log.
type RunEvent struct {
	RunID     string         `json:"run_id"`
	Step      int            `json:"step"`
	Phase     RunEventPhase  `json:"phase"`
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
