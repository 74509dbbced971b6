// Package executoranalysis implements the optional executor-analysis call:
// when a shell command fails, ask the model whether the run loop should
// retry it, and with what guidance. Uses a single-line
// "###RECOVERY:action:detail###" decision format and a five-way action
// taxonomy (retry / fix-state / break-chunks / skip / manual), narrowed to
// the two outcomes internal/loop.ExecutorAnalyzer actually needs — retry
// with a delay, or do not retry. The detail text after the action is not
// returned to the caller.
package executoranalysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/llmtransport"
)

// Action is one of the recovery decisions the model may choose.
type Action string

const (
	ActionRetry       Action = "retry"
	ActionFixState    Action = "fix-state"
	ActionBreakChunks Action = "break-chunks"
	ActionSkip        Action = "skip"
	ActionManual      Action = "manual"
)

// actionRetries lists which actions the run loop should translate into a
// retry of the same tool call; every other action means the command is
// not re-run.
var actionRetries = map[Action]bool{
	ActionRetry:    true,
	ActionFixState: true,
}

var signalPattern = regexp.MustCompile(`(?s)###RECOVERY:([a-z-]+):(.*?)###`)

// Analyzer calls an LLM to decide whether a failed tool call should be
// retried, the concrete type satisfying internal/loop.ExecutorAnalyzer.
type Analyzer struct {
	Client       llmtransport.Client
	Model        string
	BaseDelayMs  int
}

// Analyze asks the model to classify result and returns whether the loop
// should retry toolCall, and after how long.
func (a *Analyzer) Analyze(ctx context.Context, toolCall agentcore.ToolCall, result *agentcore.ToolResult, attempt int) (shouldRetry bool, retryDelayMs int, err error) {
	if a.Client == nil || result == nil || result.Success {
		return false, 0, nil
	}

	req := llmtransport.Request{
		Model:        a.Model,
		SystemPrompt: "You are a recovery decision agent for an autonomous coding agent's run loop.",
		Messages: []llmtransport.Message{
			{Role: "user", Content: buildRecoveryPrompt(toolCall, result, attempt)},
		},
	}

	resp, err := a.Client.Complete(ctx, req)
	if err != nil {
		return false, 0, fmt.Errorf("executor analysis call failed: %w", err)
	}
	if resp.Rejection != "" {
		return false, 0, nil
	}

	action, _ := parseRecoveryDecision(resp.Text)
	if !actionRetries[action] {
		return false, 0, nil
	}

	delay := a.BaseDelayMs
	if delay <= 0 {
		delay = 1000
	}
	return true, delay * attempt, nil
}

func buildRecoveryPrompt(toolCall agentcore.ToolCall, result *agentcore.ToolResult, attempt int) string {
	return fmt.Sprintf(`A shell command just failed on attempt %d.

Command: %v
Error: %s
Output: %s

Decide what the run loop should do next. Respond with exactly one signal:

###RECOVERY:retry:{guidance}### - transient error, network issue, timing problem
###RECOVERY:fix-state:{what to fix}### - a file or directory needs fixing before retrying
###RECOVERY:break-chunks:{how to split}### - the task is too large for one command
###RECOVERY:skip:{reason}### - not worth retrying, let the run continue past it
###RECOVERY:manual:{what a human needs to do}### - requires credentials or human judgment
`, attempt, toolCall.Arguments, result.Error, truncate(result.Output, 4000))
}

func parseRecoveryDecision(output string) (Action, string) {
	m := signalPattern.FindStringSubmatch(output)
	if m == nil {
		return ActionManual, "no recovery signal found in model output"
	}
	return Action(m[1]), strings.TrimSpace(m[2])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
