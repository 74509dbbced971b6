package retry

import (
	"testing"

	"github.com/zace-run/zace/internal/agentcore"
)

func TestClassifyRetryTransientNetworkError(t *testing.T) {
	result := &agentcore.ToolResult{Success: false, Error: "dial tcp: connect: ECONNRESET"}
	got := ClassifyRetry(agentcore.ToolCall{Name: "execute_command"}, result)
	if got.Category != agentcore.RetryTransient {
		t.Fatalf("expected transient, got %+v", got)
	}
}

func TestClassifyRetryNonTransientPermission(t *testing.T) {
	result := &agentcore.ToolResult{Success: false, Output: "bash: ./deploy.sh: permission denied"}
	got := ClassifyRetry(agentcore.ToolCall{Name: "execute_command"}, result)
	if got.Category != agentcore.RetryNonTransient {
		t.Fatalf("expected non_transient, got %+v", got)
	}
}

func TestClassifyRetryTimeoutIsTransient(t *testing.T) {
	result := &agentcore.ToolResult{Success: false, Artifacts: &agentcore.ToolResultArtifacts{LifecycleEvent: agentcore.LifecycleTimeout}}
	got := ClassifyRetry(agentcore.ToolCall{Name: "execute_command"}, result)
	if got.Category != agentcore.RetryTransient {
		t.Fatalf("expected transient for timeout, got %+v", got)
	}
}

func TestClassifyRetryUnknownForUnmatchedFailure(t *testing.T) {
	result := &agentcore.ToolResult{Success: false, Output: "assertion failed: expected 3 got 4"}
	got := ClassifyRetry(agentcore.ToolCall{Name: "execute_command"}, result)
	if got.Category != agentcore.RetryUnknown {
		t.Fatalf("expected unknown, got %+v", got)
	}
}

func TestClassifyRetrySuccessIsUnknown(t *testing.T) {
	result := &agentcore.ToolResult{Success: true}
	got := ClassifyRetry(agentcore.ToolCall{Name: "execute_command"}, result)
	if got.Category != agentcore.RetryUnknown {
		t.Fatalf("expected unknown for success, got %+v", got)
	}
}
