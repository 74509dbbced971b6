// Package retry implements the retry classifier and stability signatures:
// classifyRetry labels a failed tool call transient, non_transient, or
// unknown so the run loop knows when a retry is safe, matching known
// substrings ("unexpected EOF", "timeout", "permission denied") against
// captured failure output to pick a category.
package retry

import (
	"regexp"
	"strings"

	"github.com/zace-run/zace/internal/agentcore"
)

// transientPatterns match signals that typically resolve on their own: a
// network hiccup, a handshake timeout, a transient resource contention.
var transientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bECONNRESET\b`),
	regexp.MustCompile(`(?i)\bEPIPE\b`),
	regexp.MustCompile(`(?i)\bETIMEDOUT\b`),
	regexp.MustCompile(`(?i)\bEAI_AGAIN\b`),
	regexp.MustCompile(`(?i)\bENETUNREACH\b`),
	regexp.MustCompile(`(?i)\bEHOSTUNREACH\b`),
	regexp.MustCompile(`(?i)\btls handshake timeout\b`),
	regexp.MustCompile(`(?i)\bhandshake timeout\b`),
	regexp.MustCompile(`(?i)\btemporarily (un)?available\b`),
	regexp.MustCompile(`(?i)\btemporarily failed\b`),
	regexp.MustCompile(`(?i)\bconnection reset by peer\b`),
	regexp.MustCompile(`(?i)\bunexpected EOF\b`),
}

// nonTransientPatterns match signals that will reliably reproduce on retry.
var nonTransientPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bcommand not found\b`),
	regexp.MustCompile(`(?i)\bpermission denied\b`),
	regexp.MustCompile(`(?i)\bno such file or directory\b`),
	regexp.MustCompile(`(?i)\bsyntax error\b`),
}

// Classification is the outcome of classifyRetry.
type Classification struct {
	Category agentcore.RetryCategory
	Reason   string
}

// ClassifyRetry labels a failed tool call's output transient,
// non_transient, or unknown. toolCall is currently unused by the
// classification itself but kept in the signature for tool-specific rules
// a caller may add later without changing callers.
func ClassifyRetry(toolCall agentcore.ToolCall, result *agentcore.ToolResult) Classification {
	if result == nil {
		return Classification{Category: agentcore.RetryUnknown, Reason: "no result to classify"}
	}
	if result.Success {
		return Classification{Category: agentcore.RetryUnknown, Reason: "result was successful"}
	}

	combined := result.Output + "\n" + result.Error
	if result.Artifacts != nil && result.Artifacts.LifecycleEvent == agentcore.LifecycleTimeout {
		return Classification{Category: agentcore.RetryTransient, Reason: "command timed out"}
	}

	if reason, ok := matchAny(combined, transientPatterns); ok {
		return Classification{Category: agentcore.RetryTransient, Reason: reason}
	}
	if reason, ok := matchAny(combined, nonTransientPatterns); ok {
		return Classification{Category: agentcore.RetryNonTransient, Reason: reason}
	}
	return Classification{Category: agentcore.RetryUnknown, Reason: "no known pattern matched"}
}

func matchAny(text string, patterns []*regexp.Regexp) (string, bool) {
	for _, p := range patterns {
		if m := p.FindString(text); m != "" {
			return strings.TrimSpace(m), true
		}
	}
	return "", false
}
