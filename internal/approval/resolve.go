package approval

import (
	"context"
	"fmt"

	"github.com/zace-run/zace/internal/agentcore"
)

// ConfirmationToken is the literal string a user must echo back to confirm
// a pending destructive-command approval.
const ConfirmationToken = "CONFIRM"

// Resolver implements resolveCommandApproval.
type Resolver struct {
	Classifier SafetyClassifier
	Once       *OnceAllowlist
	Store      *Store
}

// Resolve runs the 5-step approval algorithm for command run from cwd.
func (r *Resolver) Resolve(ctx context.Context, command, cwd string) (*agentcore.ApprovalDecision, error) {
	// 1. Safety classifier.
	reason, err := r.Classifier.ClassifyCommand(ctx, command, cwd)
	if err != nil {
		return nil, fmt.Errorf("safety classification failed: %w", err)
	}
	if reason == "" {
		return &agentcore.ApprovalDecision{Allow: &agentcore.AllowDecision{Scope: agentcore.ScopeOnce}}, nil
	}

	// 2. Stable signature.
	signature := agentcore.BuildCommandApprovalSignature(cwd, command)

	// 3. One-shot allowlist.
	if r.Once.ConsumeIfPresent(signature) {
		return &agentcore.ApprovalDecision{Allow: &agentcore.AllowDecision{Scope: agentcore.ScopeOnce, RequiredApproval: true}}, nil
	}

	// 4. Persisted rule lookup.
	if rule, ok := r.Store.Lookup(signature); ok {
		switch rule.Decision {
		case "allow":
			return &agentcore.ApprovalDecision{Allow: &agentcore.AllowDecision{Scope: rule.Scope, RequiredApproval: true}}, nil
		case "deny":
			return &agentcore.ApprovalDecision{Deny: &agentcore.DenyDecision{Scope: rule.Scope, Message: fmt.Sprintf("command denied by persisted %s rule", rule.Scope)}}, nil
		}
	}

	// 5. Request user confirmation.
	return &agentcore.ApprovalDecision{RequestUser: &agentcore.RequestUserDecision{
		CommandSignature: signature,
		Reason:           reason,
		Message:          buildConfirmationPrompt(command, reason),
	}}, nil
}

func buildConfirmationPrompt(command, reason string) string {
	return fmt.Sprintf(
		"This command may be destructive:\n\n  %s\n\nReason: %s\n\nReply with %q to confirm, or \"allow session\" / \"allow workspace\" / \"deny\".",
		command, reason, ConfirmationToken,
	)
}
