package approval

import (
	"strings"

	"github.com/zace-run/zace/internal/agentcore"
)

// ReplyDecision is the interpreted form of a user's free-text reply to a
// pending approval prompt.
type ReplyDecision string

const (
	ReplyAllowOnce      ReplyDecision = "allow_once"
	ReplyAllowSession   ReplyDecision = "allow_session"
	ReplyAllowWorkspace ReplyDecision = "allow_workspace"
	ReplyDeny           ReplyDecision = "deny"
	ReplyUnclear        ReplyDecision = "unclear"
)

// InterpretReply classifies a user's free-text reply to a pending approval.
// This is the external collaborator's half of the approval flow: the core
// only reads the resolved decision that follows.
func InterpretReply(text string) ReplyDecision {
	normalized := strings.ToLower(strings.TrimSpace(text))
	switch {
	case normalized == strings.ToLower(ConfirmationToken), normalized == "allow", normalized == "allow once", normalized == "yes":
		return ReplyAllowOnce
	case normalized == "allow session":
		return ReplyAllowSession
	case normalized == "allow workspace":
		return ReplyAllowWorkspace
	case normalized == "deny", normalized == "no":
		return ReplyDeny
	default:
		return ReplyUnclear
	}
}

// ApplyReply turns a non-unclear, non-once reply into a persisted rule and
// writes it to store. Allow-once replies are handled by the caller via the
// per-run OnceAllowlist instead, since they must not persist.
func ApplyReply(store *Store, signature, command string, reply ReplyDecision) error {
	switch reply {
	case ReplyAllowSession:
		return store.Put(Rule{Signature: signature, Command: command, Scope: agentcore.ScopeSession, Decision: "allow"})
	case ReplyAllowWorkspace:
		return store.Put(Rule{Signature: signature, Command: command, Scope: agentcore.ScopeWorkspace, Decision: "allow"})
	case ReplyDeny:
		return store.Put(Rule{Signature: signature, Command: command, Scope: agentcore.ScopeWorkspace, Decision: "deny"})
	}
	return nil
}
