package approval

import "testing"

func TestInterpretReply(t *testing.T) {
	cases := map[string]ReplyDecision{
		"CONFIRM":         ReplyAllowOnce,
		"allow":           ReplyAllowOnce,
		"allow session":   ReplyAllowSession,
		"allow workspace": ReplyAllowWorkspace,
		"deny":            ReplyDeny,
		"no":              ReplyDeny,
		"maybe later":     ReplyUnclear,
	}
	for input, want := range cases {
		if got := InterpretReply(input); got != want {
			t.Errorf("InterpretReply(%q) = %q, want %q", input, got, want)
		}
	}
}
