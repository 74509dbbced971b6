package approval

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/zace-run/zace/internal/agentcore"
)

type stubClassifier struct {
	reason string
}

func (s stubClassifier) ClassifyCommand(ctx context.Context, command, cwd string) (string, error) {
	return s.reason, nil
}

func newResolver(t *testing.T, reason string) *Resolver {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "approvals.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return &Resolver{Classifier: stubClassifier{reason: reason}, Once: NewOnceAllowlist(), Store: store}
}

func TestResolveAllowsNonDestructiveCommands(t *testing.T) {
	r := newResolver(t, "")
	decision, err := r.Resolve(context.Background(), "ls -la", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allow == nil {
		t.Fatalf("expected allow, got %+v", decision)
	}
}

func TestResolveRequestsUserForDestructiveCommand(t *testing.T) {
	r := newResolver(t, "deletes files recursively")
	decision, err := r.Resolve(context.Background(), "rm -rf build/", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if decision.RequestUser == nil {
		t.Fatalf("expected request_user, got %+v", decision)
	}
}

func TestResolveConsumesOnceAllowlist(t *testing.T) {
	r := newResolver(t, "deletes files recursively")
	sig := agentcore.BuildCommandApprovalSignature("/tmp", "rm -rf build/")
	r.Once.Add(sig)

	decision, err := r.Resolve(context.Background(), "rm -rf build/", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allow == nil {
		t.Fatalf("expected allow from consumed once-entry, got %+v", decision)
	}

	// Second call: entry consumed, falls through to request_user again.
	decision2, err := r.Resolve(context.Background(), "rm -rf build/", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if decision2.RequestUser == nil {
		t.Fatalf("expected request_user after consumption, got %+v", decision2)
	}
}

func TestResolveHonorsPersistedDenyRule(t *testing.T) {
	r := newResolver(t, "deletes files recursively")
	sig := agentcore.BuildCommandApprovalSignature("/tmp", "rm -rf build/")
	if err := r.Store.Put(Rule{Signature: sig, Command: "rm -rf build/", Scope: agentcore.ScopeWorkspace, Decision: "deny"}); err != nil {
		t.Fatal(err)
	}

	decision, err := r.Resolve(context.Background(), "rm -rf build/", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Deny == nil {
		t.Fatalf("expected deny from persisted rule, got %+v", decision)
	}
}

func TestResolveHonorsPersistedAllowRule(t *testing.T) {
	r := newResolver(t, "deletes files recursively")
	sig := agentcore.BuildCommandApprovalSignature("/tmp", "rm -rf build/")
	if err := r.Store.Put(Rule{Signature: sig, Command: "rm -rf build/", Scope: agentcore.ScopeSession, Decision: "allow"}); err != nil {
		t.Fatal(err)
	}

	decision, err := r.Resolve(context.Background(), "rm -rf build/", "/tmp")
	if err != nil {
		t.Fatal(err)
	}
	if decision.Allow == nil {
		t.Fatalf("expected allow from persisted rule, got %+v", decision)
	}
}
