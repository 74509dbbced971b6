package shellexec

import (
	"context"
	"testing"
	"time"
)

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	outcome, err := Run(context.Background(), Options{
		Command:          "echo hello; echo world 1>&2; exit 3",
		WorkingDirectory: t.TempDir(),
		Timeout:          5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Stdout != "hello\n" {
		t.Fatalf("unexpected stdout: %q", outcome.Stdout)
	}
	if outcome.Stderr != "world\n" {
		t.Fatalf("unexpected stderr: %q", outcome.Stderr)
	}
	if outcome.ExitCode == nil || *outcome.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %v", outcome.ExitCode)
	}
}

func TestRunTimeoutTearsDownProcessGroup(t *testing.T) {
	outcome, err := Run(context.Background(), Options{
		Command:          "sleep 5",
		WorkingDirectory: t.TempDir(),
		Timeout:          50 * time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.TimedOut {
		t.Fatal("expected outcome to report TimedOut")
	}
}

func TestRunAbortViaContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	outcome, err := Run(ctx, Options{
		Command:          "sleep 5",
		WorkingDirectory: t.TempDir(),
		Timeout:          5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !outcome.Aborted {
		t.Fatal("expected outcome to report Aborted")
	}
}
