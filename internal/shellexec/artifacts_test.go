package shellexec

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestPersistWritesArtifactsAndTruncatesRendered(t *testing.T) {
	fs := afero.NewMemMapFs()
	stdout := strings.Repeat("x", 100)

	artifacts, err := Persist(fs, "/artifacts", "run-1", 2, stdout, "oops", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !artifacts.StdoutTruncated {
		t.Fatal("expected stdout to be marked truncated")
	}
	if len(artifacts.RenderedStdout) != 10 {
		t.Fatalf("expected rendered stdout capped at 10 chars, got %d", len(artifacts.RenderedStdout))
	}

	raw, err := afero.ReadFile(fs, artifacts.StdoutPath)
	if err != nil {
		t.Fatalf("expected full stdout persisted: %v", err)
	}
	if len(raw) != 100 {
		t.Fatalf("expected full untruncated stdout on disk, got %d bytes", len(raw))
	}
}

func TestPersistCombinedArtifactInterleavesStreams(t *testing.T) {
	fs := afero.NewMemMapFs()
	artifacts, err := Persist(fs, "/artifacts", "run-1", 1, "out", "err", 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	combined, _ := afero.ReadFile(fs, artifacts.CombinedPath)
	if !strings.Contains(string(combined), "out") || !strings.Contains(string(combined), "err") {
		t.Fatalf("expected combined artifact to contain both streams, got %q", combined)
	}
}
