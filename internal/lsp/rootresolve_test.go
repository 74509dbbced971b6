package lsp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveRootFindsMarkerAncestor(t *testing.T) {
	root := t.TempDir()
	project := filepath.Join(root, "project")
	src := filepath.Join(project, "src", "nested")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(project, "package.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := ResolveRoot(filepath.Join(src, "index.ts"), []string{"package.json"}, root)
	if got != project {
		t.Fatalf("expected %q, got %q", project, got)
	}
}

func TestResolveRootFallsBackToCwd(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	got := ResolveRoot(filepath.Join(src, "index.ts"), []string{"package.json"}, root)
	if got != root {
		t.Fatalf("expected fallback to cwd %q, got %q", root, got)
	}
}
