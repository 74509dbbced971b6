package lsp

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigLoaderAcceptsArrayAndEnvelopeForms(t *testing.T) {
	dir := t.TempDir()

	arrayPath := filepath.Join(dir, "array.json")
	if err := os.WriteFile(arrayPath, []byte(`[{"id":"ts","command":["tsserver"],"extensions":[".ts"],"rootMarkers":["package.json"]}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := NewConfigLoader(arrayPath, nil)
	specs, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected error loading array form: %v", err)
	}
	if len(specs) != 1 || specs[0].ID != "ts" {
		t.Fatalf("unexpected specs: %+v", specs)
	}

	envelopePath := filepath.Join(dir, "envelope.json")
	if err := os.WriteFile(envelopePath, []byte(`{"servers":[{"id":"py","command":["pyright"],"extensions":[".py"],"rootMarkers":["setup.py"]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	loader2 := NewConfigLoader(envelopePath, nil)
	specs2, err := loader2.Load()
	if err != nil {
		t.Fatalf("unexpected error loading envelope form: %v", err)
	}
	if len(specs2) != 1 || specs2[0].ID != "py" {
		t.Fatalf("unexpected specs: %+v", specs2)
	}
}

func TestConfigLoaderRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`[{"id":"ts","command":["tsserver"],"extensions":[".ts"],"rootMarkers":[],"bogus":true}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := NewConfigLoader(path, nil)
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestConfigLoaderRejectsMissingIdAndCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`[{"id":"","command":[],"extensions":[".ts"]}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := NewConfigLoader(path, nil)
	_, err := loader.Load()
	if err == nil {
		t.Fatal("expected a validation error for missing id/command")
	}
	if !strings.Contains(err.Error(), "validation") {
		t.Fatalf("expected a validation error, got: %v", err)
	}
}

func TestConfigLoaderRejectsServerWithNoMatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte(`[{"id":"ts","command":["tsserver"]}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := NewConfigLoader(path, nil)
	if _, err := loader.Load(); err == nil {
		t.Fatal("expected a validation error for a server with neither extensions nor rootMarkers")
	}
}

func TestConfigLoaderMissingFileReturnsNil(t *testing.T) {
	loader := NewConfigLoader(filepath.Join(t.TempDir(), "missing.json"), nil)
	specs, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if specs != nil {
		t.Fatalf("expected nil specs for missing file, got %v", specs)
	}
}

func TestConfigLoaderCachesByMtime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "servers.json")
	if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}
	loader := NewConfigLoader(path, nil)
	first, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	second, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("expected cached result to match")
	}
}
