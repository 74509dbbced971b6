package lsp

import "testing"

func TestFilterPendingChangedFiles(t *testing.T) {
	files := []string{
		"servers.json",
		".zace/runtime/tmp/scratch.ts",
		"src/index.ts",
		"docs/readme.md",
		"logo.png",
	}
	out := FilterPendingChangedFiles(files, "servers.json", ".zace/runtime/tmp/")
	if len(out) != 1 || out[0] != "src/index.ts" {
		t.Fatalf("expected only src/index.ts to remain, got %v", out)
	}
}

func TestBuildProvisionTemplateSkipsWhenExistingConfigured(t *testing.T) {
	_, skipped, err := BuildProvisionTemplate(map[string]bool{".ts": true}, []ServerSpec{{ID: "typescript"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !skipped {
		t.Fatal("expected skip when servers already configured")
	}
}

func TestBuildProvisionTemplateGeneratesTypeScriptAndPython(t *testing.T) {
	content, skipped, err := BuildProvisionTemplate(map[string]bool{".ts": true, ".py": true}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped {
		t.Fatal("expected not skipped")
	}
	specs, err := parseServersFile(content)
	if err != nil {
		t.Fatalf("generated template should parse back: %v", err)
	}
	if len(specs) != 2 {
		t.Fatalf("expected 2 server specs (ts + py), got %d", len(specs))
	}
}

func TestSupportedProvisionExtension(t *testing.T) {
	if !SupportedProvisionExtension(".ts") || !SupportedProvisionExtension(".py") {
		t.Fatal("expected .ts and .py to be supported")
	}
	if SupportedProvisionExtension(".rs") {
		t.Fatal("expected .rs to be unsupported")
	}
}
