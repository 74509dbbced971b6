package lsp

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

var jsLikeExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
}

var nonDiagnosticExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".ico": true,
	".md": true, ".txt": true, ".lock": true, ".sum": true,
}

// FilterPendingChangedFiles narrows changedFiles to the set eligible to
// become pendingChangedFiles: excludes the servers-config path itself,
// anything under a runtime temp prefix, and files whose extension carries
// no diagnostic value (images, docs, lockfiles).
func FilterPendingChangedFiles(changedFiles []string, serversConfigPath, runtimeTempPrefix string) []string {
	var out []string
	for _, f := range changedFiles {
		if f == serversConfigPath {
			continue
		}
		if runtimeTempPrefix != "" && strings.HasPrefix(f, runtimeTempPrefix) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f))
		if nonDiagnosticExtensions[ext] {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SupportedProvisionExtension reports whether ext (as returned by
// filepath.Ext) is one of the extensions runtime auto-provisioning knows
// how to template a server for: JS/TS family, or Python.
func SupportedProvisionExtension(ext string) bool {
	return jsLikeExtensions[ext] || ext == ".py"
}

// BuildProvisionTemplate generates the servers.json content to write when
// auto-provisioning is triggered by pendingChangedFiles containing a
// supported extension. existing is the current parsed servers.json content
// (possibly nil), so a file with non-empty servers already configured can
// be left alone and a skip marker emitted instead.
func BuildProvisionTemplate(pendingExtensions map[string]bool, existing []ServerSpec) (content []byte, skipped bool, err error) {
	if len(existing) > 0 {
		return nil, true, nil
	}

	var specs []ServerSpec
	if pendingExtensions[".ts"] || pendingExtensions[".tsx"] || pendingExtensions[".js"] ||
		pendingExtensions[".jsx"] || pendingExtensions[".mjs"] || pendingExtensions[".cjs"] {
		specs = append(specs, ServerSpec{
			ID:          "typescript",
			Command:     []string{"typescript-language-server", "--stdio"},
			Extensions:  []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
			RootMarkers: []string{"package.json", "tsconfig.json"},
		})
	}
	if pendingExtensions[".py"] {
		specs = append(specs, ServerSpec{
			ID:          "python",
			Command:     []string{"pyright-langserver", "--stdio"},
			Extensions:  []string{".py"},
			RootMarkers: []string{"pyproject.toml", "setup.py", "requirements.txt"},
		})
	}

	body, err := json.MarshalIndent(serversFileEnvelope{Servers: specs}, "", "  ")
	if err != nil {
		return nil, false, err
	}
	return body, false, nil
}
