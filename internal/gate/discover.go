// Package gate implements the completion-gate pipeline: resolving
// which shell commands must pass before a run can finalize as completed,
// merging planner-declared gates with runtime-discovered ones, rejecting
// masking patterns, running gates through approval, executing them
// sequentially, and checking freshness against the last write. Discovery
// uses a build-system probe table keyed by marker file, covering a
// package.json/Makefile/Justfile probe set.
package gate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DiscoveredGate is one command found by probing the workspace for a known
// build/test entry point.
type DiscoveredGate struct {
	Command string
	Label   string
}

var lintScriptPattern = regexp.MustCompile(`(^|:)lint(?:$|:)`)
var testScriptPattern = regexp.MustCompile(`(^|:)test(?:$|:)`)

type packageJSON struct {
	Scripts        map[string]string `json:"scripts"`
	PackageManager string            `json:"packageManager"`
}

// Discover probes dir for package.json scripts, a Makefile target, and a
// Justfile target, in that order.
func Discover(dir string) []DiscoveredGate {
	var gates []DiscoveredGate
	gates = append(gates, discoverPackageJSON(dir)...)
	gates = append(gates, discoverMakefile(dir)...)
	gates = append(gates, discoverJustfile(dir)...)
	return gates
}

func discoverPackageJSON(dir string) []DiscoveredGate {
	path := filepath.Join(dir, "package.json")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var pkg packageJSON
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil
	}

	runner := inferRunner(dir, pkg.PackageManager)

	var gates []DiscoveredGate
	if lint, ok := pickScript(pkg.Scripts, "lint", lintScriptPattern, "fix", "format"); ok {
		gates = append(gates, DiscoveredGate{Command: runner + " run " + lint, Label: "lint"})
	}
	if test, ok := pickScript(pkg.Scripts, "test", testScriptPattern, "watch"); ok {
		gates = append(gates, DiscoveredGate{Command: runner + " run " + test, Label: "test"})
	}
	return gates
}

// pickScript prefers an exact match on exactName, else the first script
// name matching pattern that doesn't contain any of the excluded substrings.
func pickScript(scripts map[string]string, exactName string, pattern *regexp.Regexp, excluded ...string) (string, bool) {
	if _, ok := scripts[exactName]; ok {
		return exactName, true
	}
	names := make([]string, 0, len(scripts))
	for name := range scripts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !pattern.MatchString(name) {
			continue
		}
		skip := false
		for _, ex := range excluded {
			if strings.Contains(name, ex) {
				skip = true
				break
			}
		}
		if !skip {
			return name, true
		}
	}
	return "", false
}

func inferRunner(dir, packageManager string) string {
	if packageManager != "" {
		if idx := strings.IndexByte(packageManager, '@'); idx > 0 {
			return packageManager[:idx]
		}
		return packageManager
	}
	lockfiles := []struct {
		file   string
		runner string
	}{
		{"pnpm-lock.yaml", "pnpm"},
		{"yarn.lock", "yarn"},
		{"bun.lockb", "bun"},
		{"package-lock.json", "npm"},
	}
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(dir, lf.file)); err == nil {
			return lf.runner
		}
	}
	return "npm"
}

var makeTargetPattern = regexp.MustCompile(`(?m)^([a-zA-Z0-9_-]+):`)

func discoverMakefile(dir string) []DiscoveredGate {
	path := filepath.Join(dir, "Makefile")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	targets := map[string]bool{}
	for _, m := range makeTargetPattern.FindAllStringSubmatch(string(raw), -1) {
		targets[m[1]] = true
	}
	var gates []DiscoveredGate
	if targets["lint"] {
		gates = append(gates, DiscoveredGate{Command: "make lint", Label: "lint"})
	}
	if targets["test"] {
		gates = append(gates, DiscoveredGate{Command: "make test", Label: "test"})
	}
	return gates
}

func discoverJustfile(dir string) []DiscoveredGate {
	path := filepath.Join(dir, "Justfile")
	raw, err := os.ReadFile(path)
	if err != nil {
		path = filepath.Join(dir, "justfile")
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil
		}
	}
	targets := map[string]bool{}
	for _, m := range makeTargetPattern.FindAllStringSubmatch(string(raw), -1) {
		targets[m[1]] = true
	}
	var gates []DiscoveredGate
	if targets["lint"] {
		gates = append(gates, DiscoveredGate{Command: "just lint", Label: "lint"})
	}
	if targets["test"] {
		gates = append(gates, DiscoveredGate{Command: "just test", Label: "test"})
	}
	return gates
}
