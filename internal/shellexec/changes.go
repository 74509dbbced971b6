package shellexec

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	"github.com/zace-run/zace/internal/agentcore"
)

// DetectedChange is one file reported as changed, tagged with every source
// that independently reported it.
type DetectedChange struct {
	Path    string
	Sources []agentcore.ChangeSource
}

// DetectChanges unions three independent signals of what a command wrote:
// ZACE_FILE_CHANGED|<path> marker lines in its output, a git status delta
// taken before/after the command ran, and paths inferred from shell
// redirect operators (>, >>) in the command string. No single source is
// trusted alone — a command can write files without emitting markers, a
// workspace might not be a git repo, and a redirect target might not
// actually get written if the command fails before reaching it.
func DetectChanges(command, stdout, stderr string, beforeGitStatus, afterGitStatus map[string]struct{}) []DetectedChange {
	bySource := map[string]map[agentcore.ChangeSource]struct{}{}
	add := func(path string, source agentcore.ChangeSource) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		if bySource[path] == nil {
			bySource[path] = map[agentcore.ChangeSource]struct{}{}
		}
		bySource[path][source] = struct{}{}
	}

	for _, path := range markerPaths(stdout, stderr) {
		add(path, agentcore.ChangeSourceMarker)
	}
	for path := range gitDelta(beforeGitStatus, afterGitStatus) {
		add(path, agentcore.ChangeSourceGitDelta)
	}
	for _, path := range redirectTargets(command) {
		add(path, agentcore.ChangeSourceInferredRedirect)
	}

	out := make([]DetectedChange, 0, len(bySource))
	for path, sources := range bySource {
		list := make([]agentcore.ChangeSource, 0, len(sources))
		for s := range sources {
			list = append(list, s)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		out = append(out, DetectedChange{Path: path, Sources: list})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

var markerLinePattern = regexp.MustCompile(`^ZACE_FILE_CHANGED\|(.+)$`)

func markerPaths(stdout, stderr string) []string {
	var paths []string
	for _, text := range []string{stdout, stderr} {
		scanner := bufio.NewScanner(strings.NewReader(text))
		for scanner.Scan() {
			if m := markerLinePattern.FindStringSubmatch(scanner.Text()); m != nil {
				paths = append(paths, m[1])
			}
		}
	}
	return paths
}

// GitStatusSnapshot runs `git status --porcelain` in dir and returns the set
// of paths it reports, or an empty set if dir is not a git repository.
func GitStatusSnapshot(ctx context.Context, dir string) map[string]struct{} {
	out := map[string]struct{}{}
	cmd := exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = dir
	raw, err := cmd.Output()
	if err != nil {
		return out
	}
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if arrow := strings.Index(path, " -> "); arrow >= 0 {
			path = path[arrow+4:]
		}
		out[path] = struct{}{}
	}
	return out
}

func gitDelta(before, after map[string]struct{}) map[string]struct{} {
	delta := map[string]struct{}{}
	for path := range after {
		delta[path] = struct{}{}
	}
	// Paths present before and still present after are not necessarily
	// unchanged (a command can rewrite a file that was already dirty), so
	// anything in the "after" status is reported; anything that dropped out
	// of status between before/after (e.g. a revert) is not reported as a
	// change by this source.
	return delta
}

var redirectPattern = regexp.MustCompile(`>>?\s*([^\s|&;<>]+)`)

func redirectTargets(command string) []string {
	matches := redirectPattern.FindAllStringSubmatch(command, -1)
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		target := m[1]
		if target == "/dev/null" || target == "&1" || target == "&2" {
			continue
		}
		paths = append(paths, target)
	}
	return paths
}
