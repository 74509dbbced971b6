package agentstate

import (
	"strings"

	"github.com/zace-run/zace/internal/agentcore"
)

// ApplyScriptMarkers scans stdout/stderr lines for ZACE_SCRIPT_REGISTER and
// ZACE_SCRIPT_USE markers and returns the catalog updated to reflect them.
// Unrecognized ZACE_* lines are ignored here; the shell executor preserves
// them verbatim in rendered output.
func ApplyScriptMarkers(catalog map[string]agentcore.ScriptCatalogEntry, lines []string, step int) map[string]agentcore.ScriptCatalogEntry {
	next := make(map[string]agentcore.ScriptCatalogEntry, len(catalog))
	for k, v := range catalog {
		next[k] = v
	}
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "ZACE_SCRIPT_REGISTER|"):
			parts := strings.SplitN(line, "|", 4)
			if len(parts) != 4 {
				continue
			}
			id, path, purpose := parts[1], parts[2], parts[3]
			entry := next[id]
			entry.ID = id
			entry.Path = path
			entry.Purpose = purpose
			entry.LastTouchedStep = step
			next[id] = entry
		case strings.HasPrefix(line, "ZACE_SCRIPT_USE|"):
			parts := strings.SplitN(line, "|", 2)
			if len(parts) != 2 {
				continue
			}
			id := parts[1]
			entry, ok := next[id]
			if !ok {
				continue
			}
			entry.TimesUsed++
			entry.LastTouchedStep = step
			next[id] = entry
		}
	}
	return next
}

// ScriptMarkerLines splits combined stdout+stderr into individual lines for
// ApplyScriptMarkers.
func ScriptMarkerLines(stdout, stderr string) []string {
	var lines []string
	lines = append(lines, strings.Split(stdout, "\n")...)
	lines = append(lines, strings.Split(stderr, "\n")...)
	return lines
}
