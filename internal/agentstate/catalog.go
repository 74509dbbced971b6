package agentstate

import (
	"fmt"
	"sort"
	"strings"
)

// ScriptCatalogSummary renders the run's script catalog as a short,
// deterministically-ordered block a planner prompt can embed verbatim.
// Prompt assembly itself lives outside this package; this is only the
// rendering of data this package already owns.
func (c *Context) ScriptCatalogSummary() string {
	if len(c.ScriptCatalog) == 0 {
		return "No scripts registered yet."
	}

	ids := make([]string, 0, len(c.ScriptCatalog))
	for id := range c.ScriptCatalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	for _, id := range ids {
		entry := c.ScriptCatalog[id]
		fmt.Fprintf(&sb, "- %s (%s): %s [used %d time(s), last touched step %d]\n",
			entry.ID, entry.Path, entry.Purpose, entry.TimesUsed, entry.LastTouchedStep)
	}
	return strings.TrimRight(sb.String(), "\n")
}
