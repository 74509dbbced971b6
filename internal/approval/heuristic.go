package approval

import (
	"context"
	"regexp"
)

// riskyPattern pairs a regex with the human-readable reason surfaced in the
// confirmation prompt when it matches.
type riskyPattern struct {
	re     *regexp.Regexp
	reason string
}

// riskyPatterns enumerates commands HeuristicClassifier treats as requiring
// confirmation, the same deny-list shape internal/shellexec.Policy uses for
// hard denies, but softer: these return a reason rather than a rejection.
var riskyPatterns = []riskyPattern{
	{regexp.MustCompile(`\brm\s+(-\w*r\w*f\w*|-\w*f\w*r\w*)\b`), "recursive force delete"},
	{regexp.MustCompile(`\bgit\s+push\b.*--force`), "force push rewrites remote history"},
	{regexp.MustCompile(`\bgit\s+reset\s+--hard\b`), "discards uncommitted changes"},
	{regexp.MustCompile(`\bgit\s+clean\s+-\w*[fd]`), "deletes untracked files"},
	{regexp.MustCompile(`\bdrop\s+(table|database)\b`), "irreversible schema change"},
	{regexp.MustCompile(`\bchmod\s+-R\s+777\b`), "world-writable permissions"},
	{regexp.MustCompile(`\bsudo\b`), "elevated privileges"},
	{regexp.MustCompile(`\bcurl\b.*\|\s*(sh|bash)\b`), "pipes a remote script into a shell"},
	{regexp.MustCompile(`\bmkfs\b|\bdd\s+if=`), "low-level disk operation"},
	{regexp.MustCompile(`:\(\)\s*\{.*\};:`), "fork bomb"},
}

// HeuristicClassifier flags a command as requiring approval when it matches
// one of riskyPatterns. It never calls out to an LLM; callers who want an
// LLM-backed classification implement SafetyClassifier over
// internal/llmtransport.Client instead and substitute it in.
type HeuristicClassifier struct{}

// ClassifyCommand implements SafetyClassifier.
func (HeuristicClassifier) ClassifyCommand(ctx context.Context, command, cwd string) (string, error) {
	for _, p := range riskyPatterns {
		if p.re.MatchString(command) {
			return p.reason, nil
		}
	}
	return "", nil
}
