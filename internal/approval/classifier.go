package approval

import "context"

// SafetyClassifier asks an LLM whether a shell command is destructive.
// A non-empty reason means the command requires approval.
type SafetyClassifier interface {
	ClassifyCommand(ctx context.Context, command, cwd string) (reason string, err error)
}
