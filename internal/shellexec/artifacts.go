package shellexec

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// PersistedArtifacts is where a command's stdout/stderr/combined output
// were written, and whether each stream was truncated to fit the configured
// limit before being rendered into the tool result's Output field.
type PersistedArtifacts struct {
	StdoutPath      string
	StderrPath      string
	CombinedPath    string
	StdoutTruncated bool
	StderrTruncated bool
	RenderedStdout  string
	RenderedStderr  string
}

// Persist writes the full stdout/stderr/combined streams to
// <artifactsDir>/<runID>/step-<n>/{stdout,stderr,combined}.log on fs, and
// returns a truncated-for-display copy of stdout/stderr bounded by
// outputLimitChars. The full, untruncated streams are always kept on disk
// so a later inspection is never limited by what the model was shown.
func Persist(fs afero.Fs, artifactsDir, runID string, step int, stdout, stderr string, outputLimitChars int) (*PersistedArtifacts, error) {
	dir := filepath.Join(artifactsDir, runID, fmt.Sprintf("step-%d", step))
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts dir: %w", err)
	}

	stdoutPath := filepath.Join(dir, "stdout.log")
	stderrPath := filepath.Join(dir, "stderr.log")
	combinedPath := filepath.Join(dir, "combined.log")

	if err := afero.WriteFile(fs, stdoutPath, []byte(stdout), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write stdout artifact: %w", err)
	}
	if err := afero.WriteFile(fs, stderrPath, []byte(stderr), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write stderr artifact: %w", err)
	}
	if err := afero.WriteFile(fs, combinedPath, []byte(interleave(stdout, stderr)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write combined artifact: %w", err)
	}

	renderedOut, truncOut := truncate(stdout, outputLimitChars)
	renderedErr, truncErr := truncate(stderr, outputLimitChars)

	return &PersistedArtifacts{
		StdoutPath:      stdoutPath,
		StderrPath:      stderrPath,
		CombinedPath:    combinedPath,
		StdoutTruncated: truncOut,
		StderrTruncated: truncErr,
		RenderedStdout:  renderedOut,
		RenderedStderr:  renderedErr,
	}, nil
}

func truncate(s string, limit int) (string, bool) {
	if limit <= 0 || len(s) <= limit {
		return s, false
	}
	return s[:limit], true
}

// interleave concatenates stdout then stderr for the combined artifact;
// true chronological interleaving would require capturing both streams
// through a single pipe, which Run deliberately avoids so exit-code and
// signal handling stay simple.
func interleave(stdout, stderr string) string {
	if stderr == "" {
		return stdout
	}
	if stdout == "" {
		return stderr
	}
	return stdout + "\n--- stderr ---\n" + stderr
}
