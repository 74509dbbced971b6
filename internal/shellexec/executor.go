package shellexec

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/zace-run/zace/internal/agentcore"
)

// Executor is the entry point the run loop calls to execute one tool
// call's shell command and get back a fully-populated ToolResult, including
// persisted artifacts and detected changes.
type Executor struct {
	Fs               afero.Fs
	ArtifactsDir     string
	OutputLimitChars int
	Logger           *zap.Logger
}

// ExecuteInput is everything Execute needs about the step being run.
type ExecuteInput struct {
	RunID            string
	Step             int
	Command          string
	WorkingDirectory string
	Timeout          time.Duration
}

// Execute runs command, persists its artifacts, and detects which files it
// changed. The before git snapshot is taken ahead of the command; the after
// snapshot is taken concurrently with the command's artifact writes via
// sourcegraph/conc, since neither depends on the other and both are pure IO.
func (e *Executor) Execute(ctx context.Context, in ExecuteInput) (*agentcore.ToolResult, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	before := GitStatusSnapshot(ctx, in.WorkingDirectory)

	start := time.Now()
	outcome, err := Run(ctx, Options{
		Command:          in.Command,
		WorkingDirectory: in.WorkingDirectory,
		Timeout:          in.Timeout,
		OutputLimitChars: e.OutputLimitChars,
	}, logger)
	if err != nil {
		return nil, err
	}

	var after map[string]struct{}
	var artifacts *PersistedArtifacts
	p := pool.New().WithErrors()
	p.Go(func() error {
		after = GitStatusSnapshot(ctx, in.WorkingDirectory)
		return nil
	})
	p.Go(func() error {
		a, persistErr := Persist(e.Fs, e.ArtifactsDir, in.RunID, in.Step, outcome.Stdout, outcome.Stderr, e.OutputLimitChars)
		if persistErr != nil {
			return persistErr
		}
		artifacts = a
		return nil
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	changes := DetectChanges(in.Command, outcome.Stdout, outcome.Stderr, before, after)
	changedFiles := make([]string, 0, len(changes))
	var changeSources []agentcore.ChangeSource
	seenSource := map[agentcore.ChangeSource]bool{}
	for _, c := range changes {
		changedFiles = append(changedFiles, c.Path)
		for _, s := range c.Sources {
			if !seenSource[s] {
				seenSource[s] = true
				changeSources = append(changeSources, s)
			}
		}
	}

	signature := agentcore.BuildToolCallSignature("shell", map[string]any{"command": in.Command}, in.WorkingDirectory)

	success := outcome.ExitCode != nil && *outcome.ExitCode == 0 && !outcome.TimedOut && !outcome.Aborted

	progress := agentcore.ProgressNone
	switch {
	case len(changedFiles) > 0:
		progress = agentcore.ProgressFilesChanged
	case success:
		progress = agentcore.ProgressSuccessWithoutChanges
	}

	renderedOutput := artifacts.RenderedStdout
	if artifacts.RenderedStderr != "" {
		renderedOutput += "\n--- stderr ---\n" + artifacts.RenderedStderr
	}

	result := &agentcore.ToolResult{
		Success: success,
		Output:  renderedOutput,
		Artifacts: &agentcore.ToolResultArtifacts{
			ChangedFiles:       changedFiles,
			ChangedFilesSource: changeSources,
			CommandSignature:   signature,
			DurationMs:         time.Since(start).Milliseconds(),
			ExitCode:           outcome.ExitCode,
			Signal:             outcome.Signal,
			LifecycleEvent:     outcome.LifecycleEvent,
			TimedOut:           outcome.TimedOut,
			Aborted:            outcome.Aborted,
			StdoutPath:         artifacts.StdoutPath,
			StderrPath:         artifacts.StderrPath,
			CombinedPath:       artifacts.CombinedPath,
			StdoutTruncated:    artifacts.StdoutTruncated,
			StderrTruncated:    artifacts.StderrTruncated,
			OutputLimitChars:   e.OutputLimitChars,
			ProgressSignal:     progress,
		},
	}
	if !success && outcome.Signal == "" && outcome.ExitCode != nil {
		result.Error = "command exited non-zero"
	}
	return result, nil
}
