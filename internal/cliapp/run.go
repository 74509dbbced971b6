package cliapp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/zace-run/zace/internal/agentstate"
	"github.com/zace-run/zace/internal/executoranalysis"
	"github.com/zace-run/zace/internal/loop"
	"github.com/zace-run/zace/internal/memory"
	"github.com/zace-run/zace/internal/planner"
	"github.com/zace-run/zace/internal/progress"
)

var runMaxSteps int

var runCmd = &cobra.Command{
	Use:   "run [task description]",
	Short: "Run the agent against a task until it completes, blocks, or needs you",
	Long: `Run drives the planner/execute/verify loop against a task description
until the run reaches a terminal state: completed, blocked, waiting for
user input, or error.

zace run "fix the flaky retry test in internal/retry"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task := strings.Join(args, " ")

		workspace, err := resolveWorkspace()
		if err != nil {
			return err
		}

		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is not set")
		}

		comps, err := buildComponents(workspace, apiKey)
		if err != nil {
			return err
		}
		defer comps.Close()

		model := modelFlag
		if model == "" {
			model = "claude-sonnet-4-5"
		}

		maxSteps := runMaxSteps
		if maxSteps <= 0 {
			maxSteps = comps.Options.MaxSteps
		}

		runID := uuid.NewString()
		sessionLog := comps.SessionLogs.Open(runID)

		p := &planner.Planner{
			Client:     comps.LLMClient,
			Fs:         afero.NewOsFs(),
			RuntimeDir: filepath.Join(workspace, runtimeDir),
			Model:      model,
			Options:    comps.Options,
		}

		l := &loop.Loop{
			Planner:      p,
			GatePipeline: comps.GatePipeline,
			Approver:     comps.Resolver,
			Executor:     comps.Executor,
			Policy:       comps.Policy,
			LSPRegistry:  comps.LSPRegistry,
			LSPServers:   comps.LSPServers,
			Memory:       memory.New(systemPrompt(), nil),
			SessionLog:   sessionLog,
			ExecutorAnalysis: &executoranalysis.Analyzer{
				Client: comps.LLMClient,
				Model:  model,
			},
			Options:          comps.Options,
			Logger:           comps.Logger,
			RunID:            runID,
			WorkingDirectory: workspace,
		}

		reporter := progress.New(os.Stdout, noColor)
		reporter.RunStart(runID, task, maxSteps)

		runCtx := agentstate.CreateInitialContext(task, maxSteps)
		final, err := l.Run(cmd.Context(), runCtx)
		comps.SessionLogs.Close(runID, string(final.State))
		if err != nil {
			reporter.Error(err.Error())
			return err
		}

		reporter.RunEnd(final.State, len(final.Steps))
		if last := final.LastStep(); last != nil && last.Reasoning != "" {
			reporter.Info(last.Reasoning)
		}
		return nil
	},
}

func systemPrompt() string {
	return "You are zace, an autonomous coding agent. Use the execute_command tool to " +
		"inspect and modify the workspace, and report your plan's action and reasoning " +
		"on every turn."
}

func init() {
	runCmd.Flags().IntVar(&runMaxSteps, "max-steps", 0, "override the configured maximum steps for this run")
	rootCmd.AddCommand(runCmd)
}
