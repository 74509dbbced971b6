package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/config"
	"github.com/zace-run/zace/internal/gate"
)

var gateCommands []string

var gatesCmd = &cobra.Command{
	Use:   "gates",
	Short: "Run completion gates outside of a full agent run",
}

// gatesRunCmd invokes the same completion-gate pipeline a run would,
// against the current workspace, for debugging a gate command or the
// auto-discovered gates without driving the planner.
var gatesRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run completion gates against the current workspace",
	Long: `Run executes the completion-gate pipeline directly: explicit --command
flags if given, otherwise auto-discovered gates for the workspace.

zace gates run --command "go test ./..." --command "go vet ./..."`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		workspace, err := resolveWorkspace()
		if err != nil {
			return err
		}
		comps, err := buildComponents(workspace, "")
		if err != nil {
			return err
		}
		defer comps.Close()

		in := gateRunInput(workspace, comps.Options, gateCommands)
		outcome := comps.GatePipeline.Run(cmd.Context(), in)

		for _, g := range outcome.Plan.Gates {
			fmt.Printf("--- %s ---\n", labelOrCommand(g))
		}

		switch {
		case outcome.Completed:
			fmt.Println("All gates passed.")
			return nil
		case outcome.WaitingForUser:
			return fmt.Errorf("gates require approval: %s", outcome.Message)
		default:
			return fmt.Errorf("gates blocked: %s", outcome.Message)
		}
	},
}

// gateRunInput builds a one-off gate.Input for a standalone invocation:
// there is no prior run to track a last-write step against, so freshness
// is satisfied unconditionally (LastWriteStep below any real step number).
func gateRunInput(workspace string, opts *config.Options, commands []string) gate.Input {
	var plan *agentcore.CompletionPlan
	if len(commands) > 0 {
		gates := make([]agentcore.Gate, len(commands))
		for i, c := range commands {
			gates[i] = agentcore.Gate{Command: c, Label: c}
		}
		plan = &agentcore.CompletionPlan{Gates: gates, Source: agentcore.GateSourceTaskExplicit}
	}
	return gate.Input{
		Plan:                          plan,
		HasWrittenSinceLastValidation: true,
		StrictMode:                    opts.CompletionValidationMode == config.ValidationStrict,
		WorkingDirectory:              workspace,
		LastSuccessfulValidationStep:  0,
		LastWriteStep:                 -1,
	}
}

func labelOrCommand(g agentcore.Gate) string {
	if g.Label != "" {
		return g.Label
	}
	return g.Command
}

func init() {
	gatesRunCmd.Flags().StringArrayVar(&gateCommands, "command", nil, "explicit gate command (repeatable); auto-discovered when omitted")
	gatesCmd.AddCommand(gatesRunCmd)
	rootCmd.AddCommand(gatesCmd)
}
