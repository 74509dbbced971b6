package cliapp

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/approval"
)

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Inspect and edit persisted command-approval rules",
}

var approvalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every persisted approval rule",
	Args:  cobra.NoArgs,
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

		rules := comps.ApprovalStore.List()
		if len(rules) == 0 {
			fmt.Println("No persisted approval rules.")
			return nil
		}
		for _, r := range rules {
			fmt.Printf("%s  %-9s %-9s %s\n", r.Signature[:12], r.Decision, r.Scope, r.Command)
		}
		return nil
	},
}

var approvalsAllowCmd = &cobra.Command{
	Use:   "allow <signature> <once|session|workspace>",
	Short: "Persist an allow rule for a command signature",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return putApprovalRule(args[0], args[1], "allow")
	},
}

var approvalsDenyCmd = &cobra.Command{
	Use:   "deny <signature> <session|workspace>",
	Short: "Persist a deny rule for a command signature",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return putApprovalRule(args[0], args[1], "deny")
	},
}

func putApprovalRule(signature, scopeArg, decision string) error {
	var scope agentcore.ApprovalScope
	switch scopeArg {
	case "once":
		scope = agentcore.ScopeOnce
	case "session":
		scope = agentcore.ScopeSession
	case "workspace":
		scope = agentcore.ScopeWorkspace
	default:
		return fmt.Errorf("unknown scope %q: want once, session, or workspace", scopeArg)
	}

	workspace, err := resolveWorkspace()
	if err != nil {
		return err
	}
	comps, err := buildComponents(workspace, "")
	if err != nil {
		return err
	}
	defer comps.Close()

	if err := comps.ApprovalStore.Put(approval.Rule{Signature: signature, Scope: scope, Decision: decision}); err != nil {
		return fmt.Errorf("persist rule: %w", err)
	}
	fmt.Printf("%s rule persisted for signature %s (%s)\n", decision, signature, scope)
	return nil
}

func init() {
	approvalsCmd.AddCommand(approvalsListCmd, approvalsAllowCmd, approvalsDenyCmd)
	rootCmd.AddCommand(approvalsCmd)
}
