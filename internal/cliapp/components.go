package cliapp

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/zace-run/zace/internal/approval"
	"github.com/zace-run/zace/internal/config"
	"github.com/zace-run/zace/internal/gate"
	"github.com/zace-run/zace/internal/llmtransport"
	"github.com/zace-run/zace/internal/llmtransport/anthropic"
	"github.com/zace-run/zace/internal/loop"
	"github.com/zace-run/zace/internal/lsp"
	"github.com/zace-run/zace/internal/sessionlog"
	"github.com/zace-run/zace/internal/shellexec"
	"github.com/zace-run/zace/internal/zlog"
)

// runtimeDir is the workspace-relative directory zace persists its own
// state under: approvals database, session logs, invalid-planner-output
// artifacts, LSP server config.
const runtimeDir = ".zace/runtime"

// components bundles every long-lived dependency a run or a gate-only
// invocation needs, built once per command invocation from the workspace's
// config and a resolved API key.
type components struct {
	Options        *config.Options
	Logger         *zap.Logger
	Executor       *shellexec.Executor
	Policy         *shellexec.Policy
	ApprovalStore  *approval.Store
	Resolver       *approval.Resolver
	LSPRegistry    *lsp.Registry
	LSPServers     []lsp.ServerSpec
	GatePipeline   *gate.Pipeline
	SessionLogs    *sessionlog.Registry
	LLMClient      llmtransport.Client
}

func newLogger() *zap.Logger {
	if verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			return l
		}
	}
	return zlog.NewNop()
}

// buildComponents loads config and wires every runtime dependency for
// workspace. apiKey may be empty when the caller (e.g. `zace gates run`)
// never needs to talk to an LLM.
func buildComponents(workspace, apiKey string) (*components, error) {
	opts, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := newLogger()
	zlog.Set(logger)

	policy, err := shellexec.NewPolicy(opts.CommandAllowPatterns, opts.CommandDenyPatterns)
	if err != nil {
		return nil, fmt.Errorf("compile command policy: %w", err)
	}

	store, err := approval.Open(filepath.Join(workspace, runtimeDir, "approvals.db"))
	if err != nil {
		return nil, fmt.Errorf("open approval store: %w", err)
	}

	resolver := &approval.Resolver{
		Classifier: approval.HeuristicClassifier{},
		Once:       approval.NewOnceAllowlist(),
		Store:      store,
	}

	executor := &shellexec.Executor{
		Fs:               afero.NewOsFs(),
		ArtifactsDir:     filepath.Join(workspace, runtimeDir, "artifacts"),
		OutputLimitChars: opts.OutputLimitChars,
		Logger:           logger,
	}

	lspRegistry := lsp.NewRegistry(logger)
	var lspServers []lsp.ServerSpec
	if opts.LSPEnabled {
		loader := lsp.NewConfigLoader(filepath.Join(workspace, opts.LSPServerConfigPath), logger)
		lspServers, err = loader.Load()
		if err != nil {
			return nil, fmt.Errorf("load LSP server config: %w", err)
		}
	}

	gatePipeline := &gate.Pipeline{
		Executor: executor,
		Approver: loop.NewGateApprover(resolver),
		Options:  opts,
		Logger:   logger,
	}

	var client llmtransport.Client
	if apiKey != "" {
		client = anthropic.New(apiKey, "", logger)
	}

	return &components{
		Options:       opts,
		Logger:        logger,
		Executor:      executor,
		Policy:        policy,
		ApprovalStore: store,
		Resolver:      resolver,
		LSPRegistry:   lspRegistry,
		LSPServers:    lspServers,
		GatePipeline:  gatePipeline,
		SessionLogs:   sessionlog.NewRegistry(filepath.Join(workspace, runtimeDir, "sessions")),
		LLMClient:     client,
	}, nil
}

func (c *components) Close() {
	if c.ApprovalStore != nil {
		_ = c.ApprovalStore.Close()
	}
	if c.LSPRegistry != nil {
		c.LSPRegistry.Shutdown()
	}
}
