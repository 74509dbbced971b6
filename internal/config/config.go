// Package config loads the run's options from .zace/config.yaml plus
// environment overrides, viper-based: defaults first, file second, env
// last.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ExecutorAnalysisMode controls when the executor-analysis LLM call runs.
type ExecutorAnalysisMode string

const (
	ExecutorAnalysisAlways    ExecutorAnalysisMode = "always"
	ExecutorAnalysisOnFailure ExecutorAnalysisMode = "on_failure"
	ExecutorAnalysisNever     ExecutorAnalysisMode = "never"
)

// CompletionValidationMode selects how strictly completion gates are enforced.
type CompletionValidationMode string

const (
	ValidationStrict   CompletionValidationMode = "strict"
	ValidationBalanced CompletionValidationMode = "balanced"
	ValidationLLMOnly  CompletionValidationMode = "llm_only"
)

// PlannerOutputMode selects the planner's transport strategy.
type PlannerOutputMode string

const (
	PlannerOutputAuto        PlannerOutputMode = "auto"
	PlannerOutputPromptOnly  PlannerOutputMode = "prompt_only"
	PlannerOutputSchemaStrict PlannerOutputMode = "schema_strict"
)

// DocContextMode selects how much project documentation context is fed to
// the planner. The discovery heuristics themselves are out of the CORE's
// scope; this only records the requested mode.
type DocContextMode string

const (
	DocContextOff      DocContextMode = "off"
	DocContextTargeted DocContextMode = "targeted"
	DocContextFull     DocContextMode = "full"
)

// Options is every recognized run configuration value.
type Options struct {
	MaxSteps int  `mapstructure:"max_steps"`
	Stream   bool `mapstructure:"stream"`
	Verbose  bool `mapstructure:"verbose"`

	ExecutorAnalysis ExecutorAnalysisMode `mapstructure:"executor_analysis"`

	DoomLoopThreshold       int `mapstructure:"doom_loop_threshold"`
	StagnationWindow        int `mapstructure:"stagnation_window"`
	ReadonlyStagnationWindow int `mapstructure:"readonly_stagnation_window"`

	TransientRetryMaxAttempts int `mapstructure:"transient_retry_max_attempts"`
	TransientRetryMaxDelayMs  int `mapstructure:"transient_retry_max_delay_ms"`

	CompletionValidationMode       CompletionValidationMode `mapstructure:"completion_validation_mode"`
	CompletionRequireDiscoveredGates bool                   `mapstructure:"completion_require_discovered_gates"`
	CompletionRequireLSP           bool                      `mapstructure:"completion_require_lsp"`
	CompletionBlockRepeatLimit     int                       `mapstructure:"completion_block_repeat_limit"`
	GateDisallowMasking            bool                      `mapstructure:"gate_disallow_masking"`

	CommandAllowPatterns []string `mapstructure:"command_allow_patterns"`
	CommandDenyPatterns  []string `mapstructure:"command_deny_patterns"`

	LSPEnabled               bool   `mapstructure:"lsp_enabled"`
	LSPAutoProvision         bool   `mapstructure:"lsp_auto_provision"`
	LSPBootstrapBlockOnFailed bool  `mapstructure:"lsp_bootstrap_block_on_failed"`
	LSPProvisionMaxAttempts  int    `mapstructure:"lsp_provision_max_attempts"`
	LSPWaitForDiagnosticsMs  int    `mapstructure:"lsp_wait_for_diagnostics_ms"`
	LSPServerConfigPath      string `mapstructure:"lsp_server_config_path"`
	LSPMaxDiagnosticsPerFile int    `mapstructure:"lsp_max_diagnostics_per_file"`
	LSPMaxFilesInOutput      int    `mapstructure:"lsp_max_files_in_output"`

	WriteRegressionErrorSpike int `mapstructure:"write_regression_error_spike"`

	CompactionTriggerRatio          float64 `mapstructure:"compaction_trigger_ratio"`
	CompactionPreserveRecentMessages int    `mapstructure:"compaction_preserve_recent_messages"`

	PlannerOutputMode          PlannerOutputMode `mapstructure:"planner_output_mode"`
	PlannerSchemaStrict        bool              `mapstructure:"planner_schema_strict"`
	PlannerParseMaxRepairs     int               `mapstructure:"planner_parse_max_repairs"`
	PlannerParseRetryOnFailure bool              `mapstructure:"planner_parse_retry_on_failure"`
	PlannerMaxInvalidArtifactChars int           `mapstructure:"planner_max_invalid_artifact_chars"`

	RequireRiskyConfirmation bool   `mapstructure:"require_risky_confirmation"`
	RiskyConfirmationToken   string `mapstructure:"risky_confirmation_token"`

	RuntimeScriptEnforced bool `mapstructure:"runtime_script_enforced"`

	DocContextMode     DocContextMode `mapstructure:"doc_context_mode"`
	DocContextMaxChars int            `mapstructure:"doc_context_max_chars"`
	DocContextMaxFiles int            `mapstructure:"doc_context_max_files"`

	OutputLimitChars int `mapstructure:"output_limit_chars"`
	ShellTimeoutMs   int `mapstructure:"shell_timeout_ms"`
}

// Load reads options from <workspaceDir>/.zace/config.yaml, falling back to
// defaults when the file is absent, then overlays ZACE_-prefixed
// environment variables (e.g. ZACE_MAX_STEPS).
func Load(workspaceDir string) (*Options, error) {
	configPath := filepath.Join(workspaceDir, ".zace", "config.yaml")

	v := viper.New()
	applyDefaultsToViper(v)
	v.SetEnvPrefix("ZACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var opts Options
	if err := v.Unmarshal(&opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &opts, nil
}

// Default returns the options a fresh workspace starts with.
func Default() *Options {
	return &Options{
		MaxSteps:                        50,
		ExecutorAnalysis:                 ExecutorAnalysisOnFailure,
		DoomLoopThreshold:                3,
		StagnationWindow:                 3,
		ReadonlyStagnationWindow:         4,
		TransientRetryMaxAttempts:        2,
		TransientRetryMaxDelayMs:         30_000,
		CompletionValidationMode:         ValidationBalanced,
		CompletionRequireDiscoveredGates: false,
		CompletionRequireLSP:             false,
		CompletionBlockRepeatLimit:       2,
		GateDisallowMasking:              true,
		LSPEnabled:                       true,
		LSPAutoProvision:                 true,
		LSPBootstrapBlockOnFailed:        false,
		LSPProvisionMaxAttempts:          2,
		LSPWaitForDiagnosticsMs:          5_000,
		LSPServerConfigPath:              ".zace/runtime/lsp/servers.json",
		LSPMaxDiagnosticsPerFile:         5,
		LSPMaxFilesInOutput:              10,
		WriteRegressionErrorSpike:        5,
		CompactionTriggerRatio:           0.85,
		CompactionPreserveRecentMessages: 10,
		PlannerOutputMode:                PlannerOutputAuto,
		PlannerSchemaStrict:              false,
		PlannerParseMaxRepairs:           2,
		PlannerParseRetryOnFailure:       true,
		PlannerMaxInvalidArtifactChars:   8_000,
		RequireRiskyConfirmation:         true,
		RiskyConfirmationToken:           "CONFIRM",
		RuntimeScriptEnforced:            false,
		DocContextMode:                   DocContextTargeted,
		DocContextMaxChars:               20_000,
		DocContextMaxFiles:               10,
		OutputLimitChars:                 120_000,
		ShellTimeoutMs:                   120_000,
	}
}

func applyDefaultsToViper(v *viper.Viper) {
	d := Default()
	v.SetDefault("max_steps", d.MaxSteps)
	v.SetDefault("executor_analysis", string(d.ExecutorAnalysis))
	v.SetDefault("doom_loop_threshold", d.DoomLoopThreshold)
	v.SetDefault("stagnation_window", d.StagnationWindow)
	v.SetDefault("readonly_stagnation_window", d.ReadonlyStagnationWindow)
	v.SetDefault("transient_retry_max_attempts", d.TransientRetryMaxAttempts)
	v.SetDefault("transient_retry_max_delay_ms", d.TransientRetryMaxDelayMs)
	v.SetDefault("completion_validation_mode", string(d.CompletionValidationMode))
	v.SetDefault("completion_require_discovered_gates", d.CompletionRequireDiscoveredGates)
	v.SetDefault("completion_require_lsp", d.CompletionRequireLSP)
	v.SetDefault("completion_block_repeat_limit", d.CompletionBlockRepeatLimit)
	v.SetDefault("gate_disallow_masking", d.GateDisallowMasking)
	v.SetDefault("lsp_enabled", d.LSPEnabled)
	v.SetDefault("lsp_auto_provision", d.LSPAutoProvision)
	v.SetDefault("lsp_bootstrap_block_on_failed", d.LSPBootstrapBlockOnFailed)
	v.SetDefault("lsp_provision_max_attempts", d.LSPProvisionMaxAttempts)
	v.SetDefault("lsp_wait_for_diagnostics_ms", d.LSPWaitForDiagnosticsMs)
	v.SetDefault("lsp_server_config_path", d.LSPServerConfigPath)
	v.SetDefault("lsp_max_diagnostics_per_file", d.LSPMaxDiagnosticsPerFile)
	v.SetDefault("lsp_max_files_in_output", d.LSPMaxFilesInOutput)
	v.SetDefault("write_regression_error_spike", d.WriteRegressionErrorSpike)
	v.SetDefault("compaction_trigger_ratio", d.CompactionTriggerRatio)
	v.SetDefault("compaction_preserve_recent_messages", d.CompactionPreserveRecentMessages)
	v.SetDefault("planner_output_mode", string(d.PlannerOutputMode))
	v.SetDefault("planner_schema_strict", d.PlannerSchemaStrict)
	v.SetDefault("planner_parse_max_repairs", d.PlannerParseMaxRepairs)
	v.SetDefault("planner_parse_retry_on_failure", d.PlannerParseRetryOnFailure)
	v.SetDefault("planner_max_invalid_artifact_chars", d.PlannerMaxInvalidArtifactChars)
	v.SetDefault("require_risky_confirmation", d.RequireRiskyConfirmation)
	v.SetDefault("risky_confirmation_token", d.RiskyConfirmationToken)
	v.SetDefault("runtime_script_enforced", d.RuntimeScriptEnforced)
	v.SetDefault("doc_context_mode", string(d.DocContextMode))
	v.SetDefault("doc_context_max_chars", d.DocContextMaxChars)
	v.SetDefault("doc_context_max_files", d.DocContextMaxFiles)
	v.SetDefault("output_limit_chars", d.OutputLimitChars)
	v.SetDefault("shell_timeout_ms", d.ShellTimeoutMs)
}
