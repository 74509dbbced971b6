package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/zace-run/zace/internal/agentcore"
	"github.com/zace-run/zace/internal/config"
	"github.com/zace-run/zace/internal/llmtransport"
)

const invalidArtifactPreviewChars = 2000

// Planner is the planner's public entry point: plan(context, messageLog,
// options) -> PlanResult.
type Planner struct {
	Client  llmtransport.Client
	Fs      afero.Fs
	RuntimeDir string // directory invalid-output artifacts are persisted under
	Model   string
	Options *config.Options
}

// invalidAttempt records one failed parse attempt for the exhaustion
// artifact persisted once every parsing strategy is exhausted.
type invalidAttempt struct {
	Attempt             int    `json:"attempt"`
	ResponsePreview     string `json:"response_preview"`
	ParseReason         string `json:"parse_reason"`
	TransportStructured bool   `json:"transport_structured"`
}

// Plan runs the full parsing pipeline: schema transport, prompt-mode
// fallback, bounded repair loop, one-shot retry, legacy extraction, then
// exhaustion.
func (p *Planner) Plan(ctx context.Context, runID string, systemPrompt string, messages []llmtransport.Message) (*agentcore.PlanResult, error) {
	mode := p.Options.PlannerOutputMode
	var attempts []invalidAttempt
	attemptCount := 0
	rawInvalidCount := 0
	var lastValidation *agentcore.ValidationErrors

	record := func(raw string, reason string, structured bool) {
		attemptCount++
		if reason != "" {
			rawInvalidCount++
			attempts = append(attempts, invalidAttempt{
				Attempt:             attemptCount,
				ResponsePreview:     previewText(raw, p.Options.PlannerMaxInvalidArtifactChars),
				ParseReason:         reason,
				TransportStructured: structured,
			})
		}
	}

	finish := func(result *agentcore.PlanResult, parseMode agentcore.ParseMode, usage *agentcore.Usage, transportStructured bool) *agentcore.PlanResult {
		result.ParseMode = parseMode
		result.ParseAttempts = attemptCount
		result.RawInvalidCount = rawInvalidCount
		result.TransportStructured = transportStructured
		result.Usage = usage
		return result
	}

	// 1. Schema transport, unless mode is prompt_only.
	if mode != config.PlannerOutputPromptOnly {
		resp, err := p.Client.Complete(ctx, llmtransport.Request{
			Model:        p.Model,
			SystemPrompt: systemPrompt,
			Messages:     messages,
			SchemaName:   "planner_decision",
			Schema:       PlannerSchema,
		})
		if err != nil {
			return nil, fmt.Errorf("schema-transport call failed: %w", err)
		}

		switch resp.Rejection {
		case llmtransport.RejectionInvalidMessageShape:
			// Retry once with tool-role coercion: coerceToolRole rewrites
			// every assistant message to the tool role before resending.
			resp2, err := p.Client.Complete(ctx, llmtransport.Request{
				Model:        p.Model,
				SystemPrompt: systemPrompt,
				Messages:     coerceToolRole(messages),
				SchemaName:   "planner_decision",
				Schema:       PlannerSchema,
			})
			if err == nil && resp2.Rejection == llmtransport.RejectionNone {
				resp = resp2
			}
		case llmtransport.RejectionResponseFormatUnsupported:
			if mode == config.PlannerOutputSchemaStrict {
				return finish(&agentcore.PlanResult{
					Action:    agentcore.ActionBlocked,
					Reasoning: "schema_strict mode requires schema transport, which this provider rejected: " + resp.RejectionDetail,
				}, agentcore.ParseModeFailed, usageOf(resp), true), nil
			}
			// Fall through to prompt mode below.
			goto promptMode
		}

		if resp.Rejection == llmtransport.RejectionNone {
			raw, err := decodeStrict([]byte(resp.Text))
			if err == nil {
				if result, convErr := validateAndConvert(raw); convErr == nil {
					record(resp.Text, "", true)
					return finish(result, agentcore.ParseModeSchemaTransport, usageOf(resp), true), nil
				} else {
					record(resp.Text, convErr.Error(), true)
					lastValidation = convErr
				}
			} else {
				record(resp.Text, err.Error(), true)
			}
		}
	}

promptMode:
	// 2. Prompt-mode fallback: invoke without schema, parse the first JSON object.
	resp, err := p.Client.Complete(ctx, llmtransport.Request{
		Model:        p.Model,
		SystemPrompt: systemPrompt + "\n\nRespond with a single JSON object matching the required schema.",
		Messages:     messages,
	})
	if err != nil {
		return nil, fmt.Errorf("prompt-mode call failed: %w", err)
	}
	if candidate, ok := ExtractFirstJSONObject(resp.Text); ok {
		raw, decErr := decodeStrict([]byte(candidate))
		if decErr == nil {
			if result, convErr := validateAndConvert(raw); convErr == nil {
				record(resp.Text, "", false)
				return finish(result, agentcore.ParseModeRepairJSON, usageOf(resp), false), nil
			} else {
				record(resp.Text, convErr.Error(), false)
				lastValidation = convErr
			}
		} else {
			record(resp.Text, decErr.Error(), false)
			lastValidation = nil
		}
	} else {
		record(resp.Text, "no JSON object found in prompt-mode response", false)
		lastValidation = nil
	}

	// 3. Bounded repair loop.
	lastInvalid := resp.Text
	for i := 0; i < p.Options.PlannerParseMaxRepairs; i++ {
		repairPrompt := buildRepairPrompt(lastInvalid, lastValidation)
		repairResp, err := p.Client.Complete(ctx, llmtransport.Request{
			Model:        p.Model,
			SystemPrompt: systemPrompt,
			Messages:     append(messages, llmtransport.Message{Role: "user", Content: repairPrompt}),
		})
		if err != nil {
			return nil, fmt.Errorf("repair call failed: %w", err)
		}
		lastInvalid = repairResp.Text
		if candidate, ok := ExtractFirstJSONObject(repairResp.Text); ok {
			raw, decErr := decodeStrict([]byte(candidate))
			if decErr == nil {
				if result, convErr := validateAndConvert(raw); convErr == nil {
					record(repairResp.Text, "", false)
					return finish(result, agentcore.ParseModeRepairJSON, usageOf(repairResp), false), nil
				} else {
					record(repairResp.Text, convErr.Error(), false)
					lastValidation = convErr
					continue
				}
			}
			record(repairResp.Text, decErr.Error(), false)
			lastValidation = nil
			continue
		}
		record(repairResp.Text, "no JSON object found in repair response", false)
		lastValidation = nil
	}

	// 4. One-shot retry prompt.
	if p.Options.PlannerParseRetryOnFailure {
		retryResp, err := p.Client.Complete(ctx, llmtransport.Request{
			Model:        p.Model,
			SystemPrompt: systemPrompt,
			Messages:     append(messages, llmtransport.Message{Role: "user", Content: buildRetryPrompt()}),
		})
		if err == nil {
			lastInvalid = retryResp.Text
			if candidate, ok := ExtractFirstJSONObject(retryResp.Text); ok {
				raw, decErr := decodeStrict([]byte(candidate))
				if decErr == nil {
					if result, convErr := validateAndConvert(raw); convErr == nil {
						record(retryResp.Text, "", false)
						return finish(result, agentcore.ParseModeRepairJSON, usageOf(retryResp), false), nil
					} else {
						record(retryResp.Text, convErr.Error(), false)
					}
				} else {
					record(retryResp.Text, decErr.Error(), false)
				}
			} else {
				record(retryResp.Text, "no JSON object found in retry response", false)
			}
		}
	}

	// 5. Legacy parse: best-effort extractor tolerant of markdown fences
	// (same ExtractFirstJSONObject, lenient decode without DisallowUnknownFields).
	if candidate, ok := ExtractFirstJSONObject(lastInvalid); ok {
		var loose rawPlanResult
		if err := json.Unmarshal([]byte(candidate), &loose); err == nil {
			if result, convErr := validateAndConvert(loose); convErr == nil {
				record(lastInvalid, "", false)
				return finish(result, agentcore.ParseModeLegacy, nil, false), nil
			}
		}
	}

	// 6. Exhaustion: persist invalid-output artifact, return blocked.
	artifactPath, persistErr := p.persistInvalidArtifact(runID, attempts)
	result := &agentcore.PlanResult{
		Action:                    agentcore.ActionBlocked,
		Reasoning:                 "planner output could not be parsed after exhausting all strategies",
		InvalidOutputArtifactPath: artifactPath,
	}
	if persistErr != nil {
		result.Reasoning += fmt.Sprintf(" (artifact persistence also failed: %v)", persistErr)
	}
	return finish(result, agentcore.ParseModeFailed, nil, false), nil
}

func (p *Planner) persistInvalidArtifact(runID string, attempts []invalidAttempt) (string, error) {
	dir := filepath.Join(p.RuntimeDir, "planner-invalid", runID)
	if err := p.Fs.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.json", time.Now().UnixNano()))
	data, err := json.MarshalIndent(attempts, "", "  ")
	if err != nil {
		return "", err
	}
	if err := afero.WriteFile(p.Fs, path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func coerceToolRole(messages []llmtransport.Message) []llmtransport.Message {
	out := make([]llmtransport.Message, len(messages))
	copy(out, messages)
	for i := range out {
		if out[i].Role == "assistant" {
			out[i].Role = "tool"
		}
	}
	return out
}

func buildRepairPrompt(priorInvalid string, validation *agentcore.ValidationErrors) string {
	prompt := "Your previous response was not valid JSON matching the required schema. " +
		"Here is a preview of what you sent:\n\n" + previewText(priorInvalid, invalidArtifactPreviewChars)
	if validation.HasErrors() {
		prompt += "\n\n" + validation.ToPrompt()
	}
	return prompt + "\n\nRespond again with a single JSON object matching the schema exactly, and nothing else."
}

func buildRetryPrompt() string {
	return "Respond with a single JSON object matching the required schema. Do not include any other text."
}

func previewText(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}

func usageOf(resp *llmtransport.Response) *agentcore.Usage {
	if resp == nil {
		return nil
	}
	return &agentcore.Usage{InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens}
}
