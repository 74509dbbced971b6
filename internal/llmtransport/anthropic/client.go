// Package anthropic is a minimal Anthropic Messages API adapter
// implementing llmtransport.Client: the same base URL default, a hardened
// http.Transport (dial/TLS/idle timeouts), and the same
// x-api-key/anthropic-version headers as a typical Anthropic HTTP
// integration. Trimmed to non-streaming Complete only — the planner never
// needs token-by-token streaming, only a final message plus usage.
package anthropic

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zace-run/zace/internal/llmtransport"
)

const anthropicVersion = "2023-06-01"

// Client is a minimal Anthropic Messages API client.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// New creates an Anthropic client. baseURL defaults to the public API when
// empty, matching the override-for-testing pattern used by internal/llm's
// other provider clients.
func New(apiKey, baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ResponseHeaderTimeout: 300 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Transport: transport},
		logger:  logger.With(zap.String("provider", "anthropic")),
	}
}

var _ llmtransport.Client = (*Client)(nil)

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiRequest struct {
	Model     string       `json:"model"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
	MaxTokens int          `json:"max_tokens"`
	Tools     []apiTool    `json:"tools,omitempty"`
}

type apiTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type apiContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type apiResponse struct {
	Content []apiContentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Complete sends req as a single Anthropic Messages API call. When
// req.Schema is set, it is offered as the only tool, named SchemaName — the
// closest Anthropic equivalent to response-format schema transport, since
// the Messages API has no native JSON-schema response format. No
// tool_choice is sent, so the model is not forced to call that tool. If the API rejects the tool definition itself, the rejection is
// classified response_format_unsupported so the planner can fall through to
// prompt mode.
func (c *Client) Complete(ctx context.Context, req llmtransport.Request) (*llmtransport.Response, error) {
	apiReq := apiRequest{
		Model:     req.Model,
		System:    req.SystemPrompt,
		MaxTokens: 4096,
	}
	for _, m := range req.Messages {
		apiReq.Messages = append(apiReq.Messages, apiMessage{Role: m.Role, Content: m.Content})
	}
	if len(req.Schema) > 0 {
		apiReq.Tools = []apiTool{{
			Name:        req.SchemaName,
			InputSchema: req.Schema,
		}}
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic http request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}

	if resp.StatusCode == http.StatusBadRequest && len(req.Schema) > 0 {
		c.logger.Warn("anthropic rejected schema-transport request, classifying as unsupported",
			zap.Int("status", resp.StatusCode))
		return &llmtransport.Response{
			Rejection:       llmtransport.RejectionResponseFormatUnsupported,
			RejectionDetail: string(raw),
		}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, string(raw))
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode anthropic response: %w", err)
	}

	var text string
	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			text += block.Text
		case "tool_use":
			text += string(block.Input)
		}
	}

	return &llmtransport.Response{
		Text:         text,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}
