// Package llmtransport defines the narrow boundary between the run loop and
// an LLM provider. Prompting, model selection, and response-format
// strategy are entirely the planner's concern (internal/planner); this
// package only moves messages and optional schema hints across a provider
// API and reports back text, token usage, and a classified rejection
// reason when the provider can't satisfy a schema-transport request. The
// LLM provider itself is intentionally out of scope for this package — this
// interface exists so internal/planner can depend on an abstraction rather
// than a concrete HTTP client.
package llmtransport

import "context"

// RejectionKind classifies why a schema-transport call failed, so the
// planner's pipeline can decide whether to retry with tool-role
// coercion or fall through to prompt mode.
type RejectionKind string

const (
	RejectionNone                   RejectionKind = ""
	RejectionInvalidMessageShape    RejectionKind = "invalid_message_shape"
	RejectionResponseFormatUnsupported RejectionKind = "response_format_unsupported"
)

// Request is a single call to the provider.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	// SchemaName and Schema are non-empty when the caller wants strict
	// schema-transport; the provider adapter is responsible for translating
	// this into whatever response-format mechanism it actually supports.
	SchemaName string
	Schema     map[string]any
}

// Message is one entry in the conversation sent to the provider.
type Message struct {
	Role    string // "system" | "user" | "assistant" | "tool"
	Content string
}

// Response is what a provider call returns.
type Response struct {
	Text          string
	InputTokens   int
	OutputTokens  int
	ContextWindow int
	Rejection     RejectionKind
	RejectionDetail string
}

// Client is the minimal surface internal/planner depends on.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}
