// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific request extensions (thinking mode, extra headers)

package llm

import (
	"context"
	"time"
)

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a consistent interface for chat completions.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// Chat sends a chat completion request.
	Chat(ctx context.Context, messages []ChatMessage) (LLMResponse, error)

	// ChatWithTools sends a chat completion request with tool definitions.
	// The LLM may respond with tool calls in LLMResponse.ToolCalls.
	ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (LLMResponse, error)
}

// Streamer is implemented by providers that can stream a tool-enabled
// completion. Text deltas are sent to chunks as they arrive; the returned
// response carries the full content and any tool calls.
type Streamer interface {
	StreamWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition, chunks chan<- string) (LLMResponse, error)
}

// Thinking modes understood by OpenAI-compatible endpoints that support
// reasoning toggles.
const (
	ThinkingEnabled  = "enabled"
	ThinkingDisabled = "disabled"
	ThinkingAuto     = "auto"
)

// Options configures a provider instance.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   uint32
	Temperature float32
	Timeout     time.Duration

	// Thinking is forwarded as {"thinking":{"type":...}} in the request
	// body when non-empty. Only OpenAI-compatible providers honour it.
	Thinking string

	// Headers are added to every outgoing request.
	Headers map[string]string
}

// DefaultTimeout bounds a single model request when Options.Timeout is zero.
const DefaultTimeout = 600 * time.Second

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}
