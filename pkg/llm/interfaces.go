// Package llm provides a provider-agnostic chat-completion client used by
// every AI-assisted stage of the import pipeline.
package llm

import "context"

// ChatResult holds the text of a chat completion plus token accounting.
type ChatResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatClient is the narrow interface every AI-assisted stage depends on.
// Implementations must be safe for concurrent use; the same client is shared
// across concurrent import jobs.
type ChatClient interface {
	// GenerateResponse sends one system+user exchange and returns the
	// completion. Implementations wrap provider errors in *Error.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*ChatResult, error)

	// GetModel returns the configured model name.
	GetModel() string
}

var _ ChatClient = (*OpenAIClient)(nil)
var _ ChatClient = (*AnthropicClient)(nil)
