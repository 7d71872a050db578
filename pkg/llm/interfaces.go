// Package llm provides clients for AI content-generation providers.
package llm

import "context"

// GenerateRequest is the prompt contract shared by every provider. The same
// request can be sent to the primary and the fallback provider unchanged.
type GenerateRequest struct {
	Prompt        string
	SystemMessage string
	Temperature   float64
	MaxTokens     int
}

// GenerateResult holds the generated content plus usage stats.
type GenerateResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Provider         string
}

// ContentClient defines the interface for AI content generation.
// Use this interface for dependency injection to enable mocking in tests.
type ContentClient interface {
	// GenerateContent generates a completion for the given request.
	GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResult, error)

	// ProviderName returns a short identifier for diagnostics.
	ProviderName() string
}
