package domain

import "context"

// GenerateRequest is sent to an LLM provider for a single text completion.
type GenerateRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// GenerateResponse is returned from an LLM provider.
type GenerateResponse struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// LLMProvider is the interface for any LLM backend used by the
// translation strategy.
type LLMProvider interface {
	// Generate sends a prompt and returns the complete response text.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
	// Name returns the provider's identifier (e.g., "gemini", "ollama").
	Name() string
}
