// Package llm wraps text-generation providers behind a single completion
// interface. The rest of the system treats generation as a pure,
// possibly-failing function of a prompt.
package llm

import "context"

// Service defines the interface for text-generation operations
type Service interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Request carries a prompt and its generation parameters
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider constants for supported backends
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)
