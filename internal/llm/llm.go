package llm

import (
	"context"
)

// Options bound a single completion request.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client is a generic interface to a language-model inference service.
// Implementations return the raw text completion for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	Name() string
	Model() string
}
