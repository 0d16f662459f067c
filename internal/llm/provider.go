package llm

import "context"

// Provider defines the interface for text-generation backends. The pipeline
// uses Complete for both structured JSON extraction and free-text generation.
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// DefaultModel returns the model used when none is configured
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete sends a single-turn prompt and returns the raw completion text
	Complete(ctx context.Context, prompt string) (string, error)
}
