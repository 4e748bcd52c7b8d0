package ai

import (
	"context"
)

// Provider is a chat completion backend
type Provider interface {
	// GetName returns provider identifier for logging
	GetName() string

	// IsEnabled reports whether the provider is configured and usable
	IsEnabled() bool

	// Complete sends a system and user prompt and returns the raw text reply
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
