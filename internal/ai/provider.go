package ai

import (
	"context"
	"fmt"

	"ledgerchat/internal/config"
)

// Provider is a text completion backend. Implementations send a single
// prompt and return the raw model output.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewProvider builds the provider selected by configuration.
func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.AIProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("gemini provider selected but GEMINI_API_KEY is empty")
		}
		return NewGemini(cfg.GeminiAPIKey), nil
	case "groq":
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("groq provider selected but GROQ_API_KEY is empty")
		}
		return NewGroq(cfg.GroqAPIKey), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}
