package ai

import (
	"context"
	"fmt"

	"github.com/dgallion1/mindgest/internal/config"
)

// Backend is a Completer holding connections that must be released.
type Backend interface {
	Completer
	Close()
}

// NewBackend builds the completion backend selected by cfg.AIBackend.
func NewBackend(ctx context.Context, cfg config.Config, s *Sanitizer) (Backend, error) {
	switch cfg.AIBackend {
	case "gateway":
		return NewGatewayClient(cfg.GatewayURL, cfg.GatewayAPIKey), nil
	case "anthropic":
		return NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, s), nil
	case "openai":
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, s), nil
	case "gemini":
		g, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, s)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown ai backend %q", cfg.AIBackend)
	}
}
