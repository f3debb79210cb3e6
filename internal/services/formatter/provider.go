// Package formatter turns an aggregated portfolio summary into a delivery-ready
// report, using a hosted language model with a local template fallback.
package formatter

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// Provider defines the interface for AI text generation
type Provider interface {
	GenerateText(ctx context.Context, system, prompt string) (string, error)
	GetProviderType() ProviderType
	Close() error
}

// NewProvider creates the configured AI provider.
func NewProvider(ctx context.Context, config *common.Config, logger arbor.ILogger) (Provider, error) {
	switch config.LLM.DefaultProvider {
	case common.LLMProviderClaude, "":
		return NewClaudeProvider(&config.Claude, logger)
	case common.LLMProviderGemini:
		return NewGeminiProvider(ctx, &config.Gemini, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", config.LLM.DefaultProvider)
	}
}
