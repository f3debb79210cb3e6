package formatter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
)

// ClaudeProvider generates text via the Anthropic Claude API.
type ClaudeProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	logger      arbor.ILogger
}

// NewClaudeProvider creates a Claude provider from configuration.
func NewClaudeProvider(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("claude api key is not configured")
	}

	timeout := 2 * time.Minute
	if config.Timeout != "" {
		d, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid claude timeout %q: %w", config.Timeout, err)
		}
		timeout = d
	}

	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	return &ClaudeProvider{
		client: anthropic.NewClient(
			option.WithAPIKey(config.APIKey),
		),
		model:       config.Model,
		maxTokens:   maxTokens,
		temperature: config.Temperature,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// GetProviderType returns the provider type
func (p *ClaudeProvider) GetProviderType() ProviderType {
	return ProviderClaude
}

// GenerateText sends the prompt to Claude and returns the response text.
func (p *ClaudeProvider) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: int64(p.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	if p.temperature > 0 {
		params.Temperature = anthropic.Float(float64(p.temperature))
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: system},
		}
	}

	// Make API call with retry
	var resp *anthropic.Message
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = p.client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		}

		if p.logger != nil {
			p.logger.Warn().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(apiErr).
				Msg("Retrying Claude API call")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("Claude API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	// Extract text from response
	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("empty response from Claude API")
	}

	return text.String(), nil
}

// Close releases the provider.
func (p *ClaudeProvider) Close() error {
	p.client = anthropic.Client{}
	return nil
}
