package formatter

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/specto/internal/common"
)

// GeminiProvider generates text via the Google Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	timeout     time.Duration
	logger      arbor.ILogger
}

// NewGeminiProvider creates a Gemini provider from configuration.
func NewGeminiProvider(ctx context.Context, config *common.GeminiConfig, logger arbor.ILogger) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is not configured")
	}

	timeout := 2 * time.Minute
	if config.Timeout != "" {
		d, err := time.ParseDuration(config.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid gemini timeout %q: %w", config.Timeout, err)
		}
		timeout = d
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       config.Model,
		temperature: config.Temperature,
		timeout:     timeout,
		logger:      logger,
	}, nil
}

// GetProviderType returns the provider type
func (p *GeminiProvider) GetProviderType() ProviderType {
	return ProviderGemini
}

// GenerateText sends the prompt to Gemini and returns the response text.
func (p *GeminiProvider) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	config := &genai.GenerateContentConfig{}
	if p.temperature > 0 {
		config.Temperature = genai.Ptr(p.temperature)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	// Make API call with retry
	var resp *genai.GenerateContentResponse
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = p.client.Models.GenerateContent(ctx, p.model, contents, config)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		if p.logger != nil {
			p.logger.Warn().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Err(apiErr).
				Msg("Retrying Gemini API call")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("Gemini API call failed after %d retries: %w", retryConfig.MaxRetries, apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from Gemini API")
	}

	responseText := resp.Text()
	if responseText == "" {
		return "", fmt.Errorf("empty text in Gemini response")
	}

	return responseText, nil
}

// Close releases the provider.
func (p *GeminiProvider) Close() error {
	p.client = nil
	return nil
}
