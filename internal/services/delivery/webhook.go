package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
)

// WebhookPoster POSTs the chat-card JSON to a fixed webhook URL.
type WebhookPoster struct {
	url        string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewWebhookPoster creates a poster for the given webhook URL.
func NewWebhookPoster(url string, logger arbor.ILogger) *WebhookPoster {
	return &WebhookPoster{
		url:        url,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// Post delivers the chat card. A non-2xx response is a DeliveryError.
func (p *WebhookPoster) Post(ctx context.Context, card json.RawMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(card))
	if err != nil {
		return &DeliveryError{Channel: ChannelWebhook, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Channel: ChannelWebhook, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &DeliveryError{
			Channel:    ChannelWebhook,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("webhook rejected card: %s", strings.TrimSpace(string(respBody))),
		}
	}

	if p.logger != nil {
		p.logger.Info().Msg("Chat card delivered")
	}

	return nil
}
