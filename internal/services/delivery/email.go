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

	"github.com/ternarybob/specto/internal/common"
)

// EmailProvider is a transactional email API.
type EmailProvider string

const (
	// EmailProviderResend is the Resend API (keys prefixed "re_").
	EmailProviderResend EmailProvider = "resend"
	// EmailProviderSendGrid is the SendGrid API (keys prefixed "SG.").
	EmailProviderSendGrid EmailProvider = "sendgrid"
)

// Provider base URLs. Overridable via email.base_url for testing.
const (
	resendBaseURL   = "https://api.resend.com"
	sendgridBaseURL = "https://api.sendgrid.com"
)

// DetectEmailProvider determines the provider from the API key prefix.
func DetectEmailProvider(apiKey string) EmailProvider {
	if strings.HasPrefix(apiKey, "SG.") {
		return EmailProviderSendGrid
	}
	return EmailProviderResend
}

// EmailSender submits the report to a transactional email API.
type EmailSender struct {
	provider   EmailProvider
	apiKey     string
	from       string
	to         []string
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewEmailSender creates a sender from email configuration.
func NewEmailSender(config *common.EmailConfig, logger arbor.ILogger) *EmailSender {
	provider := DetectEmailProvider(config.APIKey)

	baseURL := config.BaseURL
	if baseURL == "" {
		switch provider {
		case EmailProviderSendGrid:
			baseURL = sendgridBaseURL
		default:
			baseURL = resendBaseURL
		}
	}

	return &EmailSender{
		provider:   provider,
		apiKey:     config.APIKey,
		from:       config.From,
		to:         config.To,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// Provider returns the detected email provider.
func (s *EmailSender) Provider() EmailProvider {
	return s.provider
}

// Send submits the HTML report. A non-2xx response is a DeliveryError.
func (s *EmailSender) Send(ctx context.Context, subject, htmlBody string) error {
	var (
		path    string
		payload interface{}
	)

	switch s.provider {
	case EmailProviderSendGrid:
		path = "/v3/mail/send"
		tos := make([]map[string]string, 0, len(s.to))
		for _, addr := range s.to {
			tos = append(tos, map[string]string{"email": addr})
		}
		payload = map[string]interface{}{
			"personalizations": []map[string]interface{}{
				{"to": tos},
			},
			"from":    map[string]string{"email": s.from},
			"subject": subject,
			"content": []map[string]string{
				{"type": "text/html", "value": htmlBody},
			},
		}
	default:
		path = "/emails"
		payload = map[string]interface{}{
			"from":    s.from,
			"to":      s.to,
			"subject": subject,
			"html":    htmlBody,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return &DeliveryError{Channel: ChannelEmail, Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Channel: ChannelEmail, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Channel: ChannelEmail, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return &DeliveryError{
			Channel:    ChannelEmail,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s: %s", s.provider, strings.TrimSpace(string(respBody))),
		}
	}

	if s.logger != nil {
		s.logger.Info().
			Str("provider", string(s.provider)).
			Int("recipients", len(s.to)).
			Msg("Email delivered")
	}

	return nil
}
