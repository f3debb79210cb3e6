package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/specto/internal/common"
)

func TestDetectEmailProvider(t *testing.T) {
	tests := []struct {
		apiKey string
		want   EmailProvider
	}{
		{"re_abc123", EmailProviderResend},
		{"SG.abc123", EmailProviderSendGrid},
		{"something-else", EmailProviderResend},
	}

	for _, tt := range tests {
		t.Run(tt.apiKey, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectEmailProvider(tt.apiKey))
		})
	}
}

func TestEmailSender_Resend(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer server.Close()

	sender := NewEmailSender(&common.EmailConfig{
		APIKey:  "re_test",
		From:    "reports@example.com",
		To:      []string{"team@example.com"},
		BaseURL: server.URL,
	}, nil)

	require.Equal(t, EmailProviderResend, sender.Provider())
	err := sender.Send(context.Background(), "Daily Stock Report", "<html>report</html>")
	require.NoError(t, err)

	assert.Equal(t, "/emails", gotPath)
	assert.Equal(t, "Bearer re_test", gotAuth)
	assert.Equal(t, "reports@example.com", gotBody["from"])
	assert.Equal(t, "Daily Stock Report", gotBody["subject"])
	assert.Equal(t, "<html>report</html>", gotBody["html"])
}

func TestEmailSender_SendGrid(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewEmailSender(&common.EmailConfig{
		APIKey:  "SG.test",
		From:    "reports@example.com",
		To:      []string{"team@example.com"},
		BaseURL: server.URL,
	}, nil)

	require.Equal(t, EmailProviderSendGrid, sender.Provider())
	err := sender.Send(context.Background(), "Daily Stock Report", "<html>report</html>")
	require.NoError(t, err)

	assert.Equal(t, "/v3/mail/send", gotPath)
	assert.Contains(t, gotBody, "personalizations")
	from := gotBody["from"].(map[string]interface{})
	assert.Equal(t, "reports@example.com", from["email"])
}

func TestEmailSender_Non2xxIsDeliveryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message":"invalid from address"}`))
	}))
	defer server.Close()

	sender := NewEmailSender(&common.EmailConfig{
		APIKey:  "re_test",
		From:    "bad",
		To:      []string{"team@example.com"},
		BaseURL: server.URL,
	}, nil)

	err := sender.Send(context.Background(), "subject", "<p>x</p>")
	require.Error(t, err)

	var deliveryErr *DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Equal(t, ChannelEmail, deliveryErr.Channel)
	assert.Equal(t, http.StatusUnprocessableEntity, deliveryErr.StatusCode)
	assert.Contains(t, deliveryErr.Error(), "invalid from address")
}

func TestWebhookPoster_Post(t *testing.T) {
	var gotBody []byte
	var gotContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte("1"))
	}))
	defer server.Close()

	poster := NewWebhookPoster(server.URL, nil)
	card := json.RawMessage(`{"@type":"MessageCard","text":"report"}`)

	require.NoError(t, poster.Post(context.Background(), card))
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, string(card), string(gotBody))
}

func TestWebhookPoster_ServerErrorIsDeliveryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("connector failure"))
	}))
	defer server.Close()

	poster := NewWebhookPoster(server.URL, nil)
	err := poster.Post(context.Background(), json.RawMessage(`{}`))
	require.Error(t, err)

	var deliveryErr *DeliveryError
	require.True(t, errors.As(err, &deliveryErr))
	assert.Equal(t, ChannelWebhook, deliveryErr.Channel)
	assert.Equal(t, http.StatusInternalServerError, deliveryErr.StatusCode)
}
