package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/eodhd"
)

func TestHeadlines(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		assert.Equal(t, "SPY.US,NVDA.US", r.URL.Query().Get("s"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2025-08-29 14:30:00","title":"Markets rally","link":"https://example.com/1"},
			{"date":"2025-08-29 12:00:00","title":"","link":"https://example.com/skip"},
			{"date":"2025-08-29 11:00:00","title":"Chipmaker tops estimates","link":"https://example.com/2"},
			{"date":"2025-08-29 10:00:00","title":"Extra beyond limit","link":"https://example.com/3"},
			{"date":"2025-08-29 09:00:00","title":"Another extra","link":"https://example.com/4"}
		]`))
	}))
	defer server.Close()

	client := eodhd.NewClient("token", eodhd.WithBaseURL(server.URL))
	tickers := common.ParseTickers([]string{"SPY", "NVDA"})
	svc := NewService(client, tickers, 3, nil)

	headlines := svc.Headlines(context.Background())

	// Untitled items are skipped, result capped at the limit
	require.Len(t, headlines, 3)
	assert.Equal(t, "Markets rally", headlines[0].Title)
	assert.Equal(t, "Chipmaker tops estimates", headlines[1].Title)
	assert.Equal(t, "Extra beyond limit", headlines[2].Title)
}

func TestHeadlines_FailureReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := eodhd.NewClient("token", eodhd.WithBaseURL(server.URL))
	svc := NewService(client, common.ParseTickers([]string{"SPY"}), 3, nil)

	headlines := svc.Headlines(context.Background())
	assert.Empty(t, headlines, "news failure must not fail the run")
}

func TestHeadlines_NoClient(t *testing.T) {
	svc := NewService(nil, nil, 3, nil)
	assert.Empty(t, svc.Headlines(context.Background()))
}
