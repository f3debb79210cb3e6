package eodhd

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEOD(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eod/SPY.US", r.URL.Path)
		assert.Equal(t, "test-token", r.URL.Query().Get("api_token"))
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))
		assert.Equal(t, "a", r.URL.Query().Get("order"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2025-08-28","open":565.00,"high":567.50,"low":564.20,"close":565.59,"adjusted_close":565.59,"volume":45000000},
			{"date":"2025-08-29","open":566.10,"high":569.00,"low":565.80,"close":568.42,"adjusted_close":568.42,"volume":47000000}
		]`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	result, err := client.GetEOD(context.Background(), "SPY.US")
	require.NoError(t, err)
	require.Len(t, result, 2)

	assert.Equal(t, 565.59, result[0].Close)
	assert.Equal(t, 568.42, result[1].Close)
	assert.Equal(t, "2025-08-29", result[1].Date.Format("2006-01-02"))
}

func TestGetEOD_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("Symbol not found"))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	_, err := client.GetEOD(context.Background(), "BOGUS.US")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "Symbol not found")
	assert.Equal(t, "/eod/BOGUS.US", apiErr.Endpoint)
}

func TestGetRealTimeQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/real-time/NVDA.US", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":"NVDA.US","timestamp":1756500000,"open":139.10,"high":143.00,"low":138.90,"close":142.18,"volume":210000000,"previousClose":137.77,"change":4.41,"change_p":3.2}`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	quote, err := client.GetRealTimeQuote(context.Background(), "NVDA.US")
	require.NoError(t, err)
	assert.Equal(t, 142.18, quote.Close)
	assert.Equal(t, 137.77, quote.PreviousClose)
	assert.Equal(t, 3.2, quote.ChangePercent)
}

func TestGetNews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/news", r.URL.Path)
		assert.Equal(t, "SPY.US,NVDA.US", r.URL.Query().Get("s"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2025-08-29 14:30:00","title":"Markets rally on rate cut hopes","content":"...","link":"https://example.com/1","symbols":["SPY.US"]},
			{"date":"2025-08-29 12:00:00","title":"Chipmaker tops estimates","content":"...","link":"https://example.com/2","symbols":["NVDA.US"]}
		]`))
	}))
	defer server.Close()

	client := NewClient("test-token", WithBaseURL(server.URL))

	news, err := client.GetNews(context.Background(), []string{"SPY.US", "NVDA.US"}, WithLimit(3))
	require.NoError(t, err)
	require.Len(t, news, 2)
	assert.Equal(t, "Markets rally on rate cut hopes", news[0].Title)
	assert.Equal(t, "2025-08-29", news[0].Date.Format("2006-01-02"))
}
