package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/services/market"
	"github.com/ternarybob/specto/internal/services/portfolio"
)

type countingAggregator struct {
	calls   atomic.Int32
	summary *portfolio.Summary
	err     error
}

func (a *countingAggregator) Aggregate(context.Context) (*portfolio.Summary, error) {
	a.calls.Add(1)
	return a.summary, a.err
}

func dashboardSummary() *portfolio.Summary {
	return &portfolio.Summary{
		Quotes: []portfolio.TickerQuote{
			{Ticker: common.Ticker{Exchange: "US", Code: "SPY"}, CurrentPrice: 568.42,
				Day: market.Return{Pct: 0.5, Valid: true},
				MTD: market.Return{Pct: 2.1, Valid: true},
				YTD: market.Return{Pct: 12.4, Valid: true}},
			{Ticker: common.Ticker{Exchange: "US", Code: "NVDA"}, CurrentPrice: 142.18,
				Day: market.Return{Pct: -1.1, Valid: true}},
		},
		Failed:           []string{"US:GONE"},
		GainersCount:     1,
		LosersCount:      1,
		AverageReturnPct: -0.3,
		GeneratedAt:      time.Date(2025, 8, 29, 17, 0, 0, 0, time.UTC),
	}
}

func newTestServer(agg Aggregator) *Server {
	config := common.NewDefaultConfig()
	return New(config, nil, NewSnapshotCache(agg, 0), nil)
}

func TestHandlePortfolio(t *testing.T) {
	s := newTestServer(&countingAggregator{summary: dashboardSummary()})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var view portfolioView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Quotes, 2)
	assert.Equal(t, "SPY", view.Quotes[0].Symbol)
	assert.Equal(t, "+0.5%", view.Quotes[0].Day)
	assert.Equal(t, "-1.1%", view.Quotes[1].Day)
	assert.Equal(t, []string{"US:GONE"}, view.Failed)
	assert.Equal(t, 1, view.GainersCount)
}

func TestHandlePortfolio_CachesAcrossRequests(t *testing.T) {
	agg := &countingAggregator{summary: dashboardSummary()}
	s := newTestServer(agg)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, int32(1), agg.calls.Load(), "repeated reads within the TTL hit the cache")
}

func TestHandleRefresh_InvalidatesCache(t *testing.T) {
	agg := &countingAggregator{summary: dashboardSummary()}
	s := newTestServer(agg)

	get := func() {
		req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
		rec := httptest.NewRecorder()
		s.Router().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	get()
	req := httptest.NewRequest(http.MethodPost, "/api/refresh", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	get()

	assert.Equal(t, int32(2), agg.calls.Load())
}

func TestHandlePortfolio_AggregatorError(t *testing.T) {
	s := newTestServer(&countingAggregator{err: errors.New("provider down")})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider down")
}

func TestHandleDashboard(t *testing.T) {
	s := newTestServer(&countingAggregator{summary: dashboardSummary()})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "SPY")
	assert.Contains(t, body, "NVDA")
	assert.Contains(t, body, "+0.5%")
	assert.Contains(t, body, "-1.1%")
	assert.Contains(t, body, "US:GONE")
}

func TestHandleStatus(t *testing.T) {
	s := newTestServer(&countingAggregator{summary: dashboardSummary()})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var view statusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "ok", view.Status)
	assert.Nil(t, view.Scheduler)
}

func TestHandleTriggerReport_NoScheduler(t *testing.T) {
	s := newTestServer(&countingAggregator{summary: dashboardSummary()})

	req := httptest.NewRequest(http.MethodPost, "/api/report", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSnapshotCache_ServesStaleOnRefreshFailure(t *testing.T) {
	agg := &countingAggregator{summary: dashboardSummary()}
	cache := NewSnapshotCache(agg, time.Nanosecond)

	first, err := cache.Get(context.Background())
	require.NoError(t, err)

	// Next refresh fails; the stale copy is served instead
	agg.err = errors.New("provider down")
	agg.summary = nil
	time.Sleep(time.Millisecond)

	second, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
