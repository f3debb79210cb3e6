// Package portfolio aggregates per-ticker quotes into a run summary.
package portfolio

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/services/market"
)

// ErrNoMarketData indicates every configured ticker failed data retrieval.
// There is nothing to report, so the run is fatal.
var ErrNoMarketData = errors.New("market data unavailable for all tickers")

// TickerQuote is one row of the report. Created fresh per run and immutable
// once computed.
type TickerQuote struct {
	Ticker       common.Ticker
	CurrentPrice float64
	Day          market.Return
	MTD          market.Return
	YTD          market.Return
	ThreeMonth   market.Return
	AsOf         time.Time
}

// Summary is the aggregated result of a run. Quotes preserve the configured
// ticker order; statistics cover only tickers whose data retrieval succeeded.
type Summary struct {
	Quotes           []TickerQuote
	Failed           []string // tickers excluded from statistics
	GainersCount     int
	LosersCount      int
	AverageReturnPct float64 // mean day return, unrounded
	GeneratedAt      time.Time
}

// Aggregator runs the market provider over the configured ticker list.
type Aggregator struct {
	provider market.Provider
	tickers  []common.Ticker
	logger   arbor.ILogger
}

// NewAggregator creates an Aggregator over the given ticker list.
func NewAggregator(provider market.Provider, tickers []common.Ticker, logger arbor.ILogger) *Aggregator {
	return &Aggregator{
		provider: provider,
		tickers:  tickers,
		logger:   logger,
	}
}

// Aggregate fetches a snapshot per ticker and assembles the run summary.
// A failed ticker is logged and excluded; the run continues with the rest.
// Only when every ticker fails does Aggregate return ErrNoMarketData.
func (a *Aggregator) Aggregate(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		Quotes:      make([]TickerQuote, 0, len(a.tickers)),
		GeneratedAt: time.Now(),
	}

	for _, ticker := range a.tickers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snap, err := a.provider.Snapshot(ctx, ticker)
		if err != nil {
			if a.logger != nil {
				a.logger.Warn().
					Str("ticker", ticker.String()).
					Err(err).
					Msg("Skipping ticker, data unavailable")
			}
			summary.Failed = append(summary.Failed, ticker.String())
			continue
		}

		returns := market.ComputeReturns(snap)
		summary.Quotes = append(summary.Quotes, TickerQuote{
			Ticker:       ticker,
			CurrentPrice: snap.CurrentPrice,
			Day:          returns.Day,
			MTD:          returns.MTD,
			YTD:          returns.YTD,
			ThreeMonth:   returns.ThreeMonth,
			AsOf:         snap.AsOf,
		})
	}

	if len(summary.Quotes) == 0 {
		return nil, ErrNoMarketData
	}

	summary.computeStats()

	if a.logger != nil {
		a.logger.Info().
			Int("quotes", len(summary.Quotes)).
			Int("failed", len(summary.Failed)).
			Int("gainers", summary.GainersCount).
			Int("losers", summary.LosersCount).
			Msg("Portfolio aggregation complete")
	}

	return summary, nil
}

// computeStats derives gainer/loser counts and the average day return over
// quotes with a valid day return. Rounding happens at display time only.
func (s *Summary) computeStats() {
	var sum float64
	var counted int

	for _, q := range s.Quotes {
		if !q.Day.Valid {
			continue
		}
		switch {
		case q.Day.Pct > 0:
			s.GainersCount++
		case q.Day.Pct < 0:
			s.LosersCount++
		}
		sum += q.Day.Pct
		counted++
	}

	if counted > 0 {
		s.AverageReturnPct = sum / float64(counted)
	}
}
