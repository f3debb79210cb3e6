package market

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/eodhd"
)

// EODHDProvider serves snapshots from the EODHD end-of-day API.
type EODHDProvider struct {
	client *eodhd.Client
	logger arbor.ILogger
	now    func() time.Time
}

// NewEODHDProvider creates a provider backed by the given EODHD client.
func NewEODHDProvider(client *eodhd.Client, logger arbor.ILogger) *EODHDProvider {
	return &EODHDProvider{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// Name identifies the provider in logs.
func (p *EODHDProvider) Name() string { return "eodhd" }

// Snapshot fetches a year of daily closes for the ticker and derives the
// latest price plus period reference prices.
func (p *EODHDProvider) Snapshot(ctx context.Context, ticker common.Ticker) (*Snapshot, error) {
	now := p.now()
	from := now.AddDate(-1, 0, 0)

	eod, err := p.client.GetEOD(ctx, ticker.EODHDSymbol(),
		eodhd.WithDateRange(from, now),
		eodhd.WithOrder("a"))
	if err != nil {
		return nil, &DataUnavailableError{Symbol: ticker.String(), Err: err}
	}

	bars := make([]Bar, 0, len(eod))
	for _, d := range eod {
		if d.Close <= 0 {
			continue
		}
		bars = append(bars, Bar{Date: d.Date, Close: d.Close})
	}

	snap, err := snapshotFromSeries(ticker, bars, now)
	if err != nil {
		return nil, err
	}

	// The EOD series can lag a session; overlay the delayed real-time quote
	// when the subscription exposes the endpoint.
	if quote, qErr := p.client.GetRealTimeQuote(ctx, ticker.EODHDSymbol()); qErr == nil {
		if quote.Close > 0 {
			snap.CurrentPrice = quote.Close
			if quote.Timestamp > 0 {
				snap.AsOf = time.Unix(quote.Timestamp, 0).UTC()
			}
		}
		if quote.PreviousClose > 0 {
			snap.PrevClose = quote.PreviousClose
		}
	} else if p.logger != nil {
		p.logger.Debug().
			Err(qErr).
			Str("ticker", ticker.String()).
			Msg("Real-time quote unavailable, using EOD close")
	}

	if p.logger != nil {
		p.logger.Debug().
			Str("ticker", ticker.String()).
			Float64("price", snap.CurrentPrice).
			Int("bars", len(bars)).
			Msg("Fetched EODHD snapshot")
	}

	return snap, nil
}
