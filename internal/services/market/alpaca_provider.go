package market

import (
	"context"
	"sort"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
)

// AlpacaProvider serves snapshots from the Alpaca market-data API.
// Alpaca only covers US equities; the ticker's exchange qualifier is
// ignored and the bare code is used as the symbol.
type AlpacaProvider struct {
	client *marketdata.Client
	logger arbor.ILogger
	now    func() time.Time
}

// NewAlpacaProvider creates a provider using the given Alpaca credentials.
// baseURL overrides the market-data endpoint for testing; pass "" for the
// production endpoint.
func NewAlpacaProvider(apiKey, apiSecret, baseURL string, logger arbor.ILogger) *AlpacaProvider {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if baseURL != "" {
		opts.BaseURL = baseURL
	}

	return &AlpacaProvider{
		client: marketdata.NewClient(opts),
		logger: logger,
		now:    time.Now,
	}
}

// Name identifies the provider in logs.
func (p *AlpacaProvider) Name() string { return "alpaca" }

// Snapshot fetches a year of daily bars for the ticker and derives the
// latest price plus period reference prices.
func (p *AlpacaProvider) Snapshot(ctx context.Context, ticker common.Ticker) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := p.now()
	start := now.AddDate(-1, 0, 0)

	alpacaBars, err := p.client.GetBars(ticker.Code, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       now,
	})
	if err != nil {
		return nil, &DataUnavailableError{Symbol: ticker.String(), Err: err}
	}

	bars := make([]Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		if ab.Close <= 0 {
			continue
		}
		bars = append(bars, Bar{Date: ab.Timestamp, Close: ab.Close})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	snap, err := snapshotFromSeries(ticker, bars, now)
	if err != nil {
		return nil, err
	}

	if p.logger != nil {
		p.logger.Debug().
			Str("ticker", ticker.String()).
			Float64("price", snap.CurrentPrice).
			Int("bars", len(bars)).
			Msg("Fetched Alpaca snapshot")
	}

	return snap, nil
}
