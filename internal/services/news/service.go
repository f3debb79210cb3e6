// Package news fetches a small set of market headlines for the report.
package news

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/eodhd"
)

// DefaultLimit is the number of headlines included when none is configured.
const DefaultLimit = 3

// Headline is a single market news item.
type Headline struct {
	Title       string
	Link        string
	PublishedAt time.Time
}

// Service retrieves recent headlines for the configured tickers.
// Headlines are decorative: any failure yields an empty list and the
// report proceeds without them.
type Service struct {
	client  *eodhd.Client
	tickers []common.Ticker
	limit   int
	logger  arbor.ILogger
}

// NewService creates a headline service over the given tickers.
func NewService(client *eodhd.Client, tickers []common.Ticker, limit int, logger arbor.ILogger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{
		client:  client,
		tickers: tickers,
		limit:   limit,
		logger:  logger,
	}
}

// Headlines returns up to the configured number of recent headlines.
// Never returns an error: failures are logged and produce an empty list.
func (s *Service) Headlines(ctx context.Context) []Headline {
	if s.client == nil || len(s.tickers) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(s.tickers))
	for _, t := range s.tickers {
		symbols = append(symbols, t.EODHDSymbol())
	}

	items, err := s.client.GetNews(ctx, symbols, eodhd.WithLimit(s.limit))
	if err != nil {
		if s.logger != nil {
			s.logger.Warn().Err(err).Msg("News unavailable, continuing without headlines")
		}
		return nil
	}

	headlines := make([]Headline, 0, s.limit)
	for _, item := range items {
		if item.Title == "" {
			continue
		}
		headlines = append(headlines, Headline{
			Title:       item.Title,
			Link:        item.Link,
			PublishedAt: item.Date,
		})
		if len(headlines) >= s.limit {
			break
		}
	}

	return headlines
}
