package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/eodhd"
	"github.com/ternarybob/specto/internal/services/delivery"
	"github.com/ternarybob/specto/internal/services/formatter"
	"github.com/ternarybob/specto/internal/services/market"
	"github.com/ternarybob/specto/internal/services/news"
	"github.com/ternarybob/specto/internal/services/portfolio"
)

// NewFromConfig wires a Pipeline from validated configuration.
func NewFromConfig(ctx context.Context, config *common.Config, logger arbor.ILogger) (*Pipeline, error) {
	tickers := common.ParseTickers(config.Tickers)
	if len(tickers) == 0 {
		return nil, fmt.Errorf("no valid tickers configured")
	}

	provider, err := market.NewProvider(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create market provider: %w", err)
	}
	aggregator := portfolio.NewAggregator(provider, tickers, logger)

	// Headlines are served by EODHD regardless of the market provider; a
	// key the news endpoint rejects just yields a report without headlines.
	var headlineFetcher HeadlineFetcher
	if config.News.Enabled {
		opts := []eodhd.ClientOption{eodhd.WithLogger(logger)}
		if config.Market.RequestTimeout > 0 {
			opts = append(opts, eodhd.WithHTTPClient(&http.Client{Timeout: config.Market.RequestTimeout}))
		}
		newsClient := eodhd.NewClient(config.Market.APIKey, opts...)
		headlineFetcher = news.NewService(newsClient, tickers, config.News.Limit, logger)
	}

	// A formatter provider that cannot be constructed is non-fatal: the
	// fallback formatter still produces a deliverable report.
	llmProvider, err := formatter.NewProvider(ctx, config, logger)
	if err != nil {
		if logger != nil {
			logger.Warn().Err(err).Msg("AI provider unavailable, reports will use fallback formatting")
		}
		llmProvider = nil
	}

	p := New(
		aggregator,
		headlineFetcher,
		formatter.New(llmProvider, logger),
		delivery.NewEmailSender(&config.Email, logger),
		delivery.NewWebhookPoster(config.Webhook.URL, logger),
		config.Email.SubjectPrefix,
		logger,
	)
	if llmProvider != nil {
		p.closer = llmProvider
	}
	return p, nil
}
