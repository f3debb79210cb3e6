package market

import (
	"fmt"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/eodhd"
)

// NewProvider builds a market-data provider from configuration.
func NewProvider(config *common.Config, logger arbor.ILogger) (Provider, error) {
	switch config.Market.Provider {
	case common.MarketProviderEODHD, "":
		opts := []eodhd.ClientOption{
			eodhd.WithLogger(logger),
		}
		if config.Market.RateLimit > 0 {
			opts = append(opts, eodhd.WithRateLimit(config.Market.RateLimit))
		}
		if config.Market.RequestTimeout > 0 {
			opts = append(opts, eodhd.WithHTTPClient(&http.Client{Timeout: config.Market.RequestTimeout}))
		}
		client := eodhd.NewClient(config.Market.APIKey, opts...)
		return NewEODHDProvider(client, logger), nil

	case common.MarketProviderAlpaca:
		return NewAlpacaProvider(config.Market.APIKey, config.Market.APISecret, "", logger), nil

	default:
		return nil, fmt.Errorf("unknown market provider: %s", config.Market.Provider)
	}
}
