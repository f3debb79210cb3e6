package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/specto/internal/pipeline"
)

// runTimeout bounds a single reporting run end to end: market data for
// every ticker, the model call with retries, and both deliveries.
const runTimeout = 10 * time.Minute

// runOnce produces and delivers a single report, returning the process
// exit code. The run only fails hard when no ticker data could be fetched
// or when both delivery channels rejected the report.
func runOnce() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	p, err := pipeline.NewFromConfig(ctx, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to assemble report pipeline")
		return 1
	}
	defer p.Close()

	result, err := p.Run(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Report run failed")
		return 1
	}

	logger.Info().
		Str("run_id", result.RunID).
		Int("quotes", len(result.Summary.Quotes)).
		Int("failed_tickers", len(result.Summary.Failed)).
		Str("report_source", string(result.ReportSource)).
		Bool("email_ok", result.EmailErr == nil).
		Bool("webhook_ok", result.WebhookErr == nil).
		Msg("Report delivered")

	return 0
}
