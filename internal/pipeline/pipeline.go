// Package pipeline orchestrates one reporting run: aggregate market data,
// fetch headlines, format the report, and deliver it over both channels.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/services/formatter"
	"github.com/ternarybob/specto/internal/services/news"
	"github.com/ternarybob/specto/internal/services/portfolio"
)

// Aggregator produces the run's portfolio summary.
type Aggregator interface {
	Aggregate(ctx context.Context) (*portfolio.Summary, error)
}

// HeadlineFetcher returns market headlines, empty on failure.
type HeadlineFetcher interface {
	Headlines(ctx context.Context) []news.Headline
}

// ReportFormatter turns the summary into a delivery-ready report.
type ReportFormatter interface {
	Format(ctx context.Context, summary *portfolio.Summary, headlines []news.Headline) *formatter.Report
}

// EmailSender delivers the HTML report.
type EmailSender interface {
	Send(ctx context.Context, subject, htmlBody string) error
}

// WebhookPoster delivers the chat card.
type WebhookPoster interface {
	Post(ctx context.Context, card json.RawMessage) error
}

// Pipeline is the sequential fetch -> format -> deliver run.
type Pipeline struct {
	aggregator    Aggregator
	headlines     HeadlineFetcher
	formatter     ReportFormatter
	email         EmailSender
	webhook       WebhookPoster
	subjectPrefix string
	logger        arbor.ILogger
	closer        interface{ Close() error }
}

// Aggregator returns the pipeline's portfolio source, for callers that serve
// the same data outside a run (the dashboard cache).
func (p *Pipeline) Aggregator() Aggregator {
	return p.aggregator
}

// Close releases provider resources held by the pipeline.
func (p *Pipeline) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

// New assembles a Pipeline from its stages. headlines may be nil when news
// is disabled.
func New(aggregator Aggregator, headlines HeadlineFetcher, reportFormatter ReportFormatter,
	email EmailSender, webhook WebhookPoster, subjectPrefix string, logger arbor.ILogger) *Pipeline {
	if subjectPrefix == "" {
		subjectPrefix = "Daily Stock Report"
	}
	return &Pipeline{
		aggregator:    aggregator,
		headlines:     headlines,
		formatter:     reportFormatter,
		email:         email,
		webhook:       webhook,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}
}

// Result captures the outcome of a run for callers that render status.
type Result struct {
	RunID        string
	Summary      *portfolio.Summary
	ReportSource formatter.ReportSource
	EmailErr     error
	WebhookErr   error
}

// Run executes one reporting run. Stages are sequential blocking calls:
// data, news, format, email, webhook. A run succeeds when any ticker data
// exists and at least one delivery channel accepts the report; partial
// failures are logged and degrade the output instead of aborting.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()[:8]
	log := p.logger
	if log != nil {
		log = log.WithCorrelationId(runID)
		log.Info().Msg("Starting report run")
	}

	summary, err := p.aggregator.Aggregate(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	var headlines []news.Headline
	if p.headlines != nil {
		headlines = p.headlines.Headlines(ctx)
	}

	report := p.formatter.Format(ctx, summary, headlines)
	if log != nil {
		log.Info().
			Str("source", string(report.Source)).
			Int("quotes", len(summary.Quotes)).
			Int("headlines", len(headlines)).
			Msg("Report formatted")
	}

	result := &Result{
		RunID:        runID,
		Summary:      summary,
		ReportSource: report.Source,
	}

	subject := fmt.Sprintf("%s - %s", p.subjectPrefix, summary.GeneratedAt.Format("2 Jan 2006"))

	// Channels are independent: attempt both regardless of the other's outcome.
	result.EmailErr = p.email.Send(ctx, subject, report.HTMLBody)
	if result.EmailErr != nil && log != nil {
		log.Warn().Err(result.EmailErr).Msg("Email delivery failed")
	}

	result.WebhookErr = p.webhook.Post(ctx, report.ChatCard)
	if result.WebhookErr != nil && log != nil {
		log.Warn().Err(result.WebhookErr).Msg("Webhook delivery failed")
	}

	if result.EmailErr != nil && result.WebhookErr != nil {
		return result, fmt.Errorf("all delivery channels failed: email: %v; webhook: %v",
			result.EmailErr, result.WebhookErr)
	}

	if log != nil {
		log.Info().
			Bool("email_ok", result.EmailErr == nil).
			Bool("webhook_ok", result.WebhookErr == nil).
			Msg("Report run complete")
	}

	return result, nil
}
