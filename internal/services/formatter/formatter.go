package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/specto/internal/services/news"
	"github.com/ternarybob/specto/internal/services/portfolio"
)

// ReportSource identifies which path produced a report.
type ReportSource string

const (
	// SourceModel means the hosted language model produced the report.
	SourceModel ReportSource = "model"
	// SourceFallback means the local template formatter produced the report.
	SourceFallback ReportSource = "fallback"
)

// ErrInvalidResponse wraps every model-response validation failure.
var ErrInvalidResponse = errors.New("invalid model response")

// Report is the delivery-ready output of a run.
type Report struct {
	SummaryText string
	HTMLBody    string
	ChatCard    json.RawMessage
	Source      ReportSource
}

// modelResponse is the JSON shape requested from the language model.
type modelResponse struct {
	SummaryText string          `json:"summary_text"`
	HTMLBody    string          `json:"html_body"`
	ChatCard    json.RawMessage `json:"chat_card"`
}

const systemInstruction = `You are a financial report writer. You respond with a single JSON object and nothing else: no markdown fences, no commentary. The JSON object has exactly three fields: "summary_text" (a 2-3 sentence plain-text executive summary), "html_body" (a complete standalone HTML email document with an inline-styled table of all ticker rows), and "chat_card" (a Microsoft Teams MessageCard JSON object with "@type": "MessageCard", "@context": "https://schema.org/extensions", "themeColor": "0078D4", a "summary" field, and the report content in "title" and "text").`

// Formatter produces the daily report, preferring the language model and
// falling back to the local template when the model output is unusable.
type Formatter struct {
	provider Provider
	logger   arbor.ILogger
}

// New creates a Formatter. provider may be nil, in which case every report
// comes from the fallback path.
func New(provider Provider, logger arbor.ILogger) *Formatter {
	return &Formatter{
		provider: provider,
		logger:   logger,
	}
}

// Format turns a portfolio summary and headlines into a delivery-ready
// report. It never fails: when the model is unavailable or its response is
// malformed, the local fallback formatter produces the report instead.
func (f *Formatter) Format(ctx context.Context, summary *portfolio.Summary, headlines []news.Headline) *Report {
	if f.provider == nil {
		return fallbackReport(summary, headlines)
	}

	text, err := f.provider.GenerateText(ctx, systemInstruction, buildPrompt(summary, headlines))
	if err != nil {
		if f.logger != nil {
			f.logger.Warn().Err(err).Msg("Formatter unavailable, using fallback report")
		}
		return fallbackReport(summary, headlines)
	}

	report, err := parseModelResponse(text)
	if err != nil {
		if f.logger != nil {
			f.logger.Warn().Err(err).Msg("Malformed model response, using fallback report")
		}
		return fallbackReport(summary, headlines)
	}

	if f.logger != nil {
		f.logger.Info().
			Str("provider", string(f.provider.GetProviderType())).
			Msg("Report formatted by model")
	}

	return report
}

// buildPrompt assembles the single bundled payload sent to the model.
func buildPrompt(summary *portfolio.Summary, headlines []news.Headline) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Daily stock report for %s.\n\n", summary.GeneratedAt.Format("Monday, 2 January 2006"))

	b.WriteString("Ticker rows (symbol, price, day, MTD, YTD, 3M):\n")
	for _, q := range summary.Quotes {
		fmt.Fprintf(&b, "- %s: $%.2f, day %s, MTD %s, YTD %s, 3M %s\n",
			q.Ticker.Code, q.CurrentPrice,
			q.Day.Format(), q.MTD.Format(), q.YTD.Format(), q.ThreeMonth.Format())
	}

	fmt.Fprintf(&b, "\nSummary statistics: %d gainers, %d losers, average day return %+.2f%%.\n",
		summary.GainersCount, summary.LosersCount, summary.AverageReturnPct)

	if len(summary.Failed) > 0 {
		fmt.Fprintf(&b, "Data unavailable for: %s.\n", strings.Join(summary.Failed, ", "))
	}

	if len(headlines) > 0 {
		b.WriteString("\nMarket headlines:\n")
		for _, h := range headlines {
			fmt.Fprintf(&b, "- %s\n", h.Title)
		}
	}

	b.WriteString("\nProduce the JSON report now.")

	return b.String()
}

// parseModelResponse validates the model output: it must be well-formed JSON
// with all three fields present and non-empty.
func parseModelResponse(text string) (*Report, error) {
	cleaned := stripCodeFences(text)

	var resp modelResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrInvalidResponse, err)
	}

	if strings.TrimSpace(resp.SummaryText) == "" {
		return nil, fmt.Errorf("%w: missing summary_text", ErrInvalidResponse)
	}
	if strings.TrimSpace(resp.HTMLBody) == "" {
		return nil, fmt.Errorf("%w: missing html_body", ErrInvalidResponse)
	}
	if len(resp.ChatCard) == 0 {
		return nil, fmt.Errorf("%w: missing chat_card", ErrInvalidResponse)
	}

	// chat_card must itself be a JSON object, not a string, scalar, or null
	// (unmarshalling the literal null succeeds and leaves the map nil)
	var card map[string]interface{}
	if err := json.Unmarshal(resp.ChatCard, &card); err != nil {
		return nil, fmt.Errorf("%w: chat_card is not a JSON object: %v", ErrInvalidResponse, err)
	}
	if card == nil {
		return nil, fmt.Errorf("%w: chat_card is null", ErrInvalidResponse)
	}

	return &Report{
		SummaryText: resp.SummaryText,
		HTMLBody:    resp.HTMLBody,
		ChatCard:    resp.ChatCard,
		Source:      SourceModel,
	}, nil
}

// stripCodeFences removes a surrounding markdown code fence, which models
// emit despite instructions to the contrary.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)

	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	// Drop the opening fence line (``` or ```json)
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	} else {
		return strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	// Drop the closing fence
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}

	return strings.TrimSpace(trimmed)
}
