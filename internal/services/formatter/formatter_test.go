package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/services/market"
	"github.com/ternarybob/specto/internal/services/news"
	"github.com/ternarybob/specto/internal/services/portfolio"
)

// stubLLM returns a canned response or error.
type stubLLM struct {
	text string
	err  error
}

func (s *stubLLM) GenerateText(_ context.Context, _, _ string) (string, error) {
	return s.text, s.err
}

func (s *stubLLM) GetProviderType() ProviderType { return "stub" }
func (s *stubLLM) Close() error                  { return nil }

func testSummary() *portfolio.Summary {
	return &portfolio.Summary{
		Quotes: []portfolio.TickerQuote{
			{
				Ticker:       common.Ticker{Exchange: "US", Code: "SPY"},
				CurrentPrice: 568.42,
				Day:          market.Return{Pct: 0.5, Valid: true},
				MTD:          market.Return{Pct: 2.1, Valid: true},
				YTD:          market.Return{Pct: 12.4, Valid: true},
				ThreeMonth:   market.Return{Pct: 5.8, Valid: true},
			},
			{
				Ticker:       common.Ticker{Exchange: "US", Code: "NVDA"},
				CurrentPrice: 142.18,
				Day:          market.Return{Pct: 3.2, Valid: true},
				MTD:          market.Return{},
				YTD:          market.Return{Pct: 31.0, Valid: true},
				ThreeMonth:   market.Return{Pct: 18.2, Valid: true},
			},
		},
		GainersCount:     2,
		AverageReturnPct: 1.85,
		GeneratedAt:      time.Date(2025, 8, 29, 17, 0, 0, 0, time.UTC),
	}
}

const goodResponse = `{"summary_text":"Both tickers gained today.","html_body":"<html><body>report</body></html>","chat_card":{"@type":"MessageCard","text":"report"}}`

func TestFormat_ModelResponse(t *testing.T) {
	f := New(&stubLLM{text: goodResponse}, nil)

	report := f.Format(context.Background(), testSummary(), nil)

	assert.Equal(t, SourceModel, report.Source)
	assert.Equal(t, "Both tickers gained today.", report.SummaryText)
	assert.Contains(t, report.HTMLBody, "report")

	var card map[string]interface{}
	require.NoError(t, json.Unmarshal(report.ChatCard, &card))
	assert.Equal(t, "MessageCard", card["@type"])
}

func TestFormat_FencedModelResponse(t *testing.T) {
	f := New(&stubLLM{text: "```json\n" + goodResponse + "\n```"}, nil)

	report := f.Format(context.Background(), testSummary(), nil)
	assert.Equal(t, SourceModel, report.Source)
}

func TestFormat_MalformedResponseFallsBack(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "Sure! Here is your report: SPY went up."},
		{"truncated json", `{"summary_text":"partial`},
		{"missing html_body", `{"summary_text":"x","chat_card":{"@type":"MessageCard"}}`},
		{"empty summary", `{"summary_text":"  ","html_body":"<p>x</p>","chat_card":{}}`},
		{"chat_card is a string", `{"summary_text":"x","html_body":"<p>x</p>","chat_card":"not an object"}`},
		{"chat_card is null", `{"summary_text":"x","html_body":"<p>x</p>","chat_card":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(&stubLLM{text: tt.text}, nil)
			report := f.Format(context.Background(), testSummary(), nil)

			assert.Equal(t, SourceFallback, report.Source)
			assert.NotEmpty(t, report.HTMLBody, "fallback must produce a non-empty HTML body")
			assert.NotEmpty(t, report.SummaryText)
			assert.NotEmpty(t, report.ChatCard)

			var card map[string]interface{}
			require.NoError(t, json.Unmarshal(report.ChatCard, &card))
			require.NotNil(t, card, "delivered chat card must be a JSON object")
		})
	}
}

func TestFormat_ProviderErrorFallsBack(t *testing.T) {
	f := New(&stubLLM{err: errors.New("model overloaded")}, nil)

	report := f.Format(context.Background(), testSummary(), nil)
	assert.Equal(t, SourceFallback, report.Source)
	assert.NotEmpty(t, report.HTMLBody)
}

func TestFormat_NilProviderFallsBack(t *testing.T) {
	f := New(nil, nil)

	report := f.Format(context.Background(), testSummary(), nil)
	assert.Equal(t, SourceFallback, report.Source)
}

func TestFallbackReport_Content(t *testing.T) {
	summary := testSummary()
	summary.Failed = []string{"US:GONE"}
	headlines := []news.Headline{{Title: "Markets rally"}}

	report := fallbackReport(summary, headlines)

	// Both symbols and their formatted percentages appear in the HTML
	assert.Contains(t, report.HTMLBody, "SPY")
	assert.Contains(t, report.HTMLBody, "NVDA")
	assert.Contains(t, report.HTMLBody, "+0.5%")
	assert.Contains(t, report.HTMLBody, "+3.2%")
	assert.Contains(t, report.HTMLBody, "N/A")
	assert.Contains(t, report.HTMLBody, "US:GONE")
	assert.Contains(t, report.HTMLBody, "Markets rally")

	assert.Contains(t, report.SummaryText, "2 gainers")
	assert.Contains(t, report.SummaryText, "+1.85%")

	var card messageCard
	require.NoError(t, json.Unmarshal(report.ChatCard, &card))
	assert.Equal(t, "MessageCard", card.Type)
	assert.Equal(t, "0078D4", card.ThemeColor)
	assert.Contains(t, card.Text, "SPY")
}

func TestBuildPrompt(t *testing.T) {
	summary := testSummary()
	summary.Failed = []string{"US:GONE"}

	prompt := buildPrompt(summary, []news.Headline{{Title: "Markets rally"}})

	assert.Contains(t, prompt, "SPY: $568.42")
	assert.Contains(t, prompt, "day +0.5%")
	assert.Contains(t, prompt, "MTD N/A")
	assert.Contains(t, prompt, "2 gainers, 0 losers")
	assert.Contains(t, prompt, "average day return +1.85%")
	assert.Contains(t, prompt, "US:GONE")
	assert.Contains(t, prompt, "Markets rally")
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripCodeFences(tt.input))
		})
	}
}
