package formatter

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/ternarybob/specto/internal/services/news"
	"github.com/ternarybob/specto/internal/services/portfolio"
)

// fallbackHTML is the locally-rendered email body used when the model path
// is unavailable. Styling is inline for email client compatibility.
var fallbackHTML = template.Must(template.New("fallback").Parse(`<html>
<body style="font-family: Arial, sans-serif; color: #333;">
	<h2>Daily Stock Report &mdash; {{.Date}}</h2>
	<p>{{.Summary}}</p>
	<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
		<tr style="background-color: #0078D4; color: #fff;">
			<th>Symbol</th><th>Price</th><th>Day</th><th>MTD</th><th>YTD</th><th>3M</th>
		</tr>
		{{range .Rows}}<tr>
			<td>{{.Symbol}}</td>
			<td>${{.Price}}</td>
			<td style="color: {{.DayColor}};">{{.Day}}</td>
			<td>{{.MTD}}</td>
			<td>{{.YTD}}</td>
			<td>{{.ThreeMonth}}</td>
		</tr>
		{{end}}
	</table>
	{{if .Failed}}<p style="color: #888;">No data for: {{.Failed}}</p>{{end}}
	{{if .Headlines}}<h3>Headlines</h3><ul>{{range .Headlines}}<li>{{.}}</li>{{end}}</ul>{{end}}
</body>
</html>`))

type fallbackRow struct {
	Symbol     string
	Price      string
	Day        string
	DayColor   string
	MTD        string
	YTD        string
	ThreeMonth string
}

type fallbackData struct {
	Date      string
	Summary   string
	Rows      []fallbackRow
	Failed    string
	Headlines []string
}

// messageCard is the Microsoft Teams connector card payload.
type messageCard struct {
	Type       string `json:"@type"`
	Context    string `json:"@context"`
	ThemeColor string `json:"themeColor"`
	Summary    string `json:"summary"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

// fallbackReport renders the report locally. It is the guaranteed path:
// delivery is never blocked by the model step.
func fallbackReport(summary *portfolio.Summary, headlines []news.Headline) *Report {
	date := summary.GeneratedAt.Format("Monday, 2 January 2006")

	summaryText := fmt.Sprintf("%d of %d tickers reported: %d gainers, %d losers, average day return %+.2f%%.",
		len(summary.Quotes), len(summary.Quotes)+len(summary.Failed),
		summary.GainersCount, summary.LosersCount, summary.AverageReturnPct)

	data := fallbackData{
		Date:    date,
		Summary: summaryText,
		Failed:  strings.Join(summary.Failed, ", "),
	}

	var cardLines []string
	for _, q := range summary.Quotes {
		dayColor := "#333"
		if q.Day.Valid {
			if q.Day.Pct > 0 {
				dayColor = "green"
			} else if q.Day.Pct < 0 {
				dayColor = "red"
			}
		}
		data.Rows = append(data.Rows, fallbackRow{
			Symbol:     q.Ticker.Code,
			Price:      fmt.Sprintf("%.2f", q.CurrentPrice),
			Day:        q.Day.Format(),
			DayColor:   dayColor,
			MTD:        q.MTD.Format(),
			YTD:        q.YTD.Format(),
			ThreeMonth: q.ThreeMonth.Format(),
		})
		cardLines = append(cardLines, fmt.Sprintf("**%s** $%.2f (%s day)", q.Ticker.Code, q.CurrentPrice, q.Day.Format()))
	}
	for _, h := range headlines {
		data.Headlines = append(data.Headlines, h.Title)
	}

	var html strings.Builder
	if err := fallbackHTML.Execute(&html, data); err != nil {
		// The template is static and the data is plain values; execution
		// cannot fail in practice, but deliver something either way.
		html.Reset()
		html.WriteString("<html><body><p>" + template.HTMLEscapeString(summaryText) + "</p></body></html>")
	}

	card := messageCard{
		Type:       "MessageCard",
		Context:    "https://schema.org/extensions",
		ThemeColor: "0078D4",
		Summary:    "Daily Stock Report",
		Title:      "Daily Stock Report - " + date,
		Text:       summaryText + "\n\n" + strings.Join(cardLines, "\n\n"),
	}
	cardJSON, err := json.Marshal(card)
	if err != nil {
		cardJSON = []byte(`{"@type":"MessageCard","text":"daily stock report"}`)
	}

	return &Report{
		SummaryText: summaryText,
		HTMLBody:    html.String(),
		ChatCard:    cardJSON,
		Source:      SourceFallback,
	}
}
