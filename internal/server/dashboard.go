package server

import (
	"html/template"
	"net/http"

	"github.com/ternarybob/specto/internal/services/portfolio"
)

// dashboardTemplate renders the read-only portfolio view. The page reloads
// itself on the cache TTL so the browser tracks the latest snapshot.
var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<meta http-equiv="refresh" content="300">
	<title>Specto &mdash; Portfolio Dashboard</title>
	<style>
		body { font-family: -apple-system, Arial, sans-serif; margin: 2rem; color: #222; }
		h1 { font-size: 1.4rem; }
		table { border-collapse: collapse; margin-top: 1rem; }
		th, td { padding: 0.5rem 1rem; border-bottom: 1px solid #ddd; text-align: right; }
		th { background: #0078D4; color: #fff; }
		td:first-child, th:first-child { text-align: left; }
		.up { color: #107C10; }
		.down { color: #D13438; }
		.na { color: #888; }
		.meta { color: #666; font-size: 0.85rem; margin-top: 1rem; }
	</style>
</head>
<body>
	<h1>Portfolio Dashboard</h1>
	<p>{{.Gainers}} gainers &middot; {{.Losers}} losers &middot; average day return {{printf "%+.2f" .AverageReturnPct}}%</p>
	<table>
		<tr><th>Symbol</th><th>Price</th><th>Day</th><th>MTD</th><th>YTD</th><th>3M</th></tr>
		{{range .Rows}}<tr>
			<td>{{.Symbol}}</td>
			<td>${{printf "%.2f" .Price}}</td>
			<td class="{{.DayClass}}">{{.Day}}</td>
			<td>{{.MTD}}</td>
			<td>{{.YTD}}</td>
			<td>{{.ThreeMonth}}</td>
		</tr>
		{{end}}
	</table>
	{{if .Failed}}<p class="meta">No data for: {{range $i, $f := .Failed}}{{if $i}}, {{end}}{{$f}}{{end}}</p>{{end}}
	<p class="meta">Generated {{.GeneratedAt}} &middot; refreshes every 5 minutes</p>
</body>
</html>`))

type dashboardRow struct {
	Symbol     string
	Price      float64
	Day        string
	DayClass   string
	MTD        string
	YTD        string
	ThreeMonth string
}

type dashboardData struct {
	Rows             []dashboardRow
	Failed           []string
	Gainers          int
	Losers           int
	AverageReturnPct float64
	GeneratedAt      string
}

// handleDashboard renders the HTML portfolio view.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := s.cache.Get(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	data := dashboardData{
		Failed:           summary.Failed,
		Gainers:          summary.GainersCount,
		Losers:           summary.LosersCount,
		AverageReturnPct: summary.AverageReturnPct,
		GeneratedAt:      summary.GeneratedAt.Format("2 Jan 2006 15:04 MST"),
	}
	for _, q := range summary.Quotes {
		data.Rows = append(data.Rows, dashboardRow{
			Symbol:     q.Ticker.Code,
			Price:      q.CurrentPrice,
			Day:        q.Day.Format(),
			DayClass:   dayClass(q),
			MTD:        q.MTD.Format(),
			YTD:        q.YTD.Format(),
			ThreeMonth: q.ThreeMonth.Format(),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, data); err != nil && s.logger != nil {
		s.logger.Warn().Err(err).Msg("Failed to render dashboard")
	}
}

func dayClass(q portfolio.TickerQuote) string {
	if !q.Day.Valid {
		return "na"
	}
	switch {
	case q.Day.Pct > 0:
		return "up"
	case q.Day.Pct < 0:
		return "down"
	}
	return ""
}
