package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/services/portfolio"
	"github.com/ternarybob/specto/internal/services/scheduler"
)

// quoteView is the JSON shape of one ticker row.
type quoteView struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	Day        string  `json:"day"`
	MTD        string  `json:"mtd"`
	YTD        string  `json:"ytd"`
	ThreeMonth string  `json:"three_month"`
	AsOf       string  `json:"as_of,omitempty"`
}

// portfolioView is the JSON shape of the aggregated summary.
type portfolioView struct {
	GeneratedAt      time.Time   `json:"generated_at"`
	Quotes           []quoteView `json:"quotes"`
	Failed           []string    `json:"failed,omitempty"`
	GainersCount     int         `json:"gainers_count"`
	LosersCount      int         `json:"losers_count"`
	AverageReturnPct float64     `json:"average_return_pct"`
}

func toPortfolioView(summary *portfolio.Summary) portfolioView {
	view := portfolioView{
		GeneratedAt:      summary.GeneratedAt,
		Quotes:           make([]quoteView, 0, len(summary.Quotes)),
		Failed:           summary.Failed,
		GainersCount:     summary.GainersCount,
		LosersCount:      summary.LosersCount,
		AverageReturnPct: summary.AverageReturnPct,
	}
	for _, q := range summary.Quotes {
		qv := quoteView{
			Symbol:     q.Ticker.Code,
			Price:      q.CurrentPrice,
			Day:        q.Day.Format(),
			MTD:        q.MTD.Format(),
			YTD:        q.YTD.Format(),
			ThreeMonth: q.ThreeMonth.Format(),
		}
		if !q.AsOf.IsZero() {
			qv.AsOf = q.AsOf.Format("2006-01-02")
		}
		view.Quotes = append(view.Quotes, qv)
	}
	return view
}

// handlePortfolio serves the aggregated summary as JSON.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	summary, err := s.cache.Get(r.Context())
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}

	s.writeJSON(w, http.StatusOK, toPortfolioView(summary))
}

// statusView is the JSON shape of the status endpoint.
type statusView struct {
	Status          string            `json:"status"`
	Version         string            `json:"version"`
	CacheAgeSeconds float64           `json:"cache_age_seconds"`
	Scheduler       *scheduler.Status `json:"scheduler,omitempty"`
}

// handleStatus serves process health and scheduler state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view := statusView{
		Status:          "ok",
		Version:         common.GetVersion(),
		CacheAgeSeconds: s.cache.Age().Seconds(),
	}
	if s.scheduler != nil {
		status := s.scheduler.Status()
		view.Scheduler = &status
	}

	s.writeJSON(w, http.StatusOK, view)
}

// handleRefresh drops the cached summary so the next read refetches.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.cache.Invalidate()
	w.WriteHeader(http.StatusNoContent)
}

// handleTriggerReport kicks off an immediate report run.
func (s *Server) handleTriggerReport(w http.ResponseWriter, r *http.Request) {
	if s.scheduler == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "no report scheduler running; use the run command",
		})
		return
	}

	if err := s.scheduler.TriggerNow(); err != nil {
		s.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "report run started"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && s.logger != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if s.logger != nil {
		s.logger.Warn().Err(err).Int("status", status).Msg("Request failed")
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
