// Package market provides quote snapshots from pluggable market-data providers.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/specto/internal/common"
)

// Bar is a single daily close observation.
type Bar struct {
	Date  time.Time
	Close float64
}

// Snapshot holds the latest price and the historical reference prices needed
// for percentage-change calculation. A zero reference price means the series
// did not cover that period; callers must treat the derived return as
// unavailable.
type Snapshot struct {
	Ticker       common.Ticker
	CurrentPrice float64
	PrevClose    float64
	MonthBase    float64 // first close on/after 30 days ago
	QuarterBase  float64 // first close on/after 90 days ago
	YearBase     float64 // first close on/after Jan 1
	AsOf         time.Time
}

// Provider retrieves a quote snapshot for a single ticker.
type Provider interface {
	// Snapshot returns the latest price and reference prices for the ticker,
	// or a DataUnavailableError if the provider cannot serve it.
	Snapshot(ctx context.Context, ticker common.Ticker) (*Snapshot, error)

	// Name identifies the provider in logs.
	Name() string
}

// DataUnavailableError indicates the provider could not return usable data
// for a single ticker. It is non-fatal: the caller skips the ticker and
// continues the run.
type DataUnavailableError struct {
	Symbol string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("market data unavailable for %s: %v", e.Symbol, e.Err)
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// snapshotFromSeries derives a Snapshot from an ascending daily close series.
// Reference prices follow the reporting convention: previous close for the
// day change, and the first close on/after each period boundary for MTD,
// three-month, and YTD changes. Missing periods leave the reference at zero.
func snapshotFromSeries(ticker common.Ticker, bars []Bar, now time.Time) (*Snapshot, error) {
	if len(bars) == 0 {
		return nil, &DataUnavailableError{Symbol: ticker.String(), Err: fmt.Errorf("empty price series")}
	}

	last := bars[len(bars)-1]

	snap := &Snapshot{
		Ticker:       ticker,
		CurrentPrice: last.Close,
		AsOf:         last.Date,
	}

	if len(bars) > 1 {
		snap.PrevClose = bars[len(bars)-2].Close
	} else {
		// Single observation: day change is flat rather than unavailable.
		snap.PrevClose = last.Close
	}

	monthAgo := now.AddDate(0, 0, -30)
	quarterAgo := now.AddDate(0, 0, -90)
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	snap.MonthBase = firstCloseOnOrAfter(bars, monthAgo)
	snap.QuarterBase = firstCloseOnOrAfter(bars, quarterAgo)
	snap.YearBase = firstCloseOnOrAfter(bars, yearStart)

	return snap, nil
}

// firstCloseOnOrAfter returns the close of the first bar dated on or after
// cutoff, or 0 when the series does not reach back that far.
func firstCloseOnOrAfter(bars []Bar, cutoff time.Time) float64 {
	cutoffDay := cutoff.Truncate(24 * time.Hour)
	for _, b := range bars {
		if !b.Date.Before(cutoffDay) {
			return b.Close
		}
	}
	return 0
}
