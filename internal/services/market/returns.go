package market

import (
	"fmt"
	"math"
)

// Return is a percentage change that may be unavailable. An invalid Return
// renders as "N/A" and is excluded from summary statistics.
type Return struct {
	Pct   float64
	Valid bool
}

// PercentChange computes (current - reference) / reference * 100.
// It returns an invalid Return when the reference price is zero, negative,
// or not a finite number, so callers never see Inf or NaN.
func PercentChange(current, reference float64) Return {
	if reference <= 0 || math.IsNaN(reference) || math.IsInf(reference, 0) ||
		math.IsNaN(current) || math.IsInf(current, 0) {
		return Return{}
	}
	return Return{
		Pct:   (current - reference) / reference * 100,
		Valid: true,
	}
}

// Format renders the return with a sign and one decimal place, or "N/A"
// when the return is unavailable.
func (r Return) Format() string {
	if !r.Valid {
		return "N/A"
	}
	return fmt.Sprintf("%+.1f%%", r.Pct)
}

// Returns bundles the four period changes derived from a Snapshot.
type Returns struct {
	Day        Return
	MTD        Return
	YTD        Return
	ThreeMonth Return
}

// ComputeReturns derives the four period returns from a snapshot's
// reference prices.
func ComputeReturns(snap *Snapshot) Returns {
	return Returns{
		Day:        PercentChange(snap.CurrentPrice, snap.PrevClose),
		MTD:        PercentChange(snap.CurrentPrice, snap.MonthBase),
		YTD:        PercentChange(snap.CurrentPrice, snap.YearBase),
		ThreeMonth: PercentChange(snap.CurrentPrice, snap.QuarterBase),
	}
}
