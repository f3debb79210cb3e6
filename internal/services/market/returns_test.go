package market

import (
	"math"
	"testing"
)

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name      string
		current   float64
		reference float64
		wantPct   float64
		wantValid bool
	}{
		{"gain", 568.42, 565.59, 0.5003, true},
		{"loss", 95.0, 100.0, -5.0, true},
		{"flat", 100.0, 100.0, 0.0, true},
		{"zero reference", 100.0, 0.0, 0, false},
		{"negative reference", 100.0, -5.0, 0, false},
		{"nan reference", 100.0, math.NaN(), 0, false},
		{"inf current", math.Inf(1), 100.0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := PercentChange(tt.current, tt.reference)

			if r.Valid != tt.wantValid {
				t.Fatalf("Valid = %v, want %v", r.Valid, tt.wantValid)
			}
			if !tt.wantValid {
				return
			}
			if math.Abs(r.Pct-tt.wantPct) > 0.01 {
				t.Errorf("Pct = %v, want ~%v", r.Pct, tt.wantPct)
			}
			if math.IsNaN(r.Pct) || math.IsInf(r.Pct, 0) {
				t.Errorf("Pct must be finite, got %v", r.Pct)
			}
		})
	}
}

func TestReturn_Format(t *testing.T) {
	tests := []struct {
		name string
		r    Return
		want string
	}{
		{"positive one decimal", Return{Pct: 3.2, Valid: true}, "+3.2%"},
		{"rounds to one decimal", Return{Pct: 1.85, Valid: true}, "+1.9%"},
		{"negative", Return{Pct: -0.54, Valid: true}, "-0.5%"},
		{"zero", Return{Pct: 0, Valid: true}, "+0.0%"},
		{"invalid", Return{}, "N/A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Format(); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputeReturns(t *testing.T) {
	snap := &Snapshot{
		CurrentPrice: 110,
		PrevClose:    100,
		MonthBase:    105,
		QuarterBase:  0, // series did not reach back 90 days
		YearBase:     88,
	}

	r := ComputeReturns(snap)

	if !r.Day.Valid || math.Abs(r.Day.Pct-10.0) > 1e-9 {
		t.Errorf("Day = %+v, want valid 10.0", r.Day)
	}
	if !r.MTD.Valid || math.Abs(r.MTD.Pct-4.7619) > 0.001 {
		t.Errorf("MTD = %+v, want valid ~4.76", r.MTD)
	}
	if r.ThreeMonth.Valid {
		t.Errorf("ThreeMonth should be invalid with a zero reference, got %+v", r.ThreeMonth)
	}
	if r.ThreeMonth.Format() != "N/A" {
		t.Errorf("ThreeMonth.Format() = %q, want N/A", r.ThreeMonth.Format())
	}
	if !r.YTD.Valid || math.Abs(r.YTD.Pct-25.0) > 1e-9 {
		t.Errorf("YTD = %+v, want valid 25.0", r.YTD)
	}
}
