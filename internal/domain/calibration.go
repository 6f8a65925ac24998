package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"
)

// CalibrationPoint maps a raw-probability breakpoint to the outcome rate
// observed historically for predictions near that breakpoint.
type CalibrationPoint struct {
	Breakpoint float64 `json:"breakpoint" yaml:"breakpoint"`
	Rate       float64 `json:"rate" yaml:"rate"`
	Samples    int     `json:"samples,omitempty" yaml:"samples,omitempty"`
}

// CalibrationTable is an ordered breakpoint table, strictly increasing in
// Breakpoint. An empty table means "no calibration" (identity).
type CalibrationTable struct {
	Points       []CalibrationPoint `json:"points"`
	Version      string             `json:"version,omitempty"`
	Source       string             `json:"source,omitempty"`
	TotalMarkets int                `json:"total_markets,omitempty"`
	LoadedAt     time.Time          `json:"loaded_at,omitempty"`
}

var ErrUnorderedBreakpoints = errors.New("calibration breakpoints must be strictly increasing")

// NewCalibrationTable sorts points by breakpoint and validates them.
func NewCalibrationTable(points []CalibrationPoint) (CalibrationTable, error) {
	sorted := make([]CalibrationPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Breakpoint < sorted[j].Breakpoint })

	t := CalibrationTable{Points: sorted}
	if err := t.Validate(); err != nil {
		return CalibrationTable{}, err
	}
	return t, nil
}

// TableFromPriceMap builds a table from the {"0.05": 0.0, ...} layout used
// by calibration.json files.
func TableFromPriceMap(m map[string]float64) (CalibrationTable, error) {
	points := make([]CalibrationPoint, 0, len(m))
	for k, v := range m {
		bp, err := strconv.ParseFloat(k, 64)
		if err != nil {
			return CalibrationTable{}, fmt.Errorf("domain.TableFromPriceMap: breakpoint %q: %w", k, err)
		}
		points = append(points, CalibrationPoint{Breakpoint: bp, Rate: v})
	}
	return NewCalibrationTable(points)
}

// Validate checks ordering and value ranges.
func (t CalibrationTable) Validate() error {
	for i, p := range t.Points {
		if math.IsNaN(p.Breakpoint) || math.IsNaN(p.Rate) || math.IsInf(p.Breakpoint, 0) || math.IsInf(p.Rate, 0) {
			return fmt.Errorf("calibration point %d: non-finite value", i)
		}
		if p.Rate < 0 || p.Rate > 1 {
			return fmt.Errorf("calibration point %d: rate %.4f outside [0,1]", i, p.Rate)
		}
		if i > 0 && p.Breakpoint <= t.Points[i-1].Breakpoint {
			return fmt.Errorf("calibration point %d: %w", i, ErrUnorderedBreakpoints)
		}
	}
	return nil
}

// IsEmpty reports whether the table carries no points.
func (t CalibrationTable) IsEmpty() bool {
	return len(t.Points) == 0
}

// Interpolate maps raw through the table. Values outside the breakpoint
// range clamp to the nearest endpoint rate; an empty table returns raw.
//
//	rate = rate_lo + (raw - bp_lo) / (bp_hi - bp_lo) × (rate_hi - rate_lo)
func (t CalibrationTable) Interpolate(raw float64) float64 {
	n := len(t.Points)
	if n == 0 || math.IsNaN(raw) {
		return raw
	}
	if raw <= t.Points[0].Breakpoint {
		return t.Points[0].Rate
	}
	if raw >= t.Points[n-1].Breakpoint {
		return t.Points[n-1].Rate
	}

	// first breakpoint strictly above raw; raw sits in [i-1, i)
	i := sort.Search(n, func(i int) bool { return t.Points[i].Breakpoint > raw })
	lo, hi := t.Points[i-1], t.Points[i]
	return lo.Rate + (raw-lo.Breakpoint)/(hi.Breakpoint-lo.Breakpoint)*(hi.Rate-lo.Rate)
}
