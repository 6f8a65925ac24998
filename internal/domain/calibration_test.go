package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable(t *testing.T) CalibrationTable {
	t.Helper()
	tbl, err := TableFromPriceMap(map[string]float64{
		"0.10": 0.05,
		"0.50": 0.50,
		"0.60": 0.62,
		"0.90": 0.93,
	})
	require.NoError(t, err)
	return tbl
}

func TestInterpolate_EmptyTableIsIdentity(t *testing.T) {
	assert.Equal(t, 0.62, CalibrationTable{}.Interpolate(0.62))
}

func TestInterpolate_ClampsBelowAndAbove(t *testing.T) {
	tbl := sampleTable(t)
	assert.Equal(t, 0.05, tbl.Interpolate(0.01))
	assert.Equal(t, 0.05, tbl.Interpolate(0.10))
	assert.Equal(t, 0.93, tbl.Interpolate(0.90))
	assert.Equal(t, 0.93, tbl.Interpolate(0.99))
}

func TestInterpolate_Linear(t *testing.T) {
	tbl := sampleTable(t)
	// 0.50 + (0.55-0.50)/(0.60-0.50) × (0.62-0.50) = 0.56
	assert.InDelta(t, 0.56, tbl.Interpolate(0.55), 1e-12)
	// exact breakpoint inside the range returns its rate
	assert.InDelta(t, 0.62, tbl.Interpolate(0.60), 1e-12)
}

func TestInterpolate_Monotonic(t *testing.T) {
	tbl := sampleTable(t)
	prev := tbl.Interpolate(0.10)
	for r := 0.101; r <= 0.90; r += 0.007 {
		cur := tbl.Interpolate(r)
		assert.GreaterOrEqual(t, cur, prev, "raw=%.3f", r)
		prev = cur
	}
}

func TestInterpolate_NaNPassesThrough(t *testing.T) {
	assert.True(t, math.IsNaN(sampleTable(t).Interpolate(math.NaN())))
}

func TestNewCalibrationTable_SortsAndRejectsDuplicates(t *testing.T) {
	tbl, err := NewCalibrationTable([]CalibrationPoint{{0.9, 0.9, 0}, {0.1, 0.1, 0}})
	require.NoError(t, err)
	assert.Equal(t, 0.1, tbl.Points[0].Breakpoint)

	_, err = NewCalibrationTable([]CalibrationPoint{{0.5, 0.5, 0}, {0.5, 0.6, 0}})
	assert.ErrorIs(t, err, ErrUnorderedBreakpoints)
}

func TestValidate_RateOutOfRange(t *testing.T) {
	_, err := NewCalibrationTable([]CalibrationPoint{{0.5, 1.5, 0}})
	assert.Error(t, err)
}

func TestTableFromPriceMap_BadKey(t *testing.T) {
	_, err := TableFromPriceMap(map[string]float64{"abc": 0.1})
	assert.Error(t, err)
}
