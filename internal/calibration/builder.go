package calibration

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// DefaultBinWidth groups raw probabilities into 5-point buckets.
const DefaultBinWidth = 0.05

// MinBinSamples is the minimum number of outcomes a bucket needs to be kept.
const MinBinSamples = 1

type bin struct {
	count   int
	wins    int
	sumProb float64
}

// Build rebuilds a calibration table from settled predictions.
//
// Predictions are bucketed by raw probability. Each non-empty bucket becomes
// one breakpoint at its mean raw probability with the observed win rate.
// Brier score and expected calibration error are measured on the raw
// probabilities, i.e. they describe how miscalibrated the model was.
func Build(settled []domain.Prediction, binWidth float64) (domain.CalibrationSnapshot, error) {
	if math.IsNaN(binWidth) || binWidth <= 0 || binWidth > 1 {
		return domain.CalibrationSnapshot{}, fmt.Errorf("calibration.Build: bin width %.4f outside (0,1]", binWidth)
	}
	nBins := int(math.Ceil(1/binWidth - 1e-9))
	bins := make([]bin, nBins)

	var total int
	var brier float64
	for _, p := range settled {
		if !p.IsSettled() || !domain.IsFinite(p.RawProbability) {
			continue
		}
		raw := math.Min(math.Max(p.RawProbability, 0), 1)
		i := int(raw / binWidth)
		if i >= nBins {
			i = nBins - 1
		}
		b := &bins[i]
		b.count++
		b.sumProb += raw

		actual := 0.0
		if p.Won() {
			actual = 1
			b.wins++
		}
		brier += (raw - actual) * (raw - actual)
		total++
	}

	snap := domain.CalibrationSnapshot{
		Strategy:  "all",
		BinWidth:  binWidth,
		CreatedAt: time.Now().UTC(),
	}
	if total == 0 {
		return snap, nil
	}

	var ece float64
	points := make([]domain.CalibrationPoint, 0, nBins)
	for _, b := range bins {
		if b.count < MinBinSamples {
			continue
		}
		mean := b.sumProb / float64(b.count)
		rate := float64(b.wins) / float64(b.count)
		ece += float64(b.count) / float64(total) * math.Abs(mean-rate)
		points = append(points, domain.CalibrationPoint{Breakpoint: mean, Rate: rate, Samples: b.count})
	}

	table, err := domain.NewCalibrationTable(points)
	if err != nil {
		return domain.CalibrationSnapshot{}, fmt.Errorf("calibration.Build: %w", err)
	}
	table.TotalMarkets = total
	table.Version = snap.CreatedAt.Format("20060102T150405Z")

	snap.Table = table
	snap.BrierScore = brier / float64(total)
	snap.ECE = ece
	return snap, nil
}
