package domain

import "time"

// CalibrationSnapshot is one rebuilt calibration table together with the
// quality metrics measured on the predictions that produced it.
type CalibrationSnapshot struct {
	ID         int64            `json:"id"`
	Strategy   string           `json:"strategy"`
	BinWidth   float64          `json:"bin_width"`
	Table      CalibrationTable `json:"table"`
	BrierScore float64          `json:"brier_score"`
	ECE        float64          `json:"ece"`
	CreatedAt  time.Time        `json:"created_at"`
}
