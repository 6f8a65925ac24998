package ports

import (
	"context"
	"errors"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// ErrNoCalibration signals that no calibration table exists at the source.
// Callers fall back to identity calibration.
var ErrNoCalibration = errors.New("no calibration table available")

// CalibrationSource loads the versioned breakpoint table.
type CalibrationSource interface {
	// LoadCalibration returns the table or ErrNoCalibration when the source
	// has none. Any other error means the source exists but is unreadable.
	LoadCalibration(ctx context.Context) (domain.CalibrationTable, error)
}

// CalibrationStore keeps the history of rebuilt calibration snapshots.
type CalibrationStore interface {
	SaveCalibrationSnapshot(ctx context.Context, snap domain.CalibrationSnapshot) (int64, error)

	// LatestCalibrationSnapshot returns ErrNoCalibration when none was saved.
	LatestCalibrationSnapshot(ctx context.Context) (domain.CalibrationSnapshot, error)
}
