package ports

import (
	"time"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// Recorder receives decision telemetry. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveDecision(d domain.Decision, elapsed time.Duration)
	ObserveCalibrationLoad(source string, err error)
	ObserveBatch(signals, accepted int, elapsed time.Duration)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) ObserveDecision(domain.Decision, time.Duration) {}
func (NopRecorder) ObserveCalibrationLoad(string, error)           {}
func (NopRecorder) ObserveBatch(int, int, time.Duration)           {}
