package ports

import (
	"context"
	"errors"
	"time"

	"github.com/alejandrodnm/predictor/internal/domain"
)

var (
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrAlreadySettled     = errors.New("prediction already settled")
	ErrNotAccepted        = errors.New("prediction was rejected, nothing to settle")
)

// PredictionStore persists scored predictions and their settlement.
type PredictionStore interface {
	// SavePrediction inserts or replaces a prediction by ID.
	SavePrediction(ctx context.Context, p domain.Prediction) error

	// SettlePrediction records the outcome and PnL of an accepted prediction.
	// Returns ErrPredictionNotFound, ErrAlreadySettled or ErrNotAccepted.
	SettlePrediction(ctx context.Context, id string, outcome domain.Outcome, pnl float64, at time.Time) error

	// PendingPredictions returns accepted predictions that are not settled yet.
	PendingPredictions(ctx context.Context) ([]domain.Prediction, error)

	// RecentPredictions returns the latest predictions, newest first.
	// An empty strategy matches all.
	RecentPredictions(ctx context.Context, limit int, strategy string) ([]domain.Prediction, error)

	// SettledPredictions returns settled predictions created at or after since.
	SettledPredictions(ctx context.Context, since time.Time) ([]domain.Prediction, error)

	PerformanceSummary(ctx context.Context, since time.Time) (domain.Performance, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
