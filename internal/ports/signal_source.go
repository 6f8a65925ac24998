package ports

import (
	"context"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// SignalSource provides the raw candidates produced by strategy modules.
type SignalSource interface {
	// FetchSignals returns the current batch of signals. An empty batch is
	// not an error.
	FetchSignals(ctx context.Context) ([]domain.Signal, error)
}
