package ports

import (
	"context"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// Notifier presents a batch of decisions to the user.
type Notifier interface {
	// NotifyDecisions receives decisions already ranked by confidence.
	// The console implementation prints a formatted table.
	NotifyDecisions(ctx context.Context, decisions []domain.Decision) error
}
