package ports

import (
	"context"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// AccountReader supplies the account and portfolio snapshots the sizing
// engine evaluates against.
type AccountReader interface {
	Snapshot(ctx context.Context) (domain.AccountState, domain.PortfolioState, error)
}
