package storage

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// Snapshot deriva el estado de la cuenta de las predicciones aceptadas:
//
//	balance        = capital inicial + PnL liquidado − coste abierto
//	deployed_today = coste de las aceptadas creadas hoy (UTC)
//	open_positions = aceptadas sin liquidar
func (s *SQLiteStorage) Snapshot(ctx context.Context) (domain.AccountState, domain.PortfolioState, error) {
	var settledPnL float64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(pnl), 0.0) FROM predictions WHERE outcome IS NOT NULL`,
	).Scan(&settledPnL); err != nil {
		return domain.AccountState{}, domain.PortfolioState{}, fmt.Errorf("storage.Snapshot: settled pnl: %w", err)
	}

	today := formatTime(startOfDay(s.now()))
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market, side, recommended_contracts, recommended_cost, outcome IS NULL, created_at >= ?
		FROM predictions
		WHERE recommended_contracts > 0 AND (outcome IS NULL OR created_at >= ?)
		ORDER BY created_at ASC
	`, today, today)
	if err != nil {
		return domain.AccountState{}, domain.PortfolioState{}, fmt.Errorf("storage.Snapshot: query: %w", err)
	}
	defer rows.Close()

	openCost, deployed := decimal.Zero, decimal.Zero
	var pf domain.PortfolioState
	for rows.Next() {
		var id, market, side, costStr string
		var contracts int
		var open, createdToday bool
		if err := rows.Scan(&id, &market, &side, &contracts, &costStr, &open, &createdToday); err != nil {
			return domain.AccountState{}, domain.PortfolioState{}, fmt.Errorf("storage.Snapshot: scan: %w", err)
		}
		cost, err := decimal.NewFromString(costStr)
		if err != nil {
			return domain.AccountState{}, domain.PortfolioState{}, fmt.Errorf("storage.Snapshot: cost of %s: %w", id, err)
		}
		if createdToday {
			deployed = deployed.Add(cost)
		}
		if open {
			openCost = openCost.Add(cost)
			pf.Positions = append(pf.Positions, domain.Position{
				PredictionID: id,
				Market:       market,
				Side:         domain.Side(side),
				Contracts:    contracts,
				Cost:         cost.InexactFloat64(),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return domain.AccountState{}, domain.PortfolioState{}, fmt.Errorf("storage.Snapshot: rows: %w", err)
	}

	balance := decimal.NewFromFloat(s.startingCapital).
		Add(decimal.NewFromFloat(settledPnL)).
		Sub(openCost)

	acct := domain.AccountState{
		Balance:       balance.InexactFloat64(),
		DeployedToday: deployed.InexactFloat64(),
		OpenPositions: len(pf.Positions),
	}
	return acct, pf, nil
}
