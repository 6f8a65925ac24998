package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

const predictionColumns = `id, strategy, market, title, side, market_price, raw_probability,
	our_probability, edge, confidence_score, factors, kelly_fraction, cost_per_contract,
	recommended_contracts, recommended_cost, rejected_by, reject_reason, expiry,
	created_at, outcome, pnl, settled_at`

// SavePrediction hace upsert de una predicción por id. Outcome y settlement
// se conservan si ya existían.
func (s *SQLiteStorage) SavePrediction(ctx context.Context, p domain.Prediction) error {
	factors, err := json.Marshal(p.Factors)
	if err != nil {
		return fmt.Errorf("storage.SavePrediction: encode factors: %w", err)
	}
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO predictions (`+predictionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			strategy              = excluded.strategy,
			market                = excluded.market,
			title                 = excluded.title,
			side                  = excluded.side,
			market_price          = excluded.market_price,
			raw_probability       = excluded.raw_probability,
			our_probability       = excluded.our_probability,
			edge                  = excluded.edge,
			confidence_score      = excluded.confidence_score,
			factors               = excluded.factors,
			kelly_fraction        = excluded.kelly_fraction,
			cost_per_contract     = excluded.cost_per_contract,
			recommended_contracts = excluded.recommended_contracts,
			recommended_cost      = excluded.recommended_cost,
			rejected_by           = excluded.rejected_by,
			reject_reason         = excluded.reject_reason,
			expiry                = excluded.expiry
	`,
		p.ID, p.Strategy, p.Market, p.Title, string(p.Side),
		p.MarketPrice, p.RawProbability, p.OurProbability, p.Edge, p.ConfidenceScore,
		string(factors), p.KellyFraction, p.CostPerContract.String(),
		p.RecommendedContracts, p.RecommendedCost.String(),
		string(p.RejectedBy), p.RejectReason, nullTimeVal(p.Expiry),
		formatTime(createdAt), outcomeValue(p.Outcome), p.PnL, nullTime(p.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("storage.SavePrediction: upsert %s: %w", p.ID, err)
	}
	return nil
}

// SettlePrediction registra el resultado de una predicción aceptada.
func (s *SQLiteStorage) SettlePrediction(ctx context.Context, id string, outcome domain.Outcome, pnl float64, at time.Time) error {
	var contracts int
	var prev sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT recommended_contracts, outcome FROM predictions WHERE id = ?`, id,
	).Scan(&contracts, &prev)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("storage.SettlePrediction: %s: %w", id, ports.ErrPredictionNotFound)
	case err != nil:
		return fmt.Errorf("storage.SettlePrediction: lookup %s: %w", id, err)
	case prev.Valid:
		return fmt.Errorf("storage.SettlePrediction: %s settled as %s: %w", id, prev.String, ports.ErrAlreadySettled)
	case contracts == 0:
		return fmt.Errorf("storage.SettlePrediction: %s: %w", id, ports.ErrNotAccepted)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE predictions SET outcome = ?, pnl = ?, settled_at = ? WHERE id = ?`,
		string(outcome), pnl, formatTime(at), id,
	); err != nil {
		return fmt.Errorf("storage.SettlePrediction: update %s: %w", id, err)
	}
	return nil
}

// GetPrediction devuelve una predicción por id.
func (s *SQLiteStorage) GetPrediction(ctx context.Context, id string) (domain.Prediction, error) {
	preds, err := s.queryPredictions(ctx, `WHERE id = ?`, id)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("storage.GetPrediction: %w", err)
	}
	if len(preds) == 0 {
		return domain.Prediction{}, fmt.Errorf("storage.GetPrediction: %s: %w", id, ports.ErrPredictionNotFound)
	}
	return preds[0], nil
}

// PendingPredictions devuelve las aceptadas sin liquidar, más antiguas primero.
func (s *SQLiteStorage) PendingPredictions(ctx context.Context) ([]domain.Prediction, error) {
	preds, err := s.queryPredictions(ctx,
		`WHERE recommended_contracts > 0 AND outcome IS NULL ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.PendingPredictions: %w", err)
	}
	return preds, nil
}

// RecentPredictions devuelve las últimas predicciones, más nuevas primero.
func (s *SQLiteStorage) RecentPredictions(ctx context.Context, limit int, strategy string) ([]domain.Prediction, error) {
	if limit <= 0 {
		limit = 50
	}
	preds, err := s.queryPredictions(ctx,
		`WHERE (? = '' OR strategy = ?) ORDER BY created_at DESC LIMIT ?`,
		strategy, strategy, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentPredictions: %w", err)
	}
	return preds, nil
}

// SettledPredictions devuelve las liquidadas creadas desde since.
func (s *SQLiteStorage) SettledPredictions(ctx context.Context, since time.Time) ([]domain.Prediction, error) {
	preds, err := s.queryPredictions(ctx,
		`WHERE outcome IS NOT NULL AND created_at >= ? ORDER BY created_at ASC`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("storage.SettledPredictions: %w", err)
	}
	return preds, nil
}

// PerformanceSummary agrega accuracy, Brier y PnL de las liquidadas desde since.
func (s *SQLiteStorage) PerformanceSummary(ctx context.Context, since time.Time) (domain.Performance, error) {
	preds, err := s.SettledPredictions(ctx, since)
	if err != nil {
		return domain.Performance{}, fmt.Errorf("storage.PerformanceSummary: %w", err)
	}
	return domain.Summarize(since, preds), nil
}

func (s *SQLiteStorage) queryPredictions(ctx context.Context, where string, args ...any) ([]domain.Prediction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+predictionColumns+` FROM predictions `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		preds = append(preds, p)
	}
	return preds, rows.Err()
}

func scanPrediction(rows *sql.Rows) (domain.Prediction, error) {
	var p domain.Prediction
	var side, factors, costPer, cost, rejectedBy, createdAt string
	var expiry, outcome, settledAt sql.NullString
	var pnl sql.NullFloat64

	err := rows.Scan(
		&p.ID, &p.Strategy, &p.Market, &p.Title, &side,
		&p.MarketPrice, &p.RawProbability, &p.OurProbability, &p.Edge, &p.ConfidenceScore,
		&factors, &p.KellyFraction, &costPer, &p.RecommendedContracts, &cost,
		&rejectedBy, &p.RejectReason, &expiry, &createdAt, &outcome, &pnl, &settledAt,
	)
	if err != nil {
		return p, err
	}

	p.Side = domain.Side(side)
	p.RejectedBy = domain.Gate(rejectedBy)
	p.CreatedAt = parseTime(createdAt)
	if err := json.Unmarshal([]byte(factors), &p.Factors); err != nil {
		return p, fmt.Errorf("decode factors of %s: %w", p.ID, err)
	}
	if p.CostPerContract, err = decimal.NewFromString(costPer); err != nil {
		return p, fmt.Errorf("cost_per_contract of %s: %w", p.ID, err)
	}
	if p.RecommendedCost, err = decimal.NewFromString(cost); err != nil {
		return p, fmt.Errorf("recommended_cost of %s: %w", p.ID, err)
	}
	if expiry.Valid {
		p.Expiry = parseTime(expiry.String)
	}
	if outcome.Valid {
		o := domain.Outcome(outcome.String)
		p.Outcome = &o
	}
	if pnl.Valid {
		v := pnl.Float64
		p.PnL = &v
	}
	if settledAt.Valid {
		t := parseTime(settledAt.String)
		p.SettledAt = &t
	}
	return p, nil
}

func outcomeValue(o *domain.Outcome) any {
	if o == nil {
		return nil
	}
	return string(*o)
}
