package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

// SaveCalibrationSnapshot inserta una tabla reconstruida y devuelve su id.
func (s *SQLiteStorage) SaveCalibrationSnapshot(ctx context.Context, snap domain.CalibrationSnapshot) (int64, error) {
	points, err := json.Marshal(snap.Table.Points)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveCalibrationSnapshot: encode points: %w", err)
	}
	strategy := snap.Strategy
	if strategy == "" {
		strategy = "all"
	}
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calibration_snapshots
			(strategy, version, bin_width, total_markets, brier_score, ece, points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		strategy, snap.Table.Version, snap.BinWidth, snap.Table.TotalMarkets,
		snap.BrierScore, snap.ECE, string(points), formatTime(createdAt),
	)
	if err != nil {
		return 0, fmt.Errorf("storage.SaveCalibrationSnapshot: insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("storage.SaveCalibrationSnapshot: last id: %w", err)
	}
	return id, nil
}

// LatestCalibrationSnapshot devuelve el snapshot más reciente o
// ports.ErrNoCalibration si no hay ninguno.
func (s *SQLiteStorage) LatestCalibrationSnapshot(ctx context.Context) (domain.CalibrationSnapshot, error) {
	var snap domain.CalibrationSnapshot
	var points, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, version, bin_width, total_markets, brier_score, ece, points, created_at
		FROM calibration_snapshots
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
	).Scan(&snap.ID, &snap.Strategy, &snap.Table.Version, &snap.BinWidth, &snap.Table.TotalMarkets,
		&snap.BrierScore, &snap.ECE, &points, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ports.ErrNoCalibration
	}
	if err != nil {
		return snap, fmt.Errorf("storage.LatestCalibrationSnapshot: %w", err)
	}

	if err := json.Unmarshal([]byte(points), &snap.Table.Points); err != nil {
		return snap, fmt.Errorf("storage.LatestCalibrationSnapshot: decode points: %w", err)
	}
	snap.CreatedAt = parseTime(createdAt)
	snap.Table.Source = "sqlite"
	snap.Table.LoadedAt = snap.CreatedAt
	return snap, nil
}

// LoadCalibration implementa ports.CalibrationSource con el último snapshot.
// Un snapshot sin puntos cuenta como ausencia de calibración.
func (s *SQLiteStorage) LoadCalibration(ctx context.Context) (domain.CalibrationTable, error) {
	snap, err := s.LatestCalibrationSnapshot(ctx)
	if err != nil {
		return domain.CalibrationTable{}, err
	}
	if snap.Table.IsEmpty() {
		return domain.CalibrationTable{}, ports.ErrNoCalibration
	}
	return snap.Table, nil
}
