package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/predictor/config"
	"github.com/alejandrodnm/predictor/internal/adapters/calibsource"
	"github.com/alejandrodnm/predictor/internal/adapters/storage"
	"github.com/alejandrodnm/predictor/internal/calibration"
	"github.com/alejandrodnm/predictor/internal/metrics"
	"github.com/alejandrodnm/predictor/internal/scoring"
	"github.com/alejandrodnm/predictor/internal/sizing"
)

// app agrupa las dependencias compartidas por los subcomandos.
type app struct {
	cfg        *config.Config
	store      *storage.SQLiteStorage
	calibrator *calibration.Calibrator
	engine     *sizing.Engine
	recorder   *metrics.Recorder
}

// newApp abre el storage y construye calibrador, scorer y motor.
func newApp(cfg *config.Config) (*app, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN,
		storage.WithStartingCapital(cfg.Risk.StartingCapital))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	source, err := calibsource.New(cfg.Calibration.Source, cfg.Calibration.Location, store)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("calibration source: %w", err)
	}

	rec := metrics.NewRecorder()
	cal := calibration.New(source, cfg.Calibration.Source,
		calibration.WithRecorder(rec),
		calibration.WithLoadTimeout(cfg.LoadTimeout()),
	)

	scorer, err := scoring.New(cfg.Scoring)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("scorer: %w", err)
	}

	engine, err := sizing.New(cfg.Sizing(), cal, scorer, sizing.WithRecorder(rec))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	slog.Debug("app ready",
		"dsn", cfg.Storage.DSN,
		"calibration", cfg.Calibration.Source,
		"starting_capital", cfg.Risk.StartingCapital,
	)
	return &app{cfg: cfg, store: store, calibrator: cal, engine: engine, recorder: rec}, nil
}

// status alimenta /healthz: calibración en uso y límites de riesgo activos.
func (a *app) status(ctx context.Context) map[string]any {
	risk := a.engine.Config()
	return map[string]any{
		"calibration": a.calibrator.Metrics(ctx),
		"risk": map[string]any{
			"balance_floor":      risk.BalanceFloor,
			"max_open_positions": risk.MaxOpenPositions,
			"min_contracts":      risk.MinContracts,
			"min_edge":           risk.MinEdge,
		},
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Warn("storage close failed", "err", err)
	}
}
