package storage

// sqlite.go: almacenamiento de predicciones y calibración.
//
// Estrategia:
//   - `predictions`: UNA fila por decisión (UPSERT por id), aceptadas y
//     rechazadas. Las rechazadas solo sirven de telemetría y se podan.
//   - `calibration_snapshots`: histórico de tablas reconstruidas; la última
//     es la fuente de calibración "sqlite".
//   - Los timestamps se guardan como TEXT de ancho fijo en UTC, así el orden
//     lexicográfico coincide con el cronológico.
//   - Prune automático al arrancar: rechazadas > 30d.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por decisión del motor
CREATE TABLE IF NOT EXISTS predictions (
    id                    TEXT PRIMARY KEY,
    strategy              TEXT    NOT NULL,
    market                TEXT    NOT NULL,
    title                 TEXT    NOT NULL DEFAULT '',
    side                  TEXT    NOT NULL,
    market_price          REAL    NOT NULL DEFAULT 0,
    raw_probability       REAL    NOT NULL DEFAULT 0,
    our_probability       REAL    NOT NULL DEFAULT 0,
    edge                  REAL    NOT NULL DEFAULT 0,
    confidence_score      REAL    NOT NULL DEFAULT 0,
    factors               TEXT    NOT NULL DEFAULT '{}',
    kelly_fraction        REAL    NOT NULL DEFAULT 0,
    cost_per_contract     TEXT    NOT NULL DEFAULT '0',
    recommended_contracts INTEGER NOT NULL DEFAULT 0,
    recommended_cost      TEXT    NOT NULL DEFAULT '0',
    rejected_by           TEXT    NOT NULL DEFAULT '',
    reject_reason         TEXT    NOT NULL DEFAULT '',
    expiry                TEXT,
    created_at            TEXT    NOT NULL,
    outcome               TEXT,
    pnl                   REAL,
    settled_at            TEXT
);

-- Histórico de tablas de calibración reconstruidas
CREATE TABLE IF NOT EXISTS calibration_snapshots (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    strategy      TEXT    NOT NULL DEFAULT 'all',
    version       TEXT    NOT NULL DEFAULT '',
    bin_width     REAL    NOT NULL DEFAULT 0,
    total_markets INTEGER NOT NULL DEFAULT 0,
    brier_score   REAL    NOT NULL DEFAULT 0,
    ece           REAL    NOT NULL DEFAULT 0,
    points        TEXT    NOT NULL DEFAULT '[]',
    created_at    TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_pred_created  ON predictions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_pred_pending  ON predictions(recommended_contracts, outcome);
CREATE INDEX IF NOT EXISTS idx_pred_strategy ON predictions(strategy);
CREATE INDEX IF NOT EXISTS idx_snap_created  ON calibration_snapshots(created_at DESC);
`

const (
	retentionRejected = 30 * 24 * time.Hour // rechazadas: 30 días
	timeLayout        = "2006-01-02 15:04:05.000000"
)

// SQLiteStorage implementa ports.PredictionStore, ports.CalibrationStore,
// ports.CalibrationSource y ports.AccountReader usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db              *sql.DB
	startingCapital float64
	now             func() time.Time
}

// Option configura el storage.
type Option func(*SQLiteStorage)

// WithStartingCapital sets the capital the account balance is derived from.
func WithStartingCapital(c float64) Option {
	return func(s *SQLiteStorage) { s.startingCapital = c }
}

// WithClock replaces time.Now, which decides what "today" is.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStorage) { s.now = now }
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia datos antiguos.
func NewSQLiteStorage(path string, opts ...Option) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.pruneOld(context.Background())
	return s, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina predicciones rechazadas antiguas para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := formatTime(s.now().UTC().Add(-retentionRejected))
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM predictions WHERE recommended_contracts = 0 AND created_at < ?`, cutoff)
	if err != nil {
		slog.Warn("prune failed", "err", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Debug("pruned rejected predictions", "rows", n)
	}
}

// --- helpers internos ---

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func nullTimeVal(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// startOfDay devuelve la medianoche UTC del día de t.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
