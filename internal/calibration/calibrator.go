package calibration

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

const defaultLoadTimeout = 10 * time.Second

// HasFullDataMarkets is the number of analysed markets above which a table
// is considered fully populated.
const HasFullDataMarkets = 1000

// Metrics describes the table currently in use.
type Metrics struct {
	Source       string `json:"source"`
	Version      string `json:"version,omitempty"`
	Points       int    `json:"points"`
	TotalMarkets int    `json:"total_markets"`
	HasFullData  bool   `json:"has_full_data"`
	Identity     bool   `json:"identity"`
}

// Calibrator maps raw model probabilities to calibrated ones through a
// breakpoint table loaded lazily from a CalibrationSource.
//
// The table is loaded once on first use and cached until Reset. Concurrent
// first callers share a single load; readers always see a complete table.
// When the source has no table or fails, Calibrate is the identity.
type Calibrator struct {
	source      ports.CalibrationSource
	name        string
	recorder    ports.Recorder
	loadTimeout time.Duration

	current atomic.Pointer[domain.CalibrationTable]
	group   singleflight.Group
	loads   atomic.Int64
}

// Option configures a Calibrator.
type Option func(*Calibrator)

// WithRecorder reports each load attempt to r.
func WithRecorder(r ports.Recorder) Option {
	return func(c *Calibrator) { c.recorder = r }
}

// WithLoadTimeout bounds a single load attempt.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Calibrator) { c.loadTimeout = d }
}

// New builds a Calibrator reading from source. name labels logs and metrics.
// A nil source always calibrates as identity.
func New(source ports.CalibrationSource, name string, opts ...Option) *Calibrator {
	c := &Calibrator{
		source:      source,
		name:        name,
		recorder:    ports.NopRecorder{},
		loadTimeout: defaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calibrate returns the calibrated probability for raw.
func (c *Calibrator) Calibrate(ctx context.Context, raw float64) float64 {
	return c.Table(ctx).Interpolate(raw)
}

// Table returns the cached table, loading it on first use. An empty table
// means identity calibration.
func (c *Calibrator) Table(ctx context.Context) domain.CalibrationTable {
	if t := c.current.Load(); t != nil {
		return *t
	}
	v, _, _ := c.group.Do("load", func() (any, error) {
		if t := c.current.Load(); t != nil {
			return t, nil
		}
		t, _ := c.load(ctx)
		c.current.Store(t)
		return t, nil
	})
	return *v.(*domain.CalibrationTable)
}

// Reset drops the cached table; the next Calibrate reloads it.
func (c *Calibrator) Reset() {
	c.current.Store(nil)
}

// Reload loads the table eagerly and swaps it in. The returned error is
// informational. When the source reports no table, identity is installed;
// when the load fails, the previous table stays in use (identity if none
// was ever loaded).
func (c *Calibrator) Reload(ctx context.Context) error {
	_, err, _ := c.group.Do("load", func() (any, error) {
		t, err := c.load(ctx)
		if err != nil && !errors.Is(err, ports.ErrNoCalibration) {
			if prev := c.current.Load(); prev != nil && !prev.IsEmpty() {
				slog.Warn("calibration reload failed, keeping previous table",
					"source", c.name, "version", prev.Version, "err", err)
				return prev, err
			}
		}
		c.current.Store(t)
		return t, err
	})
	return err
}

// Loads returns how many load attempts reached the source.
func (c *Calibrator) Loads() int64 {
	return c.loads.Load()
}

// Metrics describes the table in use, loading it if needed.
func (c *Calibrator) Metrics(ctx context.Context) Metrics {
	t := c.Table(ctx)
	return Metrics{
		Source:       c.name,
		Version:      t.Version,
		Points:       len(t.Points),
		TotalMarkets: t.TotalMarkets,
		HasFullData:  t.TotalMarkets > HasFullDataMarkets,
		Identity:     t.IsEmpty(),
	}
}

// load reads the source. It never returns a nil table: failures yield the
// empty (identity) table plus the error.
func (c *Calibrator) load(ctx context.Context) (*domain.CalibrationTable, error) {
	empty := &domain.CalibrationTable{Source: c.name}
	if c.source == nil {
		return empty, nil
	}
	c.loads.Add(1)

	// A cancelled first caller must not poison the cache for everyone else.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
	defer cancel()

	start := time.Now()
	t, err := c.source.LoadCalibration(ctx)
	if err == nil {
		err = t.Validate()
	}
	c.recorder.ObserveCalibrationLoad(c.name, err)

	switch {
	case errors.Is(err, ports.ErrNoCalibration):
		slog.Warn("calibration table absent, using identity calibration", "source", c.name)
		return empty, err
	case err != nil:
		slog.Warn("calibration load failed, using identity calibration", "source", c.name, "err", err)
		return empty, err
	}

	if t.Source == "" {
		t.Source = c.name
	}
	if t.LoadedAt.IsZero() {
		t.LoadedAt = time.Now().UTC()
	}
	slog.Info("calibration table loaded",
		"source", c.name,
		"version", t.Version,
		"points", len(t.Points),
		"total_markets", t.TotalMarkets,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return &t, nil
}
