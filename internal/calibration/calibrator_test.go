package calibration_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/predictor/internal/calibration"
	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

// --- mocks ---

type mockSource struct {
	table domain.CalibrationTable
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (m *mockSource) LoadCalibration(ctx context.Context) (domain.CalibrationTable, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return domain.CalibrationTable{}, ctx.Err()
		}
	}
	return m.table, m.err
}

type mockRecorder struct {
	ports.NopRecorder
	mu    sync.Mutex
	loads []error
}

func (m *mockRecorder) ObserveCalibrationLoad(_ string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads = append(m.loads, err)
}

func table(t *testing.T) domain.CalibrationTable {
	t.Helper()
	tbl, err := domain.NewCalibrationTable([]domain.CalibrationPoint{
		{Breakpoint: 0.10, Rate: 0.05},
		{Breakpoint: 0.50, Rate: 0.50},
		{Breakpoint: 0.60, Rate: 0.62},
		{Breakpoint: 0.90, Rate: 0.93},
	})
	require.NoError(t, err)
	tbl.Version = "v1"
	tbl.TotalMarkets = 1500
	return tbl
}

// --- tests ---

func TestCalibrate_AbsentTableIsIdentity(t *testing.T) {
	src := &mockSource{err: ports.ErrNoCalibration}
	c := calibration.New(src, "file")

	assert.Equal(t, 0.62, c.Calibrate(context.Background(), 0.62))
	assert.True(t, c.Metrics(context.Background()).Identity)
}

func TestCalibrate_NilSourceIsIdentity(t *testing.T) {
	c := calibration.New(nil, "none")
	assert.Equal(t, 0.33, c.Calibrate(context.Background(), 0.33))
	assert.Zero(t, c.Loads())
}

func TestCalibrate_LoadErrorIsIdentity(t *testing.T) {
	rec := &mockRecorder{}
	src := &mockSource{err: errors.New("disk on fire")}
	c := calibration.New(src, "file", calibration.WithRecorder(rec))

	assert.Equal(t, 0.41, c.Calibrate(context.Background(), 0.41))
	require.Len(t, rec.loads, 1)
	assert.Error(t, rec.loads[0])
}

func TestCalibrate_InvalidTableIsIdentity(t *testing.T) {
	bad := domain.CalibrationTable{Points: []domain.CalibrationPoint{{Breakpoint: 0.5, Rate: 2}}}
	c := calibration.New(&mockSource{table: bad}, "file")
	assert.Equal(t, 0.7, c.Calibrate(context.Background(), 0.7))
}

func TestCalibrate_InterpolatesAndClamps(t *testing.T) {
	c := calibration.New(&mockSource{table: table(t)}, "file")
	ctx := context.Background()

	assert.InDelta(t, 0.56, c.Calibrate(ctx, 0.55), 1e-12)
	assert.Equal(t, 0.05, c.Calibrate(ctx, 0.02))
	assert.Equal(t, 0.93, c.Calibrate(ctx, 0.97))
}

func TestCalibrate_Idempotent(t *testing.T) {
	c := calibration.New(&mockSource{table: table(t)}, "file")
	ctx := context.Background()
	for _, raw := range []float64{0, 0.1, 0.33, 0.5, 0.77, 1} {
		assert.Equal(t, c.Calibrate(ctx, raw), c.Calibrate(ctx, raw))
	}
}

func TestCalibrate_CachesAfterFirstLoad(t *testing.T) {
	src := &mockSource{table: table(t)}
	c := calibration.New(src, "file")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Calibrate(ctx, 0.5)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCalibrate_ConcurrentFirstLoadIsSingleFlight(t *testing.T) {
	src := &mockSource{table: table(t), delay: 50 * time.Millisecond}
	c := calibration.New(src, "file")

	var wg sync.WaitGroup
	results := make([]float64, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Calibrate(context.Background(), 0.55)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, r := range results {
		assert.InDelta(t, 0.56, r, 1e-12)
	}
}

func TestCalibrate_CancelledCallerDoesNotPoisonCache(t *testing.T) {
	src := &mockSource{table: table(t), delay: 10 * time.Millisecond}
	c := calibration.New(src, "file")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.InDelta(t, 0.56, c.Calibrate(ctx, 0.55), 1e-12)
}

func TestReset_ForcesReload(t *testing.T) {
	src := &mockSource{err: ports.ErrNoCalibration}
	c := calibration.New(src, "file")
	ctx := context.Background()

	assert.Equal(t, 0.55, c.Calibrate(ctx, 0.55))

	src.table, src.err = table(t), nil
	assert.Equal(t, 0.55, c.Calibrate(ctx, 0.55), "cached identity survives until Reset")

	c.Reset()
	assert.InDelta(t, 0.56, c.Calibrate(ctx, 0.55), 1e-12)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestReload_AbsentTableInstallsIdentity(t *testing.T) {
	src := &mockSource{table: table(t)}
	c := calibration.New(src, "file")
	ctx := context.Background()

	require.NoError(t, c.Reload(ctx))
	assert.InDelta(t, 0.56, c.Calibrate(ctx, 0.55), 1e-12)

	src.err = ports.ErrNoCalibration
	err := c.Reload(ctx)
	assert.ErrorIs(t, err, ports.ErrNoCalibration)
	assert.Equal(t, 0.55, c.Calibrate(ctx, 0.55))
}

func TestReload_FailureKeepsPreviousTable(t *testing.T) {
	src := &mockSource{table: table(t)}
	c := calibration.New(src, "http")
	ctx := context.Background()

	require.NoError(t, c.Reload(ctx))
	assert.InDelta(t, 0.56, c.Calibrate(ctx, 0.55), 1e-12)

	src.err = errors.New("http 503")
	assert.Error(t, c.Reload(ctx))
	assert.InDelta(t, 0.56, c.Calibrate(ctx, 0.55), 1e-12)
	assert.Equal(t, "v1", c.Metrics(ctx).Version)
	assert.False(t, c.Metrics(ctx).Identity)
}

func TestReload_FailureWithoutPreviousTableIsIdentity(t *testing.T) {
	c := calibration.New(&mockSource{err: errors.New("http 503")}, "http")
	ctx := context.Background()

	assert.Error(t, c.Reload(ctx))
	assert.Equal(t, 0.55, c.Calibrate(ctx, 0.55))
	assert.True(t, c.Metrics(ctx).Identity)
}

func TestMetrics(t *testing.T) {
	c := calibration.New(&mockSource{table: table(t)}, "http")
	m := c.Metrics(context.Background())

	assert.Equal(t, "http", m.Source)
	assert.Equal(t, "v1", m.Version)
	assert.Equal(t, 4, m.Points)
	assert.Equal(t, 1500, m.TotalMarkets)
	assert.True(t, m.HasFullData)
	assert.False(t, m.Identity)
}
