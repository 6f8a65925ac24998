package calibsource_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/alejandrodnm/predictor/internal/adapters/calibsource"
	"github.com/alejandrodnm/predictor/internal/ports"
)

func TestHTTP_Load(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"version":"v9","points":[{"breakpoint":0.3,"rate":0.25},{"breakpoint":0.7,"rate":0.75}]}`))
	}))
	defer srv.Close()

	tbl, err := calibsource.NewHTTP(srv.URL).LoadCalibration(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http", tbl.Source)
	assert.Equal(t, "v9", tbl.Version)
	assert.InDelta(t, 0.5, tbl.Interpolate(0.5), 1e-12)
}

func TestHTTP_NotFoundIsAbsent(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := calibsource.NewHTTP(srv.URL).LoadCalibration(context.Background())
	assert.ErrorIs(t, err, ports.ErrNoCalibration)
}

func TestHTTP_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"price_to_actual":{"0.5":0.5}}`))
	}))
	defer srv.Close()

	src := calibsource.NewHTTP(srv.URL, calibsource.WithRetryWait(time.Millisecond), calibsource.WithRateLimit(rate.Inf, 1))
	tbl, err := src.LoadCalibration(context.Background())
	require.NoError(t, err)
	assert.Len(t, tbl.Points, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTP_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := calibsource.NewHTTP(srv.URL, calibsource.WithRetryWait(time.Millisecond), calibsource.WithRateLimit(rate.Inf, 1))
	_, err := src.LoadCalibration(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ports.ErrNoCalibration)
	assert.Equal(t, int32(4), calls.Load())
}

func TestHTTP_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := calibsource.NewHTTP(srv.URL).LoadCalibration(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTP_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := calibsource.NewHTTP(srv.URL).LoadCalibration(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
