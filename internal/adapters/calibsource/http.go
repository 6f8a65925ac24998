package calibsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

const (
	// Una recarga cada pocos minutos; 1/s con burst 2 sobra.
	httpRatePerSec = 1
	httpBurst      = 2

	maxRetries    = 3
	baseRetryWait = 500 * time.Millisecond
)

var errRetryable = errors.New("retryable")

// HTTP descarga la tabla de un endpoint JSON con rate limiting y retries.
type HTTP struct {
	http      *http.Client
	url       string
	limiter   *rate.Limiter
	retryWait time.Duration
}

// HTTPOption configura la fuente HTTP.
type HTTPOption func(*HTTP)

// WithHTTPClient reemplaza el http.Client por defecto.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.http = c }
}

// WithRetryWait cambia la espera base del backoff.
func WithRetryWait(d time.Duration) HTTPOption {
	return func(h *HTTP) { h.retryWait = d }
}

// WithRateLimit reemplaza el límite de peticiones por segundo.
func WithRateLimit(r rate.Limit, burst int) HTTPOption {
	return func(h *HTTP) { h.limiter = rate.NewLimiter(r, burst) }
}

// NewHTTP crea una fuente que hace GET sobre url.
func NewHTTP(url string, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		http:      &http.Client{Timeout: 10 * time.Second},
		url:       url,
		limiter:   rate.NewLimiter(httpRatePerSec, httpBurst),
		retryWait: baseRetryWait,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// LoadCalibration implementa ports.CalibrationSource.
// 404 y cuerpo vacío se tratan como ausencia de tabla.
func (h *HTTP) LoadCalibration(ctx context.Context) (domain.CalibrationTable, error) {
	var doc document
	if err := h.doWithRetry(ctx, &doc); err != nil {
		if errors.Is(err, ports.ErrNoCalibration) {
			return domain.CalibrationTable{}, err
		}
		return domain.CalibrationTable{}, fmt.Errorf("calibsource.HTTP: %s: %w", h.url, err)
	}
	tbl, err := doc.table("http")
	if err != nil {
		if errors.Is(err, ports.ErrNoCalibration) {
			return domain.CalibrationTable{}, err
		}
		return domain.CalibrationTable{}, fmt.Errorf("calibsource.HTTP: %s: %w", h.url, err)
	}
	tbl.LoadedAt = time.Now().UTC()
	return tbl, nil
}

// doWithRetry hace el GET con backoff exponencial; 429 y 5xx se reintentan.
func (h *HTTP) doWithRetry(ctx context.Context, out *document) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := h.sleep(ctx, attempt-1); err != nil {
				return err
			}
		}
		if err := h.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		err := h.get(ctx, out)
		if err == nil || !errors.Is(err, errRetryable) {
			return err
		}
		lastErr = err
		slog.Warn("calibration fetch failed, retrying", "url", h.url, "attempt", attempt+1, "err", err)
	}
	return fmt.Errorf("exhausted %d retries: %w", maxRetries, lastErr)
}

func (h *HTTP) get(ctx context.Context, out *document) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return ports.ErrNoCalibration
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", errRetryable, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("client error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return ports.ErrNoCalibration
		}
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// sleep espera con backoff exponencial, respetando el contexto.
func (h *HTTP) sleep(ctx context.Context, attempt int) error {
	wait := time.Duration(math.Pow(2, float64(attempt))) * h.retryWait
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
