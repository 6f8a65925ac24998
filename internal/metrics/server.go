package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusFunc reports extra fields for /healthz (calibration in use, etc.).
type StatusFunc func(ctx context.Context) map[string]any

// NewRouter exposes /metrics for gatherer and /healthz with status.
func NewRouter(gatherer prometheus.Gatherer, status StatusFunc) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		body := map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if status != nil {
			for k, v := range status(req.Context()) {
				body[k] = v
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(body); err != nil {
			slog.Warn("healthz encode failed", "err", err)
		}
	}).Methods(http.MethodGet)
	return r
}

// Serve arranca el servidor HTTP en addr y lo cierra cuando ctx termina.
// Devuelve cuando el servidor se ha parado.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("metrics server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics.Serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics.Serve: shutdown: %w", err)
		}
		return nil
	}
}
