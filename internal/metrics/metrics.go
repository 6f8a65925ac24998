// Package metrics exposes engine telemetry as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

const namespace = "predictor"

// Recorder implements ports.Recorder on its own registry, so several
// engines (and tests) never collide on the global one.
type Recorder struct {
	registry *prometheus.Registry

	decisions        *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	evalDuration     prometheus.Histogram
	confidence       prometheus.Histogram
	recommendedCost  prometheus.Counter
	calibrationLoads *prometheus.CounterVec
	batchSignals     prometheus.Gauge
	batchAccepted    prometheus.Gauge
	batchDuration    prometheus.Histogram
}

// NewRecorder builds and registers every collector.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Evaluated signals by strategy and result",
		}, []string{"strategy", "result"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Rejected signals by gate and reason code",
		}, []string{"gate", "code"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluate_duration_seconds",
			Help:      "Time spent evaluating one signal",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
		confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confidence_score",
			Help:      "Confidence score of evaluated signals",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 9),
		}),
		recommendedCost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommended_cost_dollars_total",
			Help:      "Sum of recommended cost over accepted signals",
		}),
		calibrationLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calibration_loads_total",
			Help:      "Calibration table loads by source and result",
		}, []string{"source", "result"}),
		batchSignals: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_signals",
			Help:      "Signals in the last pipeline batch",
		}),
		batchAccepted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_accepted",
			Help:      "Accepted signals in the last pipeline batch",
		}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one pipeline cycle",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	r.registry.MustRegister(
		r.decisions, r.rejections, r.evalDuration, r.confidence, r.recommendedCost,
		r.calibrationLoads, r.batchSignals, r.batchAccepted, r.batchDuration,
	)
	return r
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveDecision counts one gate outcome.
func (r *Recorder) ObserveDecision(d domain.Decision, elapsed time.Duration) {
	p := d.Prediction
	r.evalDuration.Observe(elapsed.Seconds())
	r.confidence.Observe(p.ConfidenceScore)

	if d.IsAccepted() {
		r.decisions.WithLabelValues(p.Strategy, "accepted").Inc()
		r.recommendedCost.Add(p.RecommendedCost.InexactFloat64())
		return
	}
	r.decisions.WithLabelValues(p.Strategy, "rejected").Inc()
	r.rejections.WithLabelValues(string(d.Rejection.Gate), string(d.Rejection.Code)).Inc()
}

// ObserveCalibrationLoad counts a table load as ok, absent or error.
func (r *Recorder) ObserveCalibrationLoad(source string, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ports.ErrNoCalibration):
		result = "absent"
	case err != nil:
		result = "error"
	}
	r.calibrationLoads.WithLabelValues(source, result).Inc()
}

// ObserveBatch records the size and wall time of one pipeline cycle.
func (r *Recorder) ObserveBatch(signals, accepted int, elapsed time.Duration) {
	r.batchSignals.Set(float64(signals))
	r.batchAccepted.Set(float64(accepted))
	r.batchDuration.Observe(elapsed.Seconds())
}
