package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

// Config contiene la configuración del pipeline.
type Config struct {
	Interval       time.Duration // time between cycles in Run
	ReloadInterval time.Duration // calibration refresh period (0 = never)
	Workers        int           // goroutines for parallel evaluation (0 = NumCPU*2)
	DryRun         bool          // evaluate and notify, never persist
	Once           bool          // Run executes a single cycle
}

// Evaluator decides one signal. *sizing.Engine satisfies it.
type Evaluator interface {
	Evaluate(ctx context.Context, sig domain.Signal, acct domain.AccountState, pf domain.PortfolioState) domain.Decision
}

// CalibrationReloader refreshes the cached calibration table.
type CalibrationReloader interface {
	Reload(ctx context.Context) error
}

// Pipeline is the fetch → evaluate → persist → notify loop.
type Pipeline struct {
	cfg        Config
	engine     Evaluator
	signals    ports.SignalSource
	accounts   ports.AccountReader
	store      ports.PredictionStore
	notifier   ports.Notifier
	calibrator CalibrationReloader
	recorder   ports.Recorder
}

// Option configures optional collaborators.
type Option func(*Pipeline)

// WithCalibrationReloader enables periodic calibration refresh in Run.
func WithCalibrationReloader(r CalibrationReloader) Option {
	return func(p *Pipeline) { p.calibrator = r }
}

// WithRecorder reports batch telemetry to r.
func WithRecorder(r ports.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// New crea un Pipeline con todas las dependencias inyectadas.
// store may be nil, in which case nothing is persisted.
func New(
	cfg Config,
	engine Evaluator,
	signals ports.SignalSource,
	accounts ports.AccountReader,
	store ports.PredictionStore,
	notifier ports.Notifier,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		cfg:      cfg,
		engine:   engine,
		signals:  signals,
		accounts: accounts,
		store:    store,
		notifier: notifier,
		recorder: ports.NopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ejecuta el loop hasta que el contexto se cancele.
// Si cfg.Once está activo, solo ejecuta un ciclo.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("pipeline starting",
		"interval", p.cfg.Interval,
		"reload_interval", p.cfg.ReloadInterval,
		"dry_run", p.cfg.DryRun,
		"workers", p.cfg.Workers,
	)

	if err := p.runCycle(ctx); err != nil {
		slog.Error("pipeline cycle failed", "err", err)
		if p.cfg.Once {
			return err
		}
	}

	if p.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	var reload <-chan time.Time
	if p.calibrator != nil && p.cfg.ReloadInterval > 0 {
		reloadTicker := time.NewTicker(p.cfg.ReloadInterval)
		defer reloadTicker.Stop()
		reload = reloadTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline stopped")
			return nil
		case <-reload:
			if err := p.calibrator.Reload(ctx); err != nil {
				slog.Warn("calibration reload failed", "err", err)
			}
		case <-ticker.C:
			if err := p.runCycle(ctx); err != nil {
				slog.Error("pipeline cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta exactamente un ciclo y devuelve las decisiones, ranked.
func (p *Pipeline) RunOnce(ctx context.Context) ([]domain.Decision, error) {
	return p.cycle(ctx)
}

// runCycle ejecuta un ciclo completo y persiste/notifica los resultados.
func (p *Pipeline) runCycle(ctx context.Context) error {
	_, err := p.cycle(ctx)
	return err
}

// cycle hace fetch → snapshot → evaluate → persist → notify.
func (p *Pipeline) cycle(ctx context.Context) ([]domain.Decision, error) {
	start := time.Now()

	signals, err := p.signals.FetchSignals(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline.cycle: fetch signals: %w", err)
	}

	acct, pf, err := p.accounts.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("pipeline.cycle: account snapshot: %w", err)
	}

	decisions := EvaluateBatch(ctx, p.engine, signals, acct, pf, p.cfg.Workers)

	if p.store != nil && !p.cfg.DryRun {
		for _, d := range decisions {
			if err := p.store.SavePrediction(ctx, d.Prediction); err != nil {
				slog.Warn("storage error", "market", d.Prediction.Market, "err", err)
			}
		}
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyDecisions(ctx, decisions); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	accepted, actionable := countDecisions(decisions)
	elapsed := time.Since(start)
	p.recorder.ObserveBatch(len(signals), accepted, elapsed)

	slog.Info("pipeline cycle complete",
		"signals", len(signals),
		"accepted", accepted,
		"actionable", actionable,
		"balance", fmt.Sprintf("%.2f", acct.Balance),
		"deployed_today", fmt.Sprintf("%.2f", acct.DeployedToday),
		"duration", elapsed.Round(time.Millisecond),
	)
	return decisions, nil
}

// countDecisions cuenta decisiones aceptadas y predicciones accionables.
func countDecisions(ds []domain.Decision) (accepted, actionable int) {
	for _, d := range ds {
		if d.IsAccepted() {
			accepted++
		}
		if d.Prediction.IsActionable() {
			actionable++
		}
	}
	return
}
