package sizing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
)

// State is a step of the evaluation state machine.
type State string

const (
	StatePending  State = "PENDING"
	StateAccepted State = "ACCEPTED"
	StateRejected State = "REJECTED"
)

// GateState returns the state for the i-th gate (1-based).
func GateState(i int) State {
	return State(fmt.Sprintf("GATE_%d", i))
}

// Calibrator corrects the raw model probability.
type Calibrator interface {
	Calibrate(ctx context.Context, raw float64) float64
}

// Scorer sets the confidence score on a prediction.
type Scorer interface {
	ScorePrediction(p *domain.Prediction, sig domain.Signal, sctx *domain.SentimentContext)
}

// Engine turns signals into sized, risk-gated decisions.
//
// Evaluate is a pure function of its inputs plus the calibrator's cached
// table, so an Engine is safe for concurrent use.
type Engine struct {
	cfg        Config
	calibrator Calibrator
	scorer     Scorer
	gates      []gate
	recorder   ports.Recorder
	now        func() time.Time
	newID      func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder reports every decision to r.
func WithRecorder(r ports.Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithClock replaces time.Now for CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDs replaces the uuid generator for prediction IDs.
func WithIDs(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New validates cfg and builds an Engine.
func New(cfg Config, calibrator Calibrator, scorer Scorer, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sizing.New: %w", err)
	}
	if calibrator == nil || scorer == nil {
		return nil, fmt.Errorf("sizing.New: calibrator and scorer are required")
	}
	e := &Engine{
		cfg:        cfg,
		calibrator: calibrator,
		scorer:     scorer,
		gates:      defaultGates(),
		recorder:   ports.NopRecorder{},
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the limits the engine enforces.
func (e *Engine) Config() Config {
	return e.cfg
}

// Evaluate calibrates, scores and gates sig against the snapshots.
func (e *Engine) Evaluate(ctx context.Context, sig domain.Signal, acct domain.AccountState, pf domain.PortfolioState) domain.Decision {
	d, _ := e.Trace(ctx, sig, nil, acct, pf)
	return d
}

// EvaluateWithSentiment is Evaluate with explicit crowd context.
func (e *Engine) EvaluateWithSentiment(ctx context.Context, sig domain.Signal, sctx *domain.SentimentContext, acct domain.AccountState, pf domain.PortfolioState) domain.Decision {
	d, _ := e.Trace(ctx, sig, sctx, acct, pf)
	return d
}

// Trace evaluates sig and also returns the states the machine went through.
func (e *Engine) Trace(ctx context.Context, sig domain.Signal, sctx *domain.SentimentContext, acct domain.AccountState, pf domain.PortfolioState) (domain.Decision, []State) {
	start := time.Now()
	ev := &evaluation{
		cfg:    e.cfg,
		signal: sig,
		acct:   acct,
		pf:     pf.Clone(),
		limits: e.cfg.Tiers.Limits(acct.Balance),
		pred:   e.newPrediction(ctx, sig, sctx),
	}

	trace := make([]State, 0, len(e.gates)+2)
	trace = append(trace, StatePending)

	var d domain.Decision
	for i, g := range e.gates {
		trace = append(trace, GateState(i+1))
		if r := g.check(ev); r != nil {
			r.Gate = g.name
			d = domain.Rejected(sanitize(*ev.pred), *r)
			trace = append(trace, StateRejected)
			slog.Debug("signal rejected",
				"market", sig.Market,
				"side", sig.Side,
				"gate", g.name,
				"code", r.Code,
				"reason", r.Reason,
			)
			break
		}
	}
	if d.Rejection == nil {
		d = domain.Accepted(*ev.pred)
		trace = append(trace, StateAccepted)
		slog.Debug("signal accepted",
			"market", sig.Market,
			"side", sig.Side,
			"contracts", d.Prediction.RecommendedContracts,
			"cost", d.Prediction.RecommendedCost.StringFixed(2),
			"confidence", fmt.Sprintf("%.3f", d.Prediction.ConfidenceScore),
		)
	}

	e.recorder.ObserveDecision(d, time.Since(start))
	return d, trace
}

func (e *Engine) newPrediction(ctx context.Context, sig domain.Signal, sctx *domain.SentimentContext) *domain.Prediction {
	p := &domain.Prediction{
		ID:              e.newID(),
		Strategy:        sig.Strategy,
		Market:          sig.Market,
		Title:           sig.Title,
		Side:            sig.Side,
		MarketPrice:     sig.MarketPrice,
		RawProbability:  sig.RawProbability,
		Expiry:          sig.Expiry,
		CreatedAt:       e.now().UTC(),
		CostPerContract: decimal.Zero,
		RecommendedCost: decimal.Zero,
	}
	p.OurProbability = e.calibrator.Calibrate(ctx, sig.RawProbability)
	p.Edge = domain.Edge(sig.Side, sig.MarketPrice, p.OurProbability)
	e.scorer.ScorePrediction(p, sig, sctx)
	return p
}

// sanitize zeroes non-finite floats so a rejected prediction stays
// serializable.
func sanitize(p domain.Prediction) domain.Prediction {
	for _, v := range []*float64{&p.MarketPrice, &p.RawProbability, &p.OurProbability, &p.Edge} {
		if !domain.IsFinite(*v) {
			*v = 0
		}
	}
	return p
}
