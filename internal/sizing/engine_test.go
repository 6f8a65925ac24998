package sizing_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/predictor/internal/adapters/calibsource"
	"github.com/alejandrodnm/predictor/internal/calibration"
	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/ports"
	"github.com/alejandrodnm/predictor/internal/scoring"
	"github.com/alejandrodnm/predictor/internal/sizing"
)

// --- mocks ---

type calibFunc func(float64) float64

func (f calibFunc) Calibrate(_ context.Context, raw float64) float64 { return f(raw) }

var identity = calibFunc(func(r float64) float64 { return r })

type mockRecorder struct {
	ports.NopRecorder
	mu        sync.Mutex
	decisions []domain.Decision
}

func (m *mockRecorder) ObserveDecision(d domain.Decision, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
}

var fixedNow = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func newEngine(t *testing.T, cfg sizing.Config, cal sizing.Calibrator, opts ...sizing.Option) *sizing.Engine {
	t.Helper()
	sc, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)
	opts = append([]sizing.Option{
		sizing.WithClock(func() time.Time { return fixedNow }),
		sizing.WithIDs(func() string { return "pred-1" }),
	}, opts...)
	e, err := sizing.New(cfg, cal, sc, opts...)
	require.NoError(t, err)
	return e
}

func signal(side domain.Side, price, raw float64) domain.Signal {
	return domain.Signal{Strategy: "spx", Market: "KXINX-TEST", Side: side, MarketPrice: price, RawProbability: raw}
}

func account(balance float64) domain.AccountState {
	return domain.AccountState{Balance: balance}
}

// --- tests ---

func TestEvaluate_AcceptsAndSizes(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)

	// tier 1000: max trade 8% = 80, daily 35% = 350, kelly 0.35
	// f* = 0.30 → 0.105 × 1000 = 105 → clipped to 80 → 160 contracts at 0.50
	d := e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.65), account(1000), domain.PortfolioState{})

	require.True(t, d.IsAccepted(), "rejection: %+v", d.Rejection)
	p := d.Prediction
	assert.Equal(t, "pred-1", p.ID)
	assert.Equal(t, fixedNow, p.CreatedAt)
	assert.InDelta(t, 0.15, p.Edge, 1e-12)
	assert.InDelta(t, 0.30*0.35, p.KellyFraction, 1e-12)
	assert.Equal(t, 160, p.RecommendedContracts)
	assert.Equal(t, "0.50", p.CostPerContract.StringFixed(2))
	assert.Equal(t, "80.00", p.RecommendedCost.StringFixed(2))
	assert.True(t, p.RecommendedCost.Equal(p.CostPerContract.Mul(decimalInt(p.RecommendedContracts))))
	assert.Greater(t, p.ConfidenceScore, 0.0)
}

func TestEvaluate_NoSideUsesComplementPrice(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)

	// NO at yes-price 0.70 costs 0.30; p=0.45 → b = 0.7/0.3, f* = (b·0.45 − 0.55)/b ≈ 0.2143
	d := e.Evaluate(context.Background(), signal(domain.SideNo, 0.70, 0.45), account(500), domain.PortfolioState{})

	require.True(t, d.IsAccepted())
	assert.InDelta(t, 0.15, d.Prediction.Edge, 1e-12)
	assert.Equal(t, "0.30", d.Prediction.CostPerContract.StringFixed(2))
	// tier 500: stake = 0.2143 × 0.30 × 500 ≈ 32.14 → 107 contracts
	assert.Equal(t, 107, d.Prediction.RecommendedContracts)
	assert.Equal(t, "32.10", d.Prediction.RecommendedCost.StringFixed(2))
}

func TestEvaluate_TiersSelectDifferentFractions(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)
	sig := signal(domain.SideYes, 0.5, 0.65)

	low := e.Evaluate(context.Background(), sig, account(400), domain.PortfolioState{})
	top := e.Evaluate(context.Background(), sig, account(5000), domain.PortfolioState{})

	require.True(t, low.IsAccepted())
	require.True(t, top.IsAccepted())

	// <500: max trade 5% = 20 → 40 contracts, kelly 0.25
	assert.Equal(t, 40, low.Prediction.RecommendedContracts)
	assert.InDelta(t, 0.30*0.25, low.Prediction.KellyFraction, 1e-12)
	// ≥5000: kelly 0.40 → stake 600, max trade 500 → 1000 contracts
	assert.Equal(t, 1000, top.Prediction.RecommendedContracts)
	assert.InDelta(t, 0.30*0.40, top.Prediction.KellyFraction, 1e-12)
}

func TestEvaluate_NegativeKellyRejectedAtKellyGate(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)

	d, trace := e.Trace(context.Background(), signal(domain.SideYes, 0.5, 0.40), nil, account(1000), domain.PortfolioState{})

	require.False(t, d.IsAccepted())
	assert.Equal(t, domain.GateKelly, d.Rejection.Gate)
	assert.Equal(t, domain.CodeNonPositiveKelly, d.Rejection.Code)
	assert.Equal(t, sizing.GateState(5), trace[len(trace)-2])
	assert.Equal(t, sizing.StateRejected, trace[len(trace)-1])
}

func TestEvaluate_DegeneratePriceAlwaysRejectedAtKellyGate(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)
	ctx := context.Background()

	for _, price := range []float64{0, 1} {
		for _, side := range []domain.Side{domain.SideYes, domain.SideNo} {
			for _, raw := range []float64{0, 0.02, 0.5, 0.99, 1} {
				d := e.Evaluate(ctx, signal(side, price, raw), account(1000), domain.PortfolioState{})
				require.NotNil(t, d.Rejection, "price=%v side=%s raw=%v", price, side, raw)
				assert.Equal(t, domain.GateKelly, d.Rejection.Gate, "price=%v side=%s raw=%v", price, side, raw)
				assert.Equal(t, domain.CodeInvalidMarketPrice, d.Rejection.Code)
				assert.Zero(t, d.Prediction.RecommendedContracts)
			}
		}
	}
}

func TestEvaluate_ZeroCostContractRejectedAtCostGate(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)

	d := e.Evaluate(context.Background(), signal(domain.SideYes, 0.004, 0.5), account(1000), domain.PortfolioState{})

	require.NotNil(t, d.Rejection)
	assert.Equal(t, domain.GateCostPerContract, d.Rejection.Gate)
	assert.Equal(t, domain.CodeZeroCostContract, d.Rejection.Code)
	assert.Zero(t, d.Prediction.RecommendedContracts)
	assert.True(t, d.Prediction.RecommendedCost.IsZero())
}

func TestEvaluate_FirstFailingGateWins(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)

	// balance below floor and a degenerate price: gate 1 reports
	d, trace := e.Trace(context.Background(), signal(domain.SideYes, 0, 0.5), nil, account(50), domain.PortfolioState{})

	require.NotNil(t, d.Rejection)
	assert.Equal(t, domain.GateBalanceFloor, d.Rejection.Gate)
	assert.Equal(t, []sizing.State{sizing.StatePending, sizing.GateState(1), sizing.StateRejected}, trace)
}

func TestEvaluate_AcceptedTraceVisitsEveryGate(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)

	_, trace := e.Trace(context.Background(), signal(domain.SideYes, 0.5, 0.65), nil, account(1000), domain.PortfolioState{})

	want := []sizing.State{sizing.StatePending}
	for i := 1; i <= 7; i++ {
		want = append(want, sizing.GateState(i))
	}
	want = append(want, sizing.StateAccepted)
	assert.Equal(t, want, trace)
}

func TestEvaluate_GateRejections(t *testing.T) {
	full := domain.PortfolioState{Positions: make([]domain.Position, 20)}
	cases := []struct {
		name string
		sig  domain.Signal
		acct domain.AccountState
		pf   domain.PortfolioState
		gate domain.Gate
		code domain.RejectCode
	}{
		{"nan balance", signal(domain.SideYes, 0.5, 0.65), account(math.NaN()), domain.PortfolioState{}, domain.GateBalanceFloor, domain.CodeInvalidBalance},
		{"below floor", signal(domain.SideYes, 0.5, 0.65), account(74.99), domain.PortfolioState{}, domain.GateBalanceFloor, domain.CodeBalanceBelowFloor},
		{"daily cap", signal(domain.SideYes, 0.5, 0.65), domain.AccountState{Balance: 400, DeployedToday: 79.9}, domain.PortfolioState{}, domain.GateDailyCap, domain.CodeDailyCapExceeded},
		{"open positions count", signal(domain.SideYes, 0.5, 0.65), domain.AccountState{Balance: 1000, OpenPositions: 20}, domain.PortfolioState{}, domain.GateMaxPositions, domain.CodeMaxPositions},
		{"portfolio length", signal(domain.SideYes, 0.5, 0.65), account(1000), full, domain.GateMaxPositions, domain.CodeMaxPositions},
		{"small edge", signal(domain.SideYes, 0.5, 0.539), account(1000), domain.PortfolioState{}, domain.GateMinEdge, domain.CodeEdgeBelowMinimum},
		{"nan probability", signal(domain.SideYes, 0.5, math.NaN()), account(1000), domain.PortfolioState{}, domain.GateKelly, domain.CodeInvalidProbability},
		{"nan price", signal(domain.SideYes, math.NaN(), 0.6), account(1000), domain.PortfolioState{}, domain.GateKelly, domain.CodeInvalidMarketPrice},
		{"bad side", domain.Signal{Side: "maybe", MarketPrice: 0.5, RawProbability: 0.65}, account(1000), domain.PortfolioState{}, domain.GateKelly, domain.CodeInvalidSide},
		{"probability above one", signal(domain.SideYes, 0.5, 1.2), account(1000), domain.PortfolioState{}, domain.GateKelly, domain.CodeInvalidProbability},
	}
	e := newEngine(t, sizing.DefaultConfig(), identity)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := e.Evaluate(context.Background(), tc.sig, tc.acct, tc.pf)
			require.NotNil(t, d.Rejection)
			assert.Equal(t, tc.gate, d.Rejection.Gate)
			assert.Equal(t, tc.code, d.Rejection.Code)
			assert.Equal(t, tc.gate, d.Prediction.RejectedBy)
			assert.NotEmpty(t, d.Rejection.Reason)
			assert.Zero(t, d.Prediction.RecommendedContracts)
		})
	}
}

func TestEvaluate_MalformedRawProbabilityRejectedWithTable(t *testing.T) {
	calibrators := map[string]sizing.Calibrator{
		"identity": identity,
		"builtin":  calibration.New(calibsource.Builtin{}, "builtin"),
	}
	raws := []float64{math.Inf(1), math.Inf(-1), math.NaN(), 1.7, -0.2}

	for name, cal := range calibrators {
		e := newEngine(t, sizing.DefaultConfig(), cal)
		for _, raw := range raws {
			for _, side := range []domain.Side{domain.SideYes, domain.SideNo} {
				d := e.Evaluate(context.Background(), signal(side, 0.5, raw), account(1000), domain.PortfolioState{})

				require.NotNil(t, d.Rejection, "%s raw=%v side=%s", name, raw, side)
				assert.Equal(t, domain.GateKelly, d.Rejection.Gate, "%s raw=%v side=%s", name, raw, side)
				assert.Equal(t, domain.CodeInvalidProbability, d.Rejection.Code, "%s raw=%v side=%s", name, raw, side)
				assert.Zero(t, d.Prediction.RecommendedContracts)
				assert.True(t, d.Prediction.RecommendedCost.IsZero())
			}
		}
	}
}

func TestEvaluate_BuiltinTableStillSizesValidSignal(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), calibration.New(calibsource.Builtin{}, "builtin"))

	// 0.95 → 1.00 on the builtin curve
	d := e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.95), account(1000), domain.PortfolioState{})

	require.True(t, d.IsAccepted(), "rejection: %+v", d.Rejection)
	assert.InDelta(t, 1.0, d.Prediction.OurProbability, 1e-12)
	assert.Equal(t, 160, d.Prediction.RecommendedContracts)
}

func TestEvaluate_NonFiniteCalibrationRejectedAtEdgeGate(t *testing.T) {
	broken := calibFunc(func(float64) float64 { return math.NaN() })
	e := newEngine(t, sizing.DefaultConfig(), broken)

	d := e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.65), account(1000), domain.PortfolioState{})

	require.NotNil(t, d.Rejection)
	assert.Equal(t, domain.GateMinEdge, d.Rejection.Gate)
	assert.Equal(t, domain.CodeEdgeNotFinite, d.Rejection.Code)
}

func TestEvaluate_HugeBalanceCapsContracts(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)

	d := e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.65), account(1e20), domain.PortfolioState{})

	require.True(t, d.IsAccepted(), "rejection: %+v", d.Rejection)
	assert.Equal(t, int(sizing.MaxContracts), d.Prediction.RecommendedContracts)
	assert.Equal(t, "500000000.00", d.Prediction.RecommendedCost.StringFixed(2))
}

func TestEvaluate_BelowMinContracts(t *testing.T) {
	cfg := sizing.DefaultConfig()
	cfg.MinContracts = 10
	e := newEngine(t, cfg, identity)

	// f* = 0.16, kelly 0.25 → stake ≈ 4.00 → under 8 contracts < 10
	d := e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.58), account(100), domain.PortfolioState{})

	require.NotNil(t, d.Rejection)
	assert.Equal(t, domain.GateContracts, d.Rejection.Gate)
	assert.Equal(t, domain.CodeBelowMinContracts, d.Rejection.Code)
}

func TestEvaluate_ClipsToRemainingDailyBudget(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)

	// tier 1000 daily cap 350, 340 already deployed → 10 left → 20 contracts
	acct := domain.AccountState{Balance: 1000, DeployedToday: 340}
	d := e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.65), acct, domain.PortfolioState{})

	require.True(t, d.IsAccepted())
	assert.Equal(t, 20, d.Prediction.RecommendedContracts)
	assert.Equal(t, "10.00", d.Prediction.RecommendedCost.StringFixed(2))
}

func TestEvaluate_UsesCalibratedProbability(t *testing.T) {
	shrink := calibFunc(func(r float64) float64 { return 0.5 + (r-0.5)/2 })
	e := newEngine(t, sizing.DefaultConfig(), shrink)

	d := e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.70), account(1000), domain.PortfolioState{})

	assert.InDelta(t, 0.60, d.Prediction.OurProbability, 1e-12)
	assert.InDelta(t, 0.10, d.Prediction.Edge, 1e-12)
	assert.Equal(t, 0.70, d.Prediction.RawProbability)
}

func TestEvaluate_RejectedPredictionIsSerializable(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)
	d := e.Evaluate(context.Background(), signal(domain.SideYes, math.NaN(), math.NaN()), account(1000), domain.PortfolioState{})

	require.NotNil(t, d.Rejection)
	assert.False(t, math.IsNaN(d.Prediction.Edge))
	assert.False(t, math.IsNaN(d.Prediction.MarketPrice))
}

func TestEvaluate_DoesNotMutateSnapshots(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)
	pf := domain.PortfolioState{Positions: []domain.Position{{Market: "A", Contracts: 3, Cost: 1.5}}}
	acct := domain.AccountState{Balance: 1000, DeployedToday: 10, OpenPositions: 1}

	e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.65), acct, pf)

	assert.Equal(t, 10.0, acct.DeployedToday)
	assert.Len(t, pf.Positions, 1)
}

func TestEvaluate_ConcurrentCallsAgree(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)
	sig := signal(domain.SideYes, 0.5, 0.65)
	want := e.Evaluate(context.Background(), sig, account(1000), domain.PortfolioState{})

	var wg sync.WaitGroup
	got := make([]domain.Decision, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = e.Evaluate(context.Background(), sig, account(1000), domain.PortfolioState{})
		}(i)
	}
	wg.Wait()

	for _, d := range got {
		assert.Equal(t, want.Prediction.RecommendedContracts, d.Prediction.RecommendedContracts)
		assert.Equal(t, want.Prediction.ConfidenceScore, d.Prediction.ConfidenceScore)
	}
}

func TestEvaluate_RecordsEveryDecision(t *testing.T) {
	rec := &mockRecorder{}
	e := newEngine(t, sizing.DefaultConfig(), identity, sizing.WithRecorder(rec))

	e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.65), account(1000), domain.PortfolioState{})
	e.Evaluate(context.Background(), signal(domain.SideYes, 0.5, 0.65), account(10), domain.PortfolioState{})

	require.Len(t, rec.decisions, 2)
	assert.True(t, rec.decisions[0].IsAccepted())
	assert.False(t, rec.decisions[1].IsAccepted())
}

func TestEvaluateWithSentiment_FeedsScorer(t *testing.T) {
	e := newEngine(t, sizing.DefaultConfig(), identity)
	sig := signal(domain.SideYes, 0.5, 0.65)

	low := e.EvaluateWithSentiment(context.Background(), sig, &domain.SentimentContext{Alignment: domain.Float64(0)}, account(1000), domain.PortfolioState{})
	high := e.EvaluateWithSentiment(context.Background(), sig, &domain.SentimentContext{Alignment: domain.Float64(1)}, account(1000), domain.PortfolioState{})

	assert.InDelta(t, 0.10, high.Prediction.ConfidenceScore-low.Prediction.ConfidenceScore, 1e-12)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	sc, err := scoring.New(scoring.DefaultConfig())
	require.NoError(t, err)

	cfg := sizing.DefaultConfig()
	cfg.Tiers.Tiers[1].MinBalance = 750
	_, err = sizing.New(cfg, identity, sc)
	assert.Error(t, err)

	cfg = sizing.DefaultConfig()
	cfg.MaxOpenPositions = 0
	_, err = sizing.New(cfg, identity, sc)
	assert.Error(t, err)

	_, err = sizing.New(sizing.DefaultConfig(), nil, sc)
	assert.Error(t, err)
}
