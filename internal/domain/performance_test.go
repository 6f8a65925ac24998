package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func settled(strategy string, prob float64, outcome Outcome, pnl float64) Prediction {
	return Prediction{Strategy: strategy, OurProbability: prob, Outcome: &outcome, PnL: &pnl}
}

func TestSummarize(t *testing.T) {
	preds := []Prediction{
		settled("spx", 0.8, OutcomeWin, 2),
		settled("spx", 0.6, OutcomeLoss, -3),
		settled("weather", 0.7, OutcomeWin, 1.5),
		{Strategy: "spx", OurProbability: 0.9}, // pending
	}

	perf := Summarize(time.Time{}, preds)

	assert.Equal(t, 3, perf.TotalPredictions)
	assert.Equal(t, 2, perf.Wins)
	assert.InDelta(t, 2.0/3.0, perf.Accuracy, 1e-12)
	assert.InDelta(t, 0.5, perf.TotalPnL, 1e-12)
	// ((0.2)² + (0.6)² + (0.3)²) / 3
	assert.InDelta(t, (0.04+0.36+0.09)/3, perf.BrierScore, 1e-12)
	assert.Equal(t, 2, perf.ByStrategy["spx"].Count)
	assert.InDelta(t, 0.5, perf.ByStrategy["spx"].Accuracy, 1e-12)
	assert.InDelta(t, 1.0, perf.ByStrategy["weather"].Accuracy, 1e-12)
}

func TestSummarize_Empty(t *testing.T) {
	perf := Summarize(time.Time{}, nil)
	assert.Zero(t, perf.TotalPredictions)
	assert.Zero(t, perf.Accuracy)
	assert.NotNil(t, perf.ByStrategy)
}

func TestSettlementPnL(t *testing.T) {
	p := Prediction{RecommendedContracts: 10, RecommendedCost: decimal.RequireFromString("6.50")}
	assert.InDelta(t, 3.50, SettlementPnL(p, OutcomeWin), 1e-12)
	assert.InDelta(t, -6.50, SettlementPnL(p, OutcomeLoss), 1e-12)
}
