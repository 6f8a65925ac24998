package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StrategyPerformance aggregates settled predictions of one strategy.
type StrategyPerformance struct {
	Count    int     `json:"count"`
	Wins     int     `json:"wins"`
	PnL      float64 `json:"pnl"`
	Accuracy float64 `json:"accuracy"`
}

// Performance summarises settled predictions created since a cutoff.
type Performance struct {
	Since            time.Time                      `json:"since"`
	TotalPredictions int                            `json:"total_predictions"`
	Wins             int                            `json:"wins"`
	Accuracy         float64                        `json:"accuracy"`
	BrierScore       float64                        `json:"brier_score"`
	TotalPnL         float64                        `json:"total_pnl"`
	ByStrategy       map[string]StrategyPerformance `json:"by_strategy"`
}

// Summarize computes a Performance over settled predictions. Unsettled
// entries are ignored.
func Summarize(since time.Time, preds []Prediction) Performance {
	perf := Performance{Since: since, ByStrategy: make(map[string]StrategyPerformance)}
	var brier float64
	for _, p := range preds {
		if !p.IsSettled() {
			continue
		}
		perf.TotalPredictions++
		s := perf.ByStrategy[p.Strategy]
		s.Count++

		actual := 0.0
		if p.Won() {
			actual = 1
			perf.Wins++
			s.Wins++
		}
		d := p.OurProbability - actual
		brier += d * d

		if p.PnL != nil {
			perf.TotalPnL += *p.PnL
			s.PnL += *p.PnL
		}
		perf.ByStrategy[p.Strategy] = s
	}
	if perf.TotalPredictions > 0 {
		perf.Accuracy = float64(perf.Wins) / float64(perf.TotalPredictions)
		perf.BrierScore = brier / float64(perf.TotalPredictions)
	}
	for name, s := range perf.ByStrategy {
		if s.Count > 0 {
			s.Accuracy = float64(s.Wins) / float64(s.Count)
		}
		perf.ByStrategy[name] = s
	}
	return perf
}

// SettlementPnL is the profit of an accepted prediction once settled:
// every winning contract pays $1, a loss forfeits the cost.
func SettlementPnL(p Prediction, o Outcome) float64 {
	if o == OutcomeWin {
		return decimal.NewFromInt(int64(p.RecommendedContracts)).Sub(p.RecommendedCost).InexactFloat64()
	}
	return p.RecommendedCost.Neg().InexactFloat64()
}
