package domain

import "slices"

// AccountState is a read-only snapshot of the trading account.
// It is passed by value; the engine never writes it back.
type AccountState struct {
	Balance       float64 `json:"balance"`
	DeployedToday float64 `json:"deployed_today"`
	OpenPositions int     `json:"open_positions"`
}

// Position is one open position in the portfolio snapshot.
type Position struct {
	PredictionID string  `json:"prediction_id"`
	Market       string  `json:"market"`
	Side         Side    `json:"side"`
	Contracts    int     `json:"contracts"`
	Cost         float64 `json:"cost"`
}

// PortfolioState is the set of open positions at decision time.
type PortfolioState struct {
	Positions []Position `json:"positions"`
}

// Clone returns a copy that shares no backing array with p.
func (p PortfolioState) Clone() PortfolioState {
	return PortfolioState{Positions: slices.Clone(p.Positions)}
}

// Exposure sums the cost of all open positions.
func (p PortfolioState) Exposure() float64 {
	var total float64
	for _, pos := range p.Positions {
		total += pos.Cost
	}
	return total
}

// Commit returns the snapshots after an accepted prediction is booked.
// Used by callers that serialize several decisions against one snapshot.
func Commit(acct AccountState, pf PortfolioState, p Prediction) (AccountState, PortfolioState) {
	cost := p.RecommendedCost.InexactFloat64()
	acct.DeployedToday += cost
	acct.OpenPositions++

	next := pf.Clone()
	next.Positions = append(next.Positions, Position{
		PredictionID: p.ID,
		Market:       p.Market,
		Side:         p.Side,
		Contracts:    p.RecommendedContracts,
		Cost:         cost,
	})
	return acct, next
}
