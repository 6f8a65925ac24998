package domain

import "github.com/shopspring/decimal"

// Gate names the seven sizing gates, in evaluation order.
type Gate string

const (
	GateBalanceFloor    Gate = "balance_floor"
	GateDailyCap        Gate = "daily_cap"
	GateMaxPositions    Gate = "max_positions"
	GateMinEdge         Gate = "min_edge"
	GateKelly           Gate = "kelly"
	GateCostPerContract Gate = "cost_per_contract"
	GateContracts       Gate = "contracts"
)

// GateOrder is the fixed evaluation order.
var GateOrder = []Gate{
	GateBalanceFloor,
	GateDailyCap,
	GateMaxPositions,
	GateMinEdge,
	GateKelly,
	GateCostPerContract,
	GateContracts,
}

// Index returns the 1-based position of g in GateOrder, or 0.
func (g Gate) Index() int {
	for i, o := range GateOrder {
		if o == g {
			return i + 1
		}
	}
	return 0
}

// RejectCode is a stable, machine-readable rejection reason.
type RejectCode string

const (
	CodeInvalidBalance     RejectCode = "invalid_balance"
	CodeBalanceBelowFloor  RejectCode = "balance_below_floor"
	CodeDailyCapExceeded   RejectCode = "daily_cap_exceeded"
	CodeMaxPositions       RejectCode = "max_positions_reached"
	CodeEdgeNotFinite      RejectCode = "edge_not_finite"
	CodeEdgeBelowMinimum   RejectCode = "edge_below_minimum"
	CodeInvalidMarketPrice RejectCode = "invalid_market_price"
	CodeInvalidSide        RejectCode = "invalid_side"
	CodeInvalidProbability RejectCode = "invalid_probability"
	CodeNonPositiveKelly   RejectCode = "non_positive_kelly"
	CodeZeroCostContract   RejectCode = "zero_cost_contract"
	CodeBelowMinContracts  RejectCode = "below_min_contracts"
)

// Rejection explains which gate stopped a candidate and why.
type Rejection struct {
	Gate   Gate       `json:"gate"`
	Code   RejectCode `json:"code"`
	Reason string     `json:"reason"`
}

// Decision is the engine's verdict: exactly one of accepted or rejected.
// The Prediction is always populated with edge and confidence; on a
// rejection its contract count and cost are zero.
type Decision struct {
	Prediction Prediction `json:"prediction"`
	Rejection  *Rejection `json:"rejection,omitempty"`
}

// Accepted builds an accepted decision.
func Accepted(p Prediction) Decision {
	return Decision{Prediction: p}
}

// Rejected builds a rejected decision, zeroing any sizing on p.
func Rejected(p Prediction, r Rejection) Decision {
	p.RecommendedContracts = 0
	p.RecommendedCost = decimal.Zero
	p.KellyFraction = 0
	p.RejectedBy = r.Gate
	p.RejectReason = r.Reason
	return Decision{Prediction: p, Rejection: &r}
}

// IsAccepted reports whether every gate passed.
func (d Decision) IsAccepted() bool {
	return d.Rejection == nil
}
