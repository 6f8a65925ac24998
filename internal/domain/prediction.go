package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Contract points shared by is-actionable, urgency and the minimum edge gate.
const (
	MinActionableEdge       = 0.04
	HighUrgencyEdge         = 0.08
	MinActionableConfidence = 0.55
	HighUrgencyConfidence   = 0.65
	OverrideConfidence      = 0.85
)

// Urgency classifies how quickly a prediction should be acted on.
type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyLow    Urgency = "LOW"
)

// Outcome is the settled result of a prediction.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
)

// ParseOutcome accepts "win" or "loss".
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeWin, OutcomeLoss:
		return Outcome(s), nil
	}
	return "", fmt.Errorf("domain.ParseOutcome: unknown outcome %q", s)
}

// Factors is the per-factor breakdown behind a confidence score.
type Factors struct {
	EdgeMagnitude float64 `json:"edge_magnitude"`
	SampleQuality float64 `json:"sample_quality"`
	Distance      float64 `json:"distance"`
	CategoryMatch float64 `json:"category_match"`
	Sentiment     float64 `json:"sentiment"`
}

// Prediction is the scored and sized view of a signal. Its JSON shape is
// what downstream repositories persist, so tags must stay stable.
type Prediction struct {
	ID             string  `json:"id"`
	Strategy       string  `json:"strategy"`
	Market         string  `json:"market"`
	Title          string  `json:"title,omitempty"`
	Side           Side    `json:"side"`
	MarketPrice    float64 `json:"market_price"`
	RawProbability float64 `json:"raw_probability"`
	OurProbability float64 `json:"our_probability"`
	Edge           float64 `json:"edge"`

	ConfidenceScore float64 `json:"confidence_score"`
	Factors         Factors `json:"confidence_factors"`

	KellyFraction        float64         `json:"kelly_fraction"`
	CostPerContract      decimal.Decimal `json:"cost_per_contract"`
	RecommendedContracts int             `json:"recommended_contracts"`
	RecommendedCost      decimal.Decimal `json:"recommended_cost"`

	// Set only when the engine rejected the candidate.
	RejectedBy   Gate   `json:"rejected_by,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`

	Expiry    time.Time `json:"expiry,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Outcome   *Outcome   `json:"outcome,omitempty"`
	PnL       *float64   `json:"pnl,omitempty"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// IsActionable reports whether the prediction carries enough edge and
// confidence to act on. Both bounds are inclusive.
func (p Prediction) IsActionable() bool {
	return p.Edge >= MinActionableEdge && p.ConfidenceScore >= MinActionableConfidence
}

// Urgency returns HIGH for a strong edge with good confidence or for very
// high confidence on its own, MEDIUM for any other actionable prediction.
func (p Prediction) Urgency() Urgency {
	if (p.Edge >= HighUrgencyEdge && p.ConfidenceScore >= HighUrgencyConfidence) ||
		p.ConfidenceScore >= OverrideConfidence {
		return UrgencyHigh
	}
	if p.IsActionable() {
		return UrgencyMedium
	}
	return UrgencyLow
}

// IsSettled reports whether an outcome has been recorded.
func (p Prediction) IsSettled() bool {
	return p.Outcome != nil
}

// Won reports whether the prediction settled as a win.
func (p Prediction) Won() bool {
	return p.Outcome != nil && *p.Outcome == OutcomeWin
}

// Reasons builds short human-readable justifications for display.
func (p Prediction) Reasons() []string {
	var reasons []string
	if p.Edge >= 0.10 {
		reasons = append(reasons, fmt.Sprintf("Large edge: +%.0f%%", p.Edge*100))
	}
	if p.Factors.SampleQuality >= 1 {
		reasons = append(reasons, "Deep history behind the estimate")
	}
	if p.Factors.Distance >= 0.95 {
		reasons = append(reasons, "Comfortable distance from the reference level")
	}
	if p.Factors.Sentiment >= 0.75 {
		reasons = append(reasons, "Crowd money agrees")
	} else if p.Factors.Sentiment <= 0.25 {
		reasons = append(reasons, "Crowd money disagrees")
	}
	if p.OurProbability != p.RawProbability {
		reasons = append(reasons, fmt.Sprintf("Calibrated %.1f%% -> %.1f%%",
			p.RawProbability*100, p.OurProbability*100))
	}
	return reasons
}
