package domain

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

var (
	ErrUndefinedOdds = errors.New("payout odds undefined for market price outside (0,1)")
	ErrInvalidSide   = errors.New("side must be yes or no")
)

// Edge is the calibrated win probability minus the price paid for the side.
func Edge(side Side, yesPrice, probability float64) float64 {
	return probability - SidePrice(side, yesPrice)
}

// PayoutOdds returns b, the net payout per unit staked on a binary contract.
//
//	yes: b = (1 - m) / m
//	no:  b = m / (1 - m)
func PayoutOdds(side Side, yesPrice float64) (float64, error) {
	if !side.Valid() {
		return 0, ErrInvalidSide
	}
	if math.IsNaN(yesPrice) || yesPrice <= 0 || yesPrice >= 1 {
		return 0, ErrUndefinedOdds
	}
	if side == SideNo {
		return yesPrice / (1 - yesPrice), nil
	}
	return (1 - yesPrice) / yesPrice, nil
}

// KellyFraction returns the full Kelly stake f* = (b·p − q) / b.
// Returns 0 when b is not positive.
func KellyFraction(b, p float64) float64 {
	if b <= 0 {
		return 0
	}
	q := 1 - p
	return (b*p - q) / b
}

// ContractCost is the price of one contract on the given side, rounded to
// whole cents the way exchanges quote it.
func ContractCost(side Side, yesPrice float64) decimal.Decimal {
	return decimal.NewFromFloat(SidePrice(side, yesPrice)).Round(2)
}

// IsFinite reports whether v is neither NaN nor ±Inf.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
