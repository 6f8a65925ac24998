package domain

import (
	"fmt"
	"strings"
	"time"
)

// Side is the contract side a signal wants to buy.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// ParseSide normalizes "YES", "Yes", " no " and friends.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideYes:
		return SideYes, nil
	case SideNo:
		return SideNo, nil
	}
	return "", fmt.Errorf("domain.ParseSide: unknown side %q", s)
}

// Valid reports whether the side is yes or no.
func (s Side) Valid() bool {
	return s == SideYes || s == SideNo
}

// Signal is a raw trade candidate produced by a strategy module.
// MarketPrice is always the YES price; RawProbability is the model's
// probability that the chosen side wins.
type Signal struct {
	Strategy       string    `json:"strategy" yaml:"strategy"`
	Market         string    `json:"market" yaml:"market"`
	Title          string    `json:"title,omitempty" yaml:"title,omitempty"`
	Side           Side      `json:"side" yaml:"side"`
	MarketPrice    float64   `json:"market_price" yaml:"market_price"`
	RawProbability float64   `json:"raw_probability" yaml:"raw_probability"`
	Expiry         time.Time `json:"expiry,omitempty" yaml:"expiry,omitempty"`

	// Optional context. nil means "not supplied" and scores neutral.
	Sentiment *float64 `json:"sentiment,omitempty" yaml:"sentiment,omitempty"` // -1..+1, positive favours YES
	Samples   *int     `json:"samples,omitempty" yaml:"samples,omitempty"`     // historical observations behind the estimate
	Distance  *float64 `json:"distance,omitempty" yaml:"distance,omitempty"`   // distance from the reference level
	Category  string   `json:"category,omitempty" yaml:"category,omitempty"`   // event category, e.g. "hourly"
}

// SidePrice returns the price of one contract on the signal's side as a
// fraction of the $1 payout: the YES price for yes, its complement for no.
func SidePrice(side Side, yesPrice float64) float64 {
	if side == SideNo {
		return 1 - yesPrice
	}
	return yesPrice
}

// SentimentContext is optional crowd context supplied by the caller
// (e.g. whale alignment already normalized to 0..1 for this side).
// It takes precedence over Signal.Sentiment.
type SentimentContext struct {
	Alignment *float64 `json:"alignment,omitempty"`
}

// Float64 and Int are helpers for building optional signal fields.
func Float64(v float64) *float64 { return &v }

func Int(v int) *int { return &v }
