package domain

import (
	"fmt"
	"math"
)

// TierThresholds are the fixed balance boundaries of the growth tiers.
// Balances below 500 fall in the first bucket.
var TierThresholds = []float64{0, 500, 1000, 2500, 5000}

// Tier holds the risk fractions applied while the balance is at or above
// MinBalance and below the next tier's MinBalance.
type Tier struct {
	MinBalance     float64 `yaml:"min_balance" json:"min_balance"`
	MaxTradePct    float64 `yaml:"max_trade_pct" json:"max_trade_pct"`       // fraction of balance per trade
	DailyDeployPct float64 `yaml:"daily_deploy_pct" json:"daily_deploy_pct"` // fraction of balance per day
	Kelly          float64 `yaml:"kelly" json:"kelly"`                       // fractional Kelly multiplier
}

// TierTable is the balance-bucketed limit table.
type TierTable struct {
	Tiers []Tier `yaml:"tiers" json:"tiers"`
	// Optional dollar floors: the per-trade and daily caps never drop below these.
	MinMaxTradeUSD float64 `yaml:"min_max_trade_usd" json:"min_max_trade_usd"`
	MinDailyCapUSD float64 `yaml:"min_daily_cap_usd" json:"min_daily_cap_usd"`
}

// Limits are the resolved dollar limits for one balance.
type Limits struct {
	Tier     Tier
	MaxTrade float64
	DailyCap float64
	Kelly    float64
}

// DefaultTierTable is conservative at small balances and loosens as the
// account grows.
func DefaultTierTable() TierTable {
	return TierTable{
		Tiers: []Tier{
			{MinBalance: 0, MaxTradePct: 0.05, DailyDeployPct: 0.20, Kelly: 0.25},
			{MinBalance: 500, MaxTradePct: 0.07, DailyDeployPct: 0.30, Kelly: 0.30},
			{MinBalance: 1000, MaxTradePct: 0.08, DailyDeployPct: 0.35, Kelly: 0.35},
			{MinBalance: 2500, MaxTradePct: 0.10, DailyDeployPct: 0.38, Kelly: 0.38},
			{MinBalance: 5000, MaxTradePct: 0.10, DailyDeployPct: 0.40, Kelly: 0.40},
		},
	}
}

// Validate enforces the fixed thresholds and sane fractions.
func (t TierTable) Validate() error {
	if len(t.Tiers) != len(TierThresholds) {
		return fmt.Errorf("tier table: want %d tiers, got %d", len(TierThresholds), len(t.Tiers))
	}
	for i, tier := range t.Tiers {
		if tier.MinBalance != TierThresholds[i] {
			return fmt.Errorf("tier %d: min_balance %.2f, want %.0f", i, tier.MinBalance, TierThresholds[i])
		}
		for name, v := range map[string]float64{
			"max_trade_pct":    tier.MaxTradePct,
			"daily_deploy_pct": tier.DailyDeployPct,
			"kelly":            tier.Kelly,
		} {
			if math.IsNaN(v) || v <= 0 || v > 1 {
				return fmt.Errorf("tier %d: %s %.4f outside (0,1]", i, name, v)
			}
		}
	}
	if t.MinMaxTradeUSD < 0 || t.MinDailyCapUSD < 0 {
		return fmt.Errorf("tier table: dollar floors must be non-negative")
	}
	return nil
}

// Select returns the tier for balance. Balances below every threshold
// (including negative ones) use the first tier.
func (t TierTable) Select(balance float64) Tier {
	if len(t.Tiers) == 0 {
		return Tier{}
	}
	selected := t.Tiers[0]
	for _, tier := range t.Tiers[1:] {
		if balance >= tier.MinBalance {
			selected = tier
		}
	}
	return selected
}

// Limits resolves the dollar caps for balance.
func (t TierTable) Limits(balance float64) Limits {
	tier := t.Select(balance)
	return Limits{
		Tier:     tier,
		MaxTrade: math.Max(t.MinMaxTradeUSD, balance*tier.MaxTradePct),
		DailyCap: math.Max(t.MinDailyCapUSD, balance*tier.DailyDeployPct),
		Kelly:    tier.Kelly,
	}
}
