package sizing

import (
	"fmt"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// Config holds the risk limits enforced by the gates.
type Config struct {
	BalanceFloor     float64          `yaml:"balance_floor"`
	MaxOpenPositions int              `yaml:"max_open_positions"`
	MinContracts     int              `yaml:"min_contracts"`
	MinEdge          float64          `yaml:"min_edge"`
	Tiers            domain.TierTable `yaml:"tiers"`
}

// DefaultConfig returns the production risk limits.
func DefaultConfig() Config {
	return Config{
		BalanceFloor:     75,
		MaxOpenPositions: 20,
		MinContracts:     1,
		MinEdge:          domain.MinActionableEdge,
		Tiers:            domain.DefaultTierTable(),
	}
}

// Validate rejects limits the gates cannot work with.
func (c Config) Validate() error {
	if c.BalanceFloor < 0 {
		return fmt.Errorf("sizing: balance_floor must be non-negative")
	}
	if c.MaxOpenPositions <= 0 {
		return fmt.Errorf("sizing: max_open_positions must be positive")
	}
	if c.MinContracts <= 0 {
		return fmt.Errorf("sizing: min_contracts must be positive")
	}
	if !domain.IsFinite(c.MinEdge) || c.MinEdge < 0 || c.MinEdge >= 1 {
		return fmt.Errorf("sizing: min_edge %v outside [0,1)", c.MinEdge)
	}
	if err := c.Tiers.Validate(); err != nil {
		return fmt.Errorf("sizing: %w", err)
	}
	return nil
}
