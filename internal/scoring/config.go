package scoring

import (
	"errors"
	"fmt"
	"math"
)

// Neutral is the factor value used when an optional input is missing.
const Neutral = 0.5

// weightSumTolerance is how far the weights may drift from 1.0.
const weightSumTolerance = 1e-9

// Weights are the factor weights of the blended score. They must be
// positive and sum to 1.
type Weights struct {
	Edge      float64 `yaml:"edge"`
	Samples   float64 `yaml:"samples"`
	Distance  float64 `yaml:"distance"`
	Category  float64 `yaml:"category"`
	Sentiment float64 `yaml:"sentiment"`
}

// Sum adds the weights in factor order.
func (w Weights) Sum() float64 {
	return w.Edge + w.Samples + w.Distance + w.Category + w.Sentiment
}

// DistanceZone maps distances in [Min, Max) to Factor. Max <= 0 means
// unbounded above.
type DistanceZone struct {
	Min    float64 `yaml:"min"`
	Max    float64 `yaml:"max"`
	Factor float64 `yaml:"factor"`
}

func (z DistanceZone) contains(d float64) bool {
	return d >= z.Min && (z.Max <= 0 || d < z.Max)
}

// Config holds every tunable of the scorer.
type Config struct {
	Weights         Weights            `yaml:"weights"`
	EdgeCeiling     float64            `yaml:"edge_ceiling"`     // |edge| at which the edge factor saturates
	MinSamples      int                `yaml:"min_samples"`      // samples at which the sample factor saturates
	DistanceZones   []DistanceZone     `yaml:"distance_zones"`   // ordered by Min
	Categories      map[string]float64 `yaml:"categories"`       // category → factor
	UnknownCategory float64            `yaml:"unknown_category"` // factor for categories not in the map
}

// DefaultConfig returns the production weights and factor tables.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Edge:      0.30,
			Samples:   0.25,
			Distance:  0.20,
			Category:  0.15,
			Sentiment: 0.10,
		},
		EdgeCeiling: 0.15,
		MinSamples:  100,
		DistanceZones: []DistanceZone{
			{Min: 0, Max: 25, Factor: 0.60},
			{Min: 25, Max: 50, Factor: 0.80},
			{Min: 50, Max: 75, Factor: 0.95},
			{Min: 75, Max: 0, Factor: 1.00},
		},
		Categories: map[string]float64{
			"hourly": 1.0,
			"daily":  0.9,
		},
		UnknownCategory: Neutral,
	}
}

var ErrWeightSum = errors.New("scoring weights must sum to 1.0")

// Validate rejects weights that are not positive or do not sum to 1,
// factor values outside [0,1] and non-monotone distance zones.
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"edge": w.Edge, "samples": w.Samples, "distance": w.Distance,
		"category": w.Category, "sentiment": w.Sentiment,
	} {
		if math.IsNaN(v) || v <= 0 {
			return fmt.Errorf("scoring: weight %s must be positive, got %v", name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("scoring: weights sum to %.12f: %w", sum, ErrWeightSum)
	}
	if c.EdgeCeiling <= 0 {
		return fmt.Errorf("scoring: edge_ceiling must be positive")
	}
	if c.MinSamples <= 0 {
		return fmt.Errorf("scoring: min_samples must be positive")
	}
	if !unit(c.UnknownCategory) {
		return fmt.Errorf("scoring: unknown_category %v outside [0,1]", c.UnknownCategory)
	}
	for name, v := range c.Categories {
		if !unit(v) {
			return fmt.Errorf("scoring: category %q factor %v outside [0,1]", name, v)
		}
	}
	for i, z := range c.DistanceZones {
		if !unit(z.Factor) {
			return fmt.Errorf("scoring: distance zone %d factor %v outside [0,1]", i, z.Factor)
		}
		if z.Max > 0 && z.Max <= z.Min {
			return fmt.Errorf("scoring: distance zone %d is empty", i)
		}
		if i > 0 {
			prev := c.DistanceZones[i-1]
			if prev.Max <= 0 || z.Min != prev.Max {
				return fmt.Errorf("scoring: distance zone %d does not continue zone %d", i, i-1)
			}
			if z.Factor < prev.Factor {
				return fmt.Errorf("scoring: distance zones must be non-decreasing, zone %d drops to %v", i, z.Factor)
			}
		}
	}
	return nil
}

func unit(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}
