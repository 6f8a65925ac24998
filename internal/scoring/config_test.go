package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/predictor/internal/scoring"
)

func TestDefaultConfig_Valid(t *testing.T) {
	require.NoError(t, scoring.DefaultConfig().Validate())
}

func TestValidate_WeightSum(t *testing.T) {
	cfg := scoring.DefaultConfig()
	cfg.Weights.Sentiment = 0.11
	assert.ErrorIs(t, cfg.Validate(), scoring.ErrWeightSum)

	_, err := scoring.New(cfg)
	assert.ErrorIs(t, err, scoring.ErrWeightSum)
}

func TestValidate_NonPositiveWeight(t *testing.T) {
	cfg := scoring.DefaultConfig()
	cfg.Weights.Edge = 0
	cfg.Weights.Samples = 0.55
	assert.Error(t, cfg.Validate())
}

func TestValidate_DistanceZonesMustBeMonotone(t *testing.T) {
	cfg := scoring.DefaultConfig()
	cfg.DistanceZones[2].Factor = 0.5
	assert.Error(t, cfg.Validate())

	cfg = scoring.DefaultConfig()
	cfg.DistanceZones[1].Min = 30
	assert.Error(t, cfg.Validate(), "gap between zones")
}

func TestValidate_CategoryRange(t *testing.T) {
	cfg := scoring.DefaultConfig()
	cfg.Categories["weekly"] = 1.2
	assert.Error(t, cfg.Validate())
}
