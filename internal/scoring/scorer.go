package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// Scorer blends five signal-quality factors into one confidence score.
// It is stateless after construction and safe for concurrent use.
type Scorer struct {
	cfg Config
}

// New validates cfg and builds a Scorer.
func New(cfg Config) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scoring.New: %w", err)
	}
	return &Scorer{cfg: cfg}, nil
}

// Input is what the scorer looks at for one candidate.
type Input struct {
	Signal      domain.Signal
	Probability float64 // calibrated probability that Signal.Side wins
	Edge        float64
	Sentiment   *domain.SentimentContext // optional, overrides Signal.Sentiment
}

// Score returns the confidence in [0,1] and its factor breakdown.
//
//	score = w_edge·f_edge + w_samples·f_samples + w_distance·f_distance
//	      + w_category·f_category + w_sentiment·f_sentiment
func (s *Scorer) Score(in Input) (float64, domain.Factors) {
	f := domain.Factors{
		EdgeMagnitude: s.edgeFactor(in.Probability, in.Edge),
		SampleQuality: s.sampleFactor(in.Signal.Samples),
		Distance:      s.distanceFactor(in.Signal.Distance),
		CategoryMatch: s.categoryFactor(in.Signal.Category),
		Sentiment:     sentimentFactor(in.Signal, in.Sentiment),
	}
	return Combine(s.cfg.Weights, f), f
}

// ScorePrediction sets ConfidenceScore and Factors on p. The probability
// and edge are taken from p.
func (s *Scorer) ScorePrediction(p *domain.Prediction, sig domain.Signal, sctx *domain.SentimentContext) {
	p.ConfidenceScore, p.Factors = s.Score(Input{
		Signal:      sig,
		Probability: p.OurProbability,
		Edge:        p.Edge,
		Sentiment:   sctx,
	})
}

// Combine is the weighted sum of f, summed in fixed factor order and
// clamped to [0,1].
func Combine(w Weights, f domain.Factors) float64 {
	score := w.Edge * f.EdgeMagnitude
	score += w.Samples * f.SampleQuality
	score += w.Distance * f.Distance
	score += w.Category * f.CategoryMatch
	score += w.Sentiment * f.Sentiment
	return clamp01(score)
}

// Rank returns predictions ordered by ConfidenceScore descending. Ties keep
// their input order. The input slice is not modified.
func Rank(preds []domain.Prediction) []domain.Prediction {
	out := make([]domain.Prediction, 0, len(preds))
	for _, i := range Order(preds, func(p domain.Prediction) float64 { return p.ConfidenceScore }) {
		out = append(out, preds[i])
	}
	return out
}

// Order returns the indices of items sorted by score descending, ties in
// input order.
func Order[T any](items []T, score func(T) float64) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return score(items[idx[a]]) > score(items[idx[b]])
	})
	return idx
}

func (s *Scorer) edgeFactor(prob, edge float64) float64 {
	if !domain.IsFinite(prob) || !domain.IsFinite(edge) {
		return 0
	}
	return math.Min(math.Abs(edge)/s.cfg.EdgeCeiling, 1)
}

func (s *Scorer) sampleFactor(samples *int) float64 {
	if samples == nil {
		return Neutral
	}
	if *samples <= 0 {
		return 0
	}
	return math.Min(float64(*samples)/float64(s.cfg.MinSamples), 1)
}

func (s *Scorer) distanceFactor(distance *float64) float64 {
	if distance == nil || math.IsNaN(*distance) {
		return Neutral
	}
	d := math.Abs(*distance)
	for _, z := range s.cfg.DistanceZones {
		if z.contains(d) {
			return z.Factor
		}
	}
	return Neutral
}

func (s *Scorer) categoryFactor(category string) float64 {
	if category == "" {
		return Neutral
	}
	if v, ok := s.cfg.Categories[category]; ok {
		return v
	}
	return s.cfg.UnknownCategory
}

// sentimentFactor resolves crowd sentiment: explicit context first, then the
// signal's own sentiment mapped onto its side, then neutral.
func sentimentFactor(sig domain.Signal, sctx *domain.SentimentContext) float64 {
	if sctx != nil && sctx.Alignment != nil && !math.IsNaN(*sctx.Alignment) {
		return clamp01(*sctx.Alignment)
	}
	if sig.Sentiment != nil && !math.IsNaN(*sig.Sentiment) {
		ws := math.Max(-1, math.Min(1, *sig.Sentiment))
		if sig.Side == domain.SideNo {
			return (1 - ws) / 2
		}
		return (ws + 1) / 2
	}
	return Neutral
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
