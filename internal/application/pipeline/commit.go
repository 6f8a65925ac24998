package pipeline

import (
	"context"

	"github.com/alejandrodnm/predictor/internal/domain"
	"github.com/alejandrodnm/predictor/internal/scoring"
)

// EvaluateBatch decides a whole batch against one account snapshot.
//
// Signals are evaluated concurrently, ranked by confidence, then committed
// one at a time in rank order: every accepted decision is re-evaluated on
// the snapshot as updated by the commits before it, so the batch as a whole
// respects the daily cap and the position ceiling. Rejections from the
// first pass stand, because commits only tighten the limits.
func EvaluateBatch(
	ctx context.Context,
	engine Evaluator,
	signals []domain.Signal,
	acct domain.AccountState,
	pf domain.PortfolioState,
	workers int,
) []domain.Decision {
	if len(signals) == 0 {
		return nil
	}
	first := evaluateConcurrent(ctx, engine, signals, acct, pf, workers)
	order := scoring.Order(first, func(d domain.Decision) float64 { return d.Prediction.ConfidenceScore })

	runAcct, runPf := acct, pf.Clone()
	committed := 0
	out := make([]domain.Decision, 0, len(first))
	for _, i := range order {
		d := first[i]
		if !d.IsAccepted() {
			out = append(out, d)
			continue
		}
		if committed > 0 {
			d = reevaluate(ctx, engine, d, signals[i], runAcct, runPf)
		}
		if d.IsAccepted() {
			runAcct, runPf = domain.Commit(runAcct, runPf, d.Prediction)
			committed++
		}
		out = append(out, d)
	}
	return out
}

// reevaluate runs sig again on the running snapshot, keeping the identity of
// the first-pass prediction.
func reevaluate(ctx context.Context, engine Evaluator, prev domain.Decision, sig domain.Signal, acct domain.AccountState, pf domain.PortfolioState) domain.Decision {
	d := engine.Evaluate(ctx, sig, acct, pf)
	d.Prediction.ID = prev.Prediction.ID
	d.Prediction.CreatedAt = prev.Prediction.CreatedAt
	return d
}
