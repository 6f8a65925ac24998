package pipeline

// concurrent.go: worker pool for evaluating a batch of signals in parallel.

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/alejandrodnm/predictor/internal/domain"
)

// evaluateConcurrent evaluates every signal against the same snapshot using
// a worker pool. Results keep the input order.
//
// If workers <= 0 it uses runtime.NumCPU() × 2.
func evaluateConcurrent(
	ctx context.Context,
	engine Evaluator,
	signals []domain.Signal,
	acct domain.AccountState,
	pf domain.PortfolioState,
	workers int,
) []domain.Decision {
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}
	if workers > len(signals) {
		workers = len(signals)
	}

	type work struct {
		idx    int
		signal domain.Signal
	}

	workCh := make(chan work, len(signals))
	decisions := make([]domain.Decision, len(signals))

	// Each worker writes only its own slots, so no lock is needed.
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				decisions[w.idx] = engine.Evaluate(ctx, w.signal, acct, pf.Clone())
			}
		}()
	}

	for i, sig := range signals {
		workCh <- work{idx: i, signal: sig}
	}
	close(workCh)
	wg.Wait()

	slog.Debug("concurrent evaluation complete",
		"signals", len(signals),
		"workers", workers,
	)
	return decisions
}
