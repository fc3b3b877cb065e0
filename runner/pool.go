package runner

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// RunOutcome pairs one implementation's report with its run error, if any
type RunOutcome struct {
	Report *Report
	Err    error
}

// Pool evaluates several implementations in parallel. Each implementation
// owns a disjoint subtree under the outputs and logs roots, so no
// cross-implementation locking is needed.
type Pool struct {
	logger  *zap.Logger
	runner  *Runner
	workers int
}

// NewPool creates a pool running at most workers evaluations concurrently
func NewPool(logger *zap.Logger, runner *Runner, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		logger:  logger,
		runner:  runner,
		workers: workers,
	}
}

// Run evaluates every implementation and returns one outcome per id. A
// failing implementation run never aborts the others.
func (p *Pool) Run(ctx context.Context, implIDs []string) map[string]*RunOutcome {
	outcomes := make(map[string]*RunOutcome, len(implIDs))
	var mu sync.Mutex

	work := make(chan string, len(implIDs))
	var wg sync.WaitGroup

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for implID := range work {
				report, err := p.runner.Run(ctx, implID)
				if err != nil {
					p.logger.Error("implementation run failed",
						zap.String("implementation", implID),
						zap.Error(err))
				}

				mu.Lock()
				outcomes[implID] = &RunOutcome{Report: report, Err: err}
				mu.Unlock()
			}
		}()
	}

	for _, implID := range implIDs {
		work <- implID
	}
	close(work)
	wg.Wait()

	return outcomes
}
