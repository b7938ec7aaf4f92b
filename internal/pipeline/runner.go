package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"slippage/internal/models"
)

// Runner bounds how many analyses run at once and how long a caller waits.
//
// A caller whose deadline expires gets its error immediately. The analysis
// itself stops at its next stage boundary and keeps its pool slot until then.
type Runner struct {
	analyzer *Analyzer
	sem      *semaphore.Weighted
	timeout  time.Duration
}

// NewRunner creates a runner with poolSize concurrent slots. A zero timeout
// leaves deadlines to the caller's context.
func NewRunner(analyzer *Analyzer, poolSize int, timeout time.Duration) *Runner {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Runner{
		analyzer: analyzer,
		sem:      semaphore.NewWeighted(int64(poolSize)),
		timeout:  timeout,
	}
}

// Analyzer returns the wrapped analyzer.
func (r *Runner) Analyzer() *Analyzer {
	return r.analyzer
}

type outcome struct {
	result *models.AnalysisResult
	err    error
}

// Run executes one analysis on the pool.
func (r *Runner) Run(ctx context.Context, snapshots []models.Snapshot, params models.Params) (*models.AnalysisResult, error) {
	if err := r.analyzer.ValidateParams(params); err != nil {
		return nil, err
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for analysis slot: %w", err)
	}

	done := make(chan outcome, 1)
	go func() {
		defer r.sem.Release(1)
		res, err := r.analyzer.Analyze(ctx, snapshots, params)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("analysis abandoned: %w", ctx.Err())
	}
}
