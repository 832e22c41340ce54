package simulation

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/randsrc"
)

// cancelCheckEvery is how many paths a worker runs between context checks.
const cancelCheckEvery = 64

// Runner generates batches in parallel.
// Path i always draws from randsrc.ForStream(seed, i), so a batch depends only
// on (params, seed) and not on the worker count.
type Runner struct {
	workers int
	logger  *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Workers int // <= 0 means runtime.NumCPU()
	Logger  *zap.Logger
}

// NewRunner creates a parallel simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{workers: workers, logger: logger}
}

// Workers returns the configured parallelism.
func (r *Runner) Workers() int {
	return r.workers
}

// Run simulates a batch for params using per-path sources derived from seed.
// Returns ctx.Err() if cancelled before all paths complete.
func (r *Runner) Run(ctx context.Context, params domain.SimulationParameters, seed uint64) (*domain.SimulationBatch, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	batch := newBatch(params)

	workers := min(r.workers, params.SimulationCount)
	g, gctx := errgroup.WithContext(ctx)

	// Contiguous chunks: worker w owns paths [lo, hi).
	chunk := (params.SimulationCount + workers - 1) / workers
	for lo := 0; lo < params.SimulationCount; lo += chunk {
		hi := min(lo+chunk, params.SimulationCount)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if (i-lo)%cancelCheckEvery == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				path, outcome := SimulatePath(params, randsrc.ForStream(seed, uint64(i)))
				batch.Paths[i] = path
				batch.Outcomes[i] = outcome
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	tallyRuins(batch)

	r.logger.Debug("batch simulated",
		zap.Int("paths", params.SimulationCount),
		zap.Int("trades", params.TradeCount),
		zap.Int("workers", workers),
		zap.Int("ruined", batch.RuinCount),
		zap.Duration("elapsed", time.Since(start)),
	)

	return batch, nil
}
