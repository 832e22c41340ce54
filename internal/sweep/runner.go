package sweep

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/randsrc"
)

// Runner fills sweep grids in parallel, one goroutine slot per cell.
// Cell (i, j) draws from randsrc.ForStream(seed, i*len(winrates)+j).
type Runner struct {
	workers int
	logger  *zap.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Workers int // <= 0 means runtime.NumCPU()
	Logger  *zap.Logger
}

// NewRunner creates a parallel sweep runner.
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

// Run computes the grid for base. Results depend only on (base, grid, seed).
func (r *Runner) Run(ctx context.Context, base domain.SimulationParameters, grid Grid, seed uint64) (*domain.SweepGrid, error) {
	if err := validate(base, grid); err != nil {
		return nil, err
	}

	start := time.Now()
	out := newSweepGrid(grid)
	cols := len(grid.WinratePcts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, risk := range grid.RiskPcts {
		for j, winrate := range grid.WinratePcts {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				rng := randsrc.ForStream(seed, uint64(i*cols+j))
				median := CellMedian(base, risk, winrate, grid.TrialsPerCell, grid.TradesPerCell, rng)
				if err := checkCell(risk, winrate, median); err != nil {
					return err
				}
				out.Cells[i][j] = median
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.logger.Debug("sweep computed",
		zap.Int("rows", len(grid.RiskPcts)),
		zap.Int("cols", cols),
		zap.Int("trials_per_cell", grid.TrialsPerCell),
		zap.Duration("elapsed", time.Since(start)),
	)

	return out, nil
}
