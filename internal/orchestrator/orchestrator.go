// Package orchestrator coordinates a full engine run.
// Flow: simulation → summary statistics, or sweep grid, with metrics and logging around each.
package orchestrator

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/idhash"
	"trade-montecarlo-lab/internal/metrics"
	"trade-montecarlo-lab/internal/observability"
	"trade-montecarlo-lab/internal/randsrc"
	"trade-montecarlo-lab/internal/simulation"
	"trade-montecarlo-lab/internal/sweep"
	"trade-montecarlo-lab/internal/verification"
)

// Orchestrator runs simulations, sweeps and reproducibility checks.
type Orchestrator struct {
	simRunner   *simulation.Runner
	sweepRunner *sweep.Runner
	logger      *zap.Logger
	now         func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	Workers int // <= 0 means runtime.NumCPU()
	Logger  *zap.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		simRunner:   simulation.NewRunner(simulation.RunnerOptions{Workers: opts.Workers, Logger: logger}),
		sweepRunner: sweep.NewRunner(sweep.RunnerOptions{Workers: opts.Workers, Logger: logger}),
		logger:      logger.Named("orchestrator"),
		now:         time.Now,
	}
}

// RunResult contains a simulated batch and its statistics.
type RunResult struct {
	RunID    string
	Seed     uint64
	Params   domain.SimulationParameters
	Batch    *domain.SimulationBatch
	Summary  *domain.SummaryStatistics
	Duration time.Duration
}

// SweepResult contains a computed sweep grid.
type SweepResult struct {
	SweepID  string
	Seed     uint64
	Base     domain.SimulationParameters
	Grid     *domain.SweepGrid
	Duration time.Duration
}

// ResolveSeed returns seed, or a clock-derived seed when seed is 0.
func ResolveSeed(seed uint64) uint64 {
	if seed == 0 {
		return randsrc.ClockSeed()
	}
	return seed
}

// Run simulates a batch and summarizes it.
// A zero seed is replaced by a clock-derived one; the seed actually used is returned.
func (o *Orchestrator) Run(ctx context.Context, params domain.SimulationParameters, seed uint64) (*RunResult, error) {
	seed = ResolveSeed(seed)
	start := o.now()

	batch, err := o.simRunner.Run(ctx, params, seed)
	if err != nil {
		o.finish(observability.KindSimulate, start, err)
		return nil, errors.Wrap(err, "simulate")
	}

	summary, err := metrics.Summarize(batch, params)
	if err != nil {
		o.finish(observability.KindSimulate, start, err)
		return nil, errors.Wrap(err, "summarize")
	}

	result := &RunResult{
		RunID:    idhash.ComputeRunID(params, seed),
		Seed:     seed,
		Params:   params,
		Batch:    batch,
		Summary:  summary,
		Duration: o.finish(observability.KindSimulate, start, nil),
	}

	observability.RecordBatch(params.SimulationCount, params.TradeCount, batch.RuinCount,
		summary.RuinRate, summary.Median, o.now().Unix())

	o.logger.Info("simulation complete",
		zap.String("run_id", result.RunID),
		zap.Uint64("seed", seed),
		zap.Int("paths", params.SimulationCount),
		zap.Int("trades", params.TradeCount),
		zap.Float64("median", summary.Median),
		zap.Float64("ruin_rate", summary.RuinRate),
		zap.Duration("elapsed", result.Duration),
	)

	return result, nil
}

// Sweep computes the risk × winrate grid around base.
func (o *Orchestrator) Sweep(ctx context.Context, base domain.SimulationParameters, grid sweep.Grid, seed uint64) (*SweepResult, error) {
	seed = ResolveSeed(seed)
	start := o.now()

	cells, err := o.sweepRunner.Run(ctx, base, grid, seed)
	if err != nil {
		o.finish(observability.KindSweep, start, err)
		return nil, errors.Wrap(err, "sweep")
	}

	result := &SweepResult{
		SweepID: idhash.ComputeSweepID(base, grid.RiskPcts, grid.WinratePcts,
			grid.TrialsPerCell, grid.TradesPerCell, seed),
		Seed:     seed,
		Base:     base,
		Grid:     cells,
		Duration: o.finish(observability.KindSweep, start, nil),
	}

	observability.RecordSweep(len(grid.RiskPcts)*len(grid.WinratePcts), o.now().Unix())

	o.logger.Info("sweep complete",
		zap.String("sweep_id", result.SweepID),
		zap.Uint64("seed", seed),
		zap.Int("risk_levels", len(grid.RiskPcts)),
		zap.Int("winrate_levels", len(grid.WinratePcts)),
		zap.Duration("elapsed", result.Duration),
	)

	return result, nil
}

// Verify runs params twice with the same seed and compares the results.
func (o *Orchestrator) Verify(ctx context.Context, params domain.SimulationParameters, seed uint64) (*verification.Report, error) {
	seed = ResolveSeed(seed)
	start := o.now()

	report, err := verification.VerifyReproducible(ctx, o.simRunner, params, seed)
	if err != nil {
		o.finish(observability.KindVerify, start, err)
		return nil, errors.Wrap(err, "verify")
	}
	o.finish(observability.KindVerify, start, nil)

	if !report.Passed {
		o.logger.Warn("reproducibility check failed",
			zap.Uint64("seed", seed),
			zap.Int("divergences", len(report.Divergences)),
		)
	}
	return report, nil
}

// finish records run metrics and returns the elapsed time.
func (o *Orchestrator) finish(kind string, start time.Time, err error) time.Duration {
	elapsed := o.now().Sub(start)
	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
		o.logger.Error("run failed", zap.String("kind", kind), zap.Error(err))
	}
	observability.RecordRun(kind, status, elapsed.Seconds())
	return elapsed
}
