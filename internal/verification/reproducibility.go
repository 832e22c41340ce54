package verification

import (
	"context"

	"github.com/pkg/errors"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/randsrc"
	"trade-montecarlo-lab/internal/simulation"
)

// Check names reported in Report.Checks.
const (
	CheckRerun  = "rerun"
	CheckReplay = "replay"
)

// Report contains the result of a reproducibility check.
type Report struct {
	Seed          uint64                      `json:"seed"`
	Params        domain.SimulationParameters `json:"params"`
	PathsCompared int                         `json:"paths_compared"`
	Checks        []string                    `json:"checks"`
	Passed        bool                        `json:"passed"`
	Divergences   []FieldDivergence           `json:"divergences,omitempty"`
	Truncated     bool                        `json:"truncated,omitempty"`
}

// VerifyReproducible runs params twice with seed and compares the batches,
// then replays every path sequentially on its own stream and compares again.
func VerifyReproducible(ctx context.Context, runner BatchRunner, params domain.SimulationParameters, seed uint64) (*Report, error) {
	first, err := runner.Run(ctx, params, seed)
	if err != nil {
		return nil, errors.Wrap(err, "first run")
	}
	second, err := runner.Run(ctx, params, seed)
	if err != nil {
		return nil, errors.Wrap(err, "second run")
	}

	report := &Report{
		Seed:          seed,
		Params:        params,
		PathsCompared: len(first.Paths),
		Checks:        []string{CheckRerun, CheckReplay},
	}
	report.add(CompareBatches(first, second))

	replayed, err := Replay(ctx, params, seed)
	if err != nil {
		return nil, errors.Wrap(err, "replay")
	}
	report.add(CompareBatches(first, replayed))

	report.Passed = len(report.Divergences) == 0
	return report, nil
}

// Replay rebuilds a batch one path at a time, path i on randsrc.ForStream(seed, i).
func Replay(ctx context.Context, params domain.SimulationParameters, seed uint64) (*domain.SimulationBatch, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	batch := &domain.SimulationBatch{
		Params:   params,
		Paths:    make([]domain.Path, params.SimulationCount),
		Outcomes: make([]domain.PathOutcome, params.SimulationCount),
	}
	for i := range batch.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch.Paths[i], batch.Outcomes[i] = simulation.SimulatePath(params, randsrc.ForStream(seed, uint64(i)))
		if batch.Outcomes[i].Ruined {
			batch.RuinCount++
			batch.RuinTrades = append(batch.RuinTrades, batch.Outcomes[i].RuinTrade)
		}
	}
	return batch, nil
}

func (r *Report) add(divergences []FieldDivergence) {
	for _, d := range divergences {
		if len(r.Divergences) >= MaxDivergences {
			r.Truncated = true
			return
		}
		r.Divergences = append(r.Divergences, d)
	}
}
