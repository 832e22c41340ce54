// Package simulation generates Monte Carlo equity paths for a fixed-edge strategy.
package simulation

import (
	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/randsrc"
)

// Simulate runs params.SimulationCount independent paths drawing from a single source.
// Paths are generated in order, so a seeded source makes the batch reproducible.
// Returns domain.ErrInvalidParameter before doing any work if params are out of range.
func Simulate(params domain.SimulationParameters, rng randsrc.Source) (*domain.SimulationBatch, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	batch := newBatch(params)
	for i := 0; i < params.SimulationCount; i++ {
		path, outcome := SimulatePath(params, rng)
		batch.Paths[i] = path
		batch.Outcomes[i] = outcome
	}
	tallyRuins(batch)

	return batch, nil
}

// SimulatePath generates one path of params.TradeCount trades.
//
// Ruin is checked before each trade: once the balance is at or below the
// liquidation threshold it is forced to zero for every remaining step and no
// further draws are taken. Drawdown is tracked on non-ruined steps only.
// params must already be valid.
func SimulatePath(params domain.SimulationParameters, rng randsrc.Source) (domain.Path, domain.PathOutcome) {
	threshold := params.LiquidationThreshold()

	balance := params.StartingBalance
	peak := balance
	maxDrawdown := 0.0
	ruinTrade := 0

	path := make(domain.Path, 1, params.TradeCount+1)
	path[0] = balance

	for t := 1; t <= params.TradeCount; t++ {
		if balance <= threshold {
			balance = 0
			if ruinTrade == 0 {
				ruinTrade = t
			}
			path = append(path, 0)
			continue
		}

		win := DrawWin(rng, params.WinProbability)
		balance = ApplyTrade(balance, params.RiskFraction, params.RewardRiskRatio, win)

		if balance > peak {
			peak = balance
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - balance) / peak
		}
		if dd > maxDrawdown {
			maxDrawdown = dd
		}

		path = append(path, max(balance, 0))
	}

	return path, domain.PathOutcome{
		FinalBalance: path.Final(),
		MaxDrawdown:  maxDrawdown,
		Ruined:       ruinTrade != 0,
		RuinTrade:    ruinTrade,
	}
}

func newBatch(params domain.SimulationParameters) *domain.SimulationBatch {
	return &domain.SimulationBatch{
		Params:   params,
		Paths:    make([]domain.Path, params.SimulationCount),
		Outcomes: make([]domain.PathOutcome, params.SimulationCount),
	}
}

// tallyRuins fills RuinCount and RuinTrades from the outcomes, one entry per ruined path.
func tallyRuins(batch *domain.SimulationBatch) {
	batch.RuinCount = 0
	batch.RuinTrades = batch.RuinTrades[:0]
	for _, o := range batch.Outcomes {
		if o.Ruined {
			batch.RuinCount++
			batch.RuinTrades = append(batch.RuinTrades, o.RuinTrade)
		}
	}
}
