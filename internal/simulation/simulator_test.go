package simulation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/randsrc"
)

const (
	forceWin  = 0.0
	forceLoss = 0.999
)

func singleTradeParams() domain.SimulationParameters {
	return domain.SimulationParameters{
		StartingBalance: 100,
		WinProbability:  0.5,
		RewardRiskRatio: 2,
		RiskFraction:    0.02,
		TradeCount:      1,
		SimulationCount: 1,
		LiquidationPct:  0,
	}
}

func TestApplyTrade(t *testing.T) {
	assert.Equal(t, 104.0, ApplyTrade(100, 0.02, 2, true))
	assert.Equal(t, 98.0, ApplyTrade(100, 0.02, 2, false))
	assert.Equal(t, 100.0, ApplyTrade(100, 0.02, 0, true), "zero reward/risk wins nothing")
	assert.Equal(t, 0.0, ApplyTrade(100, 1, 2, false), "full risk loses everything")
}

func TestDrawWin(t *testing.T) {
	assert.True(t, DrawWin(randsrc.NewSequence(0.49), 0.5))
	assert.False(t, DrawWin(randsrc.NewSequence(0.5), 0.5))
	assert.False(t, DrawWin(randsrc.NewSequence(0), 0), "zero probability never wins")
	assert.True(t, DrawWin(randsrc.NewSequence(0.999999), 1), "probability one always wins")
}

func TestSimulate_ForcedWin(t *testing.T) {
	batch, err := Simulate(singleTradeParams(), randsrc.NewSequence(forceWin))
	require.NoError(t, err)

	require.Len(t, batch.Paths, 1)
	assert.Equal(t, domain.Path{100, 104}, batch.Paths[0])
	assert.Equal(t, 104.0, batch.Outcomes[0].FinalBalance)
	assert.Equal(t, 0.0, batch.Outcomes[0].MaxDrawdown)
	assert.False(t, batch.Outcomes[0].Ruined)
	assert.Zero(t, batch.RuinCount)
}

func TestSimulate_ForcedLoss(t *testing.T) {
	batch, err := Simulate(singleTradeParams(), randsrc.NewSequence(forceLoss))
	require.NoError(t, err)

	assert.Equal(t, domain.Path{100, 98}, batch.Paths[0])
	assert.InDelta(t, 0.02, batch.Outcomes[0].MaxDrawdown, 1e-12)
}

func TestSimulate_FullLiquidationThreshold(t *testing.T) {
	params := singleTradeParams()
	params.LiquidationPct = 100
	params.TradeCount = 10
	params.SimulationCount = 25

	seq := randsrc.NewSequence(forceWin)
	batch, err := Simulate(params, seq)
	require.NoError(t, err)

	assert.Equal(t, 25, batch.RuinCount)
	assert.Len(t, batch.RuinTrades, 25)
	assert.Zero(t, seq.Calls(), "ruined paths take no draws")

	for i, o := range batch.Outcomes {
		assert.True(t, o.Ruined, "path %d", i)
		assert.Equal(t, 1, o.RuinTrade, "path %d", i)
		assert.Equal(t, 0.0, o.FinalBalance, "path %d", i)
		assert.Equal(t, 0.0, o.MaxDrawdown, "path %d", i)
		assert.Equal(t, 100.0, batch.Paths[i][0])
		for _, b := range batch.Paths[i][1:] {
			assert.Equal(t, 0.0, b)
		}
	}
}

func TestSimulate_StickyRuin(t *testing.T) {
	params := domain.SimulationParameters{
		StartingBalance: 100,
		WinProbability:  0.5,
		RewardRiskRatio: 1,
		RiskFraction:    0.5,
		TradeCount:      5,
		SimulationCount: 1,
		LiquidationPct:  30,
	}

	seq := randsrc.NewSequence(forceLoss, forceLoss, forceWin, forceWin)
	batch, err := Simulate(params, seq)
	require.NoError(t, err)

	// 100 -> 50 -> 25 (<= 30) -> ruined at trade 3, zero afterwards
	assert.Equal(t, domain.Path{100, 50, 25, 0, 0, 0}, batch.Paths[0])
	assert.Equal(t, 2, seq.Calls())

	o := batch.Outcomes[0]
	assert.True(t, o.Ruined)
	assert.Equal(t, 3, o.RuinTrade)
	assert.Equal(t, 0.0, o.FinalBalance)
	assert.InDelta(t, 0.75, o.MaxDrawdown, 1e-12, "forced zero steps do not extend drawdown")
	assert.Equal(t, 1, batch.RuinCount)
	assert.Equal(t, []int{3}, batch.RuinTrades)
}

func TestSimulate_BreachOnLastTradeIsNotRuin(t *testing.T) {
	params := domain.SimulationParameters{
		StartingBalance: 100,
		WinProbability:  0.5,
		RewardRiskRatio: 1,
		RiskFraction:    0.5,
		TradeCount:      2,
		SimulationCount: 1,
		LiquidationPct:  30,
	}

	batch, err := Simulate(params, randsrc.NewSequence(forceLoss))
	require.NoError(t, err)

	// Ruin is only detected before a trade, so a breach on the final trade stands.
	assert.Equal(t, domain.Path{100, 50, 25}, batch.Paths[0])
	assert.False(t, batch.Outcomes[0].Ruined)
	assert.Equal(t, 25.0, batch.Outcomes[0].FinalBalance)
	assert.Zero(t, batch.RuinCount)
}

func TestSimulate_TotalLossWithZeroThreshold(t *testing.T) {
	params := singleTradeParams()
	params.RiskFraction = 1
	params.TradeCount = 3

	batch, err := Simulate(params, randsrc.NewSequence(forceLoss))
	require.NoError(t, err)

	assert.Equal(t, domain.Path{100, 0, 0, 0}, batch.Paths[0])
	assert.Equal(t, 1.0, batch.Outcomes[0].MaxDrawdown)
	assert.Equal(t, 2, batch.Outcomes[0].RuinTrade)
}

func TestSimulate_NonDecreasingPathHasZeroDrawdown(t *testing.T) {
	params := singleTradeParams()
	params.TradeCount = 20
	params.SimulationCount = 3

	batch, err := Simulate(params, randsrc.NewSequence(forceWin))
	require.NoError(t, err)

	for _, o := range batch.Outcomes {
		assert.Equal(t, 0.0, o.MaxDrawdown)
	}
}

func TestSimulate_ZeroRewardRisk(t *testing.T) {
	params := singleTradeParams()
	params.RewardRiskRatio = 0
	params.TradeCount = 4

	batch, err := Simulate(params, randsrc.NewSequence(forceWin))
	require.NoError(t, err)

	assert.Equal(t, domain.Path{100, 100, 100, 100, 100}, batch.Paths[0])
}

func TestSimulate_InvalidParameters(t *testing.T) {
	params := singleTradeParams()
	params.SimulationCount = 0

	seq := randsrc.NewSequence()
	batch, err := Simulate(params, seq)

	require.Error(t, err)
	assert.Nil(t, batch)
	assert.True(t, errors.Is(err, domain.ErrInvalidParameter))
	assert.Contains(t, err.Error(), "simulation_count")
	assert.Zero(t, seq.Calls())
}

func TestSimulate_Invariants(t *testing.T) {
	params := domain.SimulationParameters{
		StartingBalance: 250,
		WinProbability:  0.35,
		RewardRiskRatio: 1.5,
		RiskFraction:    0.2,
		TradeCount:      120,
		SimulationCount: 300,
		LiquidationPct:  10,
	}
	threshold := params.LiquidationThreshold()

	batch, err := Simulate(params, randsrc.New(2024))
	require.NoError(t, err)
	require.Len(t, batch.Paths, params.SimulationCount)
	require.Len(t, batch.Outcomes, params.SimulationCount)

	ruined := 0
	for i, path := range batch.Paths {
		require.Len(t, path, params.TradeCount+1, "path %d", i)
		assert.Equal(t, params.StartingBalance, path[0])

		firstRuin := 0
		for t2 := 1; t2 < len(path); t2++ {
			assert.GreaterOrEqual(t, path[t2], 0.0)
			if firstRuin != 0 {
				assert.Equal(t, 0.0, path[t2], "path %d step %d after ruin", i, t2)
			} else if path[t2-1] <= threshold {
				firstRuin = t2
			}
		}

		o := batch.Outcomes[i]
		assert.Equal(t, firstRuin, o.RuinTrade, "path %d", i)
		assert.Equal(t, firstRuin != 0, o.Ruined)
		assert.Equal(t, path.Final(), o.FinalBalance)
		assert.GreaterOrEqual(t, o.MaxDrawdown, 0.0)
		assert.LessOrEqual(t, o.MaxDrawdown, 1.0)
		if o.Ruined {
			ruined++
		}
	}

	assert.Equal(t, ruined, batch.RuinCount)
	assert.Len(t, batch.RuinTrades, ruined)
	assert.Greater(t, ruined, 0, "these parameters should ruin some paths")
}

func TestSimulate_Deterministic(t *testing.T) {
	params := singleTradeParams()
	params.TradeCount = 50
	params.SimulationCount = 40
	params.LiquidationPct = 1

	first, err := Simulate(params, randsrc.New(99))
	require.NoError(t, err)

	for run := 0; run < 3; run++ {
		again, err := Simulate(params, randsrc.New(99))
		require.NoError(t, err)
		assert.Equal(t, first, again, "run %d", run)
	}
}
