package sweep

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/randsrc"
)

func baseParams() domain.SimulationParameters {
	return domain.SimulationParameters{
		StartingBalance: 100,
		WinProbability:  0.5,
		RewardRiskRatio: 2,
		RiskFraction:    0.02,
		TradeCount:      50,
		SimulationCount: 100,
		LiquidationPct:  1,
	}
}

func TestSweep_ShapeAndOrder(t *testing.T) {
	g, err := Sweep(baseParams(), []float64{1, 2}, []float64{40, 60}, 25, 50, randsrc.New(3))
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2}, g.RiskPcts)
	assert.Equal(t, []float64{40, 60}, g.WinratePcts)
	assert.Equal(t, 25, g.TrialsPerCell)
	assert.Equal(t, 50, g.TradesPerCell)
	require.Len(t, g.Cells, 2)
	for _, row := range g.Cells {
		require.Len(t, row, 2)
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}

func TestSweep_ForcedWins(t *testing.T) {
	g, err := Sweep(baseParams(), []float64{1}, []float64{50}, 5, 2, randsrc.NewSequence(0))
	require.NoError(t, err)

	// 100 * 1.02 * 1.02
	assert.InDelta(t, 104.04, g.Cell(0, 0), 1e-9)
}

func TestSweep_HardBreakAtZero(t *testing.T) {
	seq := randsrc.NewSequence(0.999)
	g, err := Sweep(baseParams(), []float64{100}, []float64{50}, 7, 20, seq)
	require.NoError(t, err)

	assert.Equal(t, 0.0, g.Cell(0, 0))
	// A full-risk loss zeroes the balance and ends the path after one draw.
	assert.Equal(t, 7, seq.Calls())
}

func TestSweep_MonotonicInWinrate(t *testing.T) {
	g, err := Sweep(baseParams(), []float64{1, 2}, []float64{40, 60}, 1001, 50, randsrc.New(11))
	require.NoError(t, err)

	for i := range g.RiskPcts {
		assert.Less(t, g.Cell(i, 0), g.Cell(i, 1), "risk row %d", i)
	}
}

func TestSweep_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		base     domain.SimulationParameters
		risks    []float64
		winrates []float64
		trials   int
		trades   int
		want     string
	}{
		{"empty risks", baseParams(), nil, []float64{50}, 10, 10, "risk_pcts"},
		{"empty winrates", baseParams(), []float64{1}, nil, 10, 10, "winrate_pcts"},
		{"risk above 100", baseParams(), []float64{150}, []float64{50}, 10, 10, "risk_pcts"},
		{"NaN winrate", baseParams(), []float64{1}, []float64{math.NaN()}, 10, 10, "winrate_pcts"},
		{"zero trials", baseParams(), []float64{1}, []float64{50}, 0, 10, "trials_per_cell"},
		{"zero trades", baseParams(), []float64{1}, []float64{50}, 10, 0, "trades_per_cell"},
		{"zero balance", domain.SimulationParameters{RewardRiskRatio: 2}, []float64{1}, []float64{50}, 10, 10, "starting_balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seq := randsrc.NewSequence()
			_, err := Sweep(tt.base, tt.risks, tt.winrates, tt.trials, tt.trades, seq)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidParameter))
			assert.Contains(t, err.Error(), tt.want)
			assert.Zero(t, seq.Calls())
		})
	}
}

func TestSweep_IgnoresUnusedBaseFields(t *testing.T) {
	base := baseParams()
	base.SimulationCount = 0 // not used by a sweep

	_, err := Sweep(base, []float64{1}, []float64{50}, 3, 3, randsrc.New(1))
	require.NoError(t, err)
}

func TestDefaultGrid(t *testing.T) {
	g := DefaultGrid()

	require.Len(t, g.WinratePcts, 11)
	require.Len(t, g.RiskPcts, 10)
	assert.Equal(t, 30.0, g.WinratePcts[0])
	assert.Equal(t, 80.0, g.WinratePcts[10])
	assert.Equal(t, 0.5, g.RiskPcts[0])
	assert.Equal(t, 5.0, g.RiskPcts[9])
	assert.Equal(t, 100, g.TrialsPerCell)
	assert.Equal(t, 50, g.TradesPerCell)
	require.NoError(t, g.Validate())
}

func TestRunner_DeterministicAcrossWorkers(t *testing.T) {
	ctx := context.Background()
	grid := Grid{
		RiskPcts:      []float64{0.5, 1, 2},
		WinratePcts:   []float64{30, 50, 70},
		TrialsPerCell: 40,
		TradesPerCell: 30,
	}

	first, err := NewRunner(RunnerOptions{Workers: 1}).Run(ctx, baseParams(), grid, 5)
	require.NoError(t, err)

	for _, workers := range []int{2, 4, 16} {
		got, err := NewRunner(RunnerOptions{Workers: workers}).Run(ctx, baseParams(), grid, 5)
		require.NoError(t, err)
		assert.Equal(t, first, got, "workers=%d", workers)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(RunnerOptions{Workers: 2}).Run(ctx, baseParams(), DefaultGrid(), 1)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSweep_OverflowIsNonFinite(t *testing.T) {
	base := baseParams()
	base.StartingBalance = 1e307
	base.RewardRiskRatio = 100

	_, err := Sweep(base, []float64{100}, []float64{100}, 3, 3, randsrc.New(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNonFiniteResult))

	grid := Grid{RiskPcts: []float64{1, 100}, WinratePcts: []float64{100}, TrialsPerCell: 3, TradesPerCell: 3}
	_, err = NewRunner(RunnerOptions{Workers: 2}).Run(context.Background(), base, grid, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNonFiniteResult))
}

func TestRunner_InvalidGrid(t *testing.T) {
	_, err := NewRunner(RunnerOptions{}).Run(context.Background(), baseParams(), Grid{}, 1)
	assert.True(t, errors.Is(err, domain.ErrInvalidParameter))
}
