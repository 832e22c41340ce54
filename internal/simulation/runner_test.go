package simulation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trade-montecarlo-lab/internal/domain"
)

func runnerParams() domain.SimulationParameters {
	return domain.SimulationParameters{
		StartingBalance: 100,
		WinProbability:  0.45,
		RewardRiskRatio: 2,
		RiskFraction:    0.05,
		TradeCount:      80,
		SimulationCount: 500,
		LiquidationPct:  5,
	}
}

func TestRunner_DeterministicAcrossWorkerCounts(t *testing.T) {
	ctx := context.Background()
	params := runnerParams()

	base, err := NewRunner(RunnerOptions{Workers: 1, Logger: zap.NewNop()}).Run(ctx, params, 1234)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8, 1000} {
		batch, err := NewRunner(RunnerOptions{Workers: workers}).Run(ctx, params, 1234)
		require.NoError(t, err)
		assert.Equal(t, base, batch, "workers=%d", workers)
	}
}

func TestRunner_DifferentSeedsDiffer(t *testing.T) {
	ctx := context.Background()
	params := runnerParams()
	r := NewRunner(RunnerOptions{Workers: 4})

	a, err := r.Run(ctx, params, 1)
	require.NoError(t, err)
	b, err := r.Run(ctx, params, 2)
	require.NoError(t, err)

	assert.NotEqual(t, a.FinalBalances(), b.FinalBalances())
}

func TestRunner_RuinTally(t *testing.T) {
	params := runnerParams()
	params.LiquidationPct = 100

	batch, err := NewRunner(RunnerOptions{Workers: 4}).Run(context.Background(), params, 7)
	require.NoError(t, err)

	assert.Equal(t, params.SimulationCount, batch.RuinCount)
	for _, rt := range batch.RuinTrades {
		assert.Equal(t, 1, rt)
	}
}

func TestRunner_InvalidParameters(t *testing.T) {
	params := runnerParams()
	params.TradeCount = 0

	_, err := NewRunner(RunnerOptions{}).Run(context.Background(), params, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidParameter))
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRunner(RunnerOptions{Workers: 2}).Run(ctx, runnerParams(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewRunner_DefaultWorkers(t *testing.T) {
	r := NewRunner(RunnerOptions{})
	assert.Greater(t, r.Workers(), 0)
}
