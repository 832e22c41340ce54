package pipeline

import (
	"encoding/json"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/reporting"
)

var fixedTime = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func testReport() *reporting.Report {
	return &reporting.Report{
		GeneratedAt: fixedTime,
		RunID:       "run123",
		Seed:        42,
		Params: domain.SimulationParameters{
			StartingBalance: 100,
			WinProbability:  0.55,
			RewardRiskRatio: 2,
			RiskFraction:    0.02,
			TradeCount:      2,
			SimulationCount: 2,
			LiquidationPct:  1,
		},
		Summary: &domain.SummaryStatistics{
			SimulationCount: 2,
			StartingBalance: 100,
			Median:          101,
		},
		Verdict: reporting.VerdictProfitable,
		Paths:   []domain.Path{{100, 104, 101.92}, {100, 98, 101.92}},
	}
}

func TestWriteSimulation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w := NewWriter(dir).WithClock(func() time.Time { return fixedTime })

	m, err := w.WriteSimulation(testReport())
	require.NoError(t, err)

	assert.Equal(t, KindSimulation, m.Kind)
	assert.Equal(t, "run123", m.ID)
	assert.Equal(t, fixedTime, m.GeneratedAt)
	assert.Equal(t,
		"montecarlo --seed 42 simulate --balance 100 --winrate 55 --rr 2 --risk 2 --trades 2 --sims 2 --liquidation 1",
		m.ReplayCommand)
	require.Len(t, m.Files, 4)

	for _, f := range m.Files {
		data, err := os.ReadFile(filepath.Join(dir, f.Name))
		require.NoError(t, err, f.Name)
		assert.Equal(t, hashContent(string(data)), f.SHA256, f.Name)
		assert.Equal(t, len(data), f.Bytes, f.Name)
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	var decoded Manifest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m.Files, decoded.Files)
	assert.Equal(t, GeneratorVersion, decoded.GeneratorVersion)
}

func TestWriteSweep(t *testing.T) {
	dir := t.TempDir()
	r := &reporting.SweepReport{
		GeneratedAt:     fixedTime,
		SweepID:         "sw1",
		Seed:            7,
		StartingBalance: 100,
		RewardRiskRatio: 2,
		Grid: &domain.SweepGrid{
			RiskPcts:      []float64{0.5, 1},
			WinratePcts:   []float64{40},
			TrialsPerCell: 10,
			TradesPerCell: 5,
			Cells:         [][]float64{{99}, {98}},
		},
	}

	m, err := NewWriter(dir).WriteSweep(r)
	require.NoError(t, err)

	assert.Equal(t, KindSweep, m.Kind)
	assert.Equal(t, "montecarlo --seed 7 sweep --balance 100 --rr 2 --risks 0.5 --risks 1 --winrates 40 --trials 10 --trades 5", m.ReplayCommand)
	require.Len(t, m.Files, 3)
	assert.FileExists(t, filepath.Join(dir, SweepReportMD))
	assert.FileExists(t, filepath.Join(dir, SweepCSV))
	assert.FileExists(t, filepath.Join(dir, SweepJSON))
	assert.FileExists(t, filepath.Join(dir, ManifestFile))
}

func TestWriteSimulation_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	_, err := NewWriter(filepath.Join(file, "sub")).WriteSimulation(testReport())
	assert.Error(t, err)
}

func TestFractionFlag(t *testing.T) {
	assert.Equal(t, "--winrate 55", fractionFlag("winrate", "win-probability", 0.55))
	assert.Equal(t, "--risk 2", fractionFlag("risk", "risk-fraction", 0.02))
	assert.Equal(t, "--winrate 0", fractionFlag("winrate", "win-probability", 0))
	assert.Equal(t, "--winrate 100", fractionFlag("winrate", "win-probability", 1))

	values := []float64{0.1234567891234, 1.0 / 3, 0.07, 1e-9, 0.999999999999}
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 500; i++ {
		values = append(values, rng.Float64())
	}

	for _, f := range values {
		flag := fractionFlag("winrate", "win-probability", f)
		name, value, ok := strings.Cut(strings.TrimPrefix(flag, "--"), " ")
		require.True(t, ok, flag)

		v, err := strconv.ParseFloat(value, 64)
		require.NoError(t, err, flag)
		switch name {
		case "winrate":
			assert.Equal(t, f, v/100, flag)
		case "win-probability":
			assert.Equal(t, f, v, flag)
		default:
			t.Fatalf("unexpected flag %q", flag)
		}
	}
}

func TestWriteSimulation_ReplayKeepsFullPrecision(t *testing.T) {
	r := testReport()
	r.Params.WinProbability = 0.1234567891234

	m, err := NewWriter(t.TempDir()).WriteSimulation(r)
	require.NoError(t, err)
	assert.Contains(t, m.ReplayCommand, fractionFlag("winrate", "win-probability", 0.1234567891234))
}
