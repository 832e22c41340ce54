// Package sweep builds the risk × winrate sensitivity grid.
//
// Each cell runs its own small batch with a simplified ruin rule: a path is
// only ruined when its balance reaches zero, at which point the path stops.
// This differs from the liquidation-threshold rule of the main simulator and
// is kept separate on purpose, since it changes the medians.
package sweep

import (
	"fmt"
	"math"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/metrics"
	"trade-montecarlo-lab/internal/randsrc"
	"trade-montecarlo-lab/internal/simulation"
)

// Grid describes the axes and per-cell batch size of a sweep.
// Risk and winrate values are percentages.
type Grid struct {
	RiskPcts      []float64 `json:"risk_pcts" yaml:"risk_pcts"`
	WinratePcts   []float64 `json:"winrate_pcts" yaml:"winrate_pcts"`
	TrialsPerCell int       `json:"trials_per_cell" yaml:"trials_per_cell"`
	TradesPerCell int       `json:"trades_per_cell" yaml:"trades_per_cell"`
}

// DefaultGrid returns winrates 30..80 step 5 and risks 0.5..5.0 step 0.5,
// 100 trials of 50 trades per cell.
func DefaultGrid() Grid {
	g := Grid{TrialsPerCell: 100, TradesPerCell: 50}
	for w := 30; w <= 80; w += 5 {
		g.WinratePcts = append(g.WinratePcts, float64(w))
	}
	for r := 1; r <= 10; r++ {
		g.RiskPcts = append(g.RiskPcts, float64(r)*0.5)
	}
	return g
}

// Validate checks the grid axes and sizes.
func (g Grid) Validate() error {
	var v []string
	if len(g.RiskPcts) == 0 {
		v = append(v, "risk_pcts must not be empty")
	}
	if len(g.WinratePcts) == 0 {
		v = append(v, "winrate_pcts must not be empty")
	}
	for _, r := range g.RiskPcts {
		if !inPercentRange(r) {
			v = append(v, fmt.Sprintf("risk_pcts values must be within [0, 100], got %v", r))
		}
	}
	for _, w := range g.WinratePcts {
		if !inPercentRange(w) {
			v = append(v, fmt.Sprintf("winrate_pcts values must be within [0, 100], got %v", w))
		}
	}
	if g.TrialsPerCell < 1 {
		v = append(v, fmt.Sprintf("trials_per_cell must be >= 1, got %d", g.TrialsPerCell))
	}
	if g.TradesPerCell < 1 {
		v = append(v, fmt.Sprintf("trades_per_cell must be >= 1, got %d", g.TradesPerCell))
	}
	if len(v) > 0 {
		return domain.NewInvalidParameter(v...)
	}
	return nil
}

func inPercentRange(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= 100
}

// validateBase checks the fields of base that a sweep uses.
func validateBase(base domain.SimulationParameters) error {
	var v []string
	if math.IsNaN(base.StartingBalance) || math.IsInf(base.StartingBalance, 0) || base.StartingBalance <= 0 {
		v = append(v, fmt.Sprintf("starting_balance must be > 0, got %v", base.StartingBalance))
	}
	if math.IsNaN(base.RewardRiskRatio) || math.IsInf(base.RewardRiskRatio, 0) || base.RewardRiskRatio < 0 {
		v = append(v, fmt.Sprintf("reward_risk_ratio must be >= 0, got %v", base.RewardRiskRatio))
	}
	if len(v) > 0 {
		return domain.NewInvalidParameter(v...)
	}
	return nil
}

// Sweep fills a grid drawing every cell from a single source, row by row.
// Only base.StartingBalance and base.RewardRiskRatio are used from base.
func Sweep(base domain.SimulationParameters, riskPcts, winratePcts []float64, trialsPerCell, tradesPerCell int, rng randsrc.Source) (*domain.SweepGrid, error) {
	grid := Grid{
		RiskPcts:      riskPcts,
		WinratePcts:   winratePcts,
		TrialsPerCell: trialsPerCell,
		TradesPerCell: tradesPerCell,
	}
	if err := validate(base, grid); err != nil {
		return nil, err
	}

	out := newSweepGrid(grid)
	for i, risk := range grid.RiskPcts {
		for j, winrate := range grid.WinratePcts {
			median := CellMedian(base, risk, winrate, trialsPerCell, tradesPerCell, rng)
			if err := checkCell(risk, winrate, median); err != nil {
				return nil, err
			}
			out.Cells[i][j] = median
		}
	}
	return out, nil
}

// checkCell rejects medians that overflowed float64.
func checkCell(riskPct, winratePct, median float64) error {
	if domain.IsFinite(median) {
		return nil
	}
	return fmt.Errorf("%w: cell risk %v%% winrate %v%% median %v",
		domain.ErrNonFiniteResult, riskPct, winratePct, median)
}

// CellMedian runs trials single paths at (riskPct, winratePct) and returns the median final balance.
func CellMedian(base domain.SimulationParameters, riskPct, winratePct float64, trials, trades int, rng randsrc.Source) float64 {
	finals := make([]float64, trials)
	for k := range finals {
		finals[k] = runPath(base.StartingBalance, riskPct/100, winratePct/100, base.RewardRiskRatio, trades, rng)
	}
	return metrics.Median(finals)
}

// runPath plays up to trades trades and stops as soon as the balance is at or below zero.
func runPath(balance, riskFraction, winProbability, rewardRisk float64, trades int, rng randsrc.Source) float64 {
	for t := 0; t < trades; t++ {
		win := simulation.DrawWin(rng, winProbability)
		balance = simulation.ApplyTrade(balance, riskFraction, rewardRisk, win)
		if balance <= 0 {
			return 0
		}
	}
	return balance
}

func validate(base domain.SimulationParameters, grid Grid) error {
	if err := validateBase(base); err != nil {
		return err
	}
	return grid.Validate()
}

func newSweepGrid(grid Grid) *domain.SweepGrid {
	cells := make([][]float64, len(grid.RiskPcts))
	for i := range cells {
		cells[i] = make([]float64, len(grid.WinratePcts))
	}
	return &domain.SweepGrid{
		RiskPcts:      append([]float64(nil), grid.RiskPcts...),
		WinratePcts:   append([]float64(nil), grid.WinratePcts...),
		TrialsPerCell: grid.TrialsPerCell,
		TradesPerCell: grid.TradesPerCell,
		Cells:         cells,
	}
}
