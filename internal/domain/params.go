package domain

import (
	"fmt"
	"math"
)

// SimulationParameters describes one fixed-edge strategy.
// Passed by value; a run never mutates it.
type SimulationParameters struct {
	StartingBalance float64 `json:"starting_balance" yaml:"starting_balance"`
	WinProbability  float64 `json:"win_probability" yaml:"win_probability"`     // 0..1
	RewardRiskRatio float64 `json:"reward_risk_ratio" yaml:"reward_risk_ratio"` // payout multiple of the amount risked
	RiskFraction    float64 `json:"risk_fraction" yaml:"risk_fraction"`         // 0..1 of the current balance
	TradeCount      int     `json:"trade_count" yaml:"trade_count"`
	SimulationCount int     `json:"simulation_count" yaml:"simulation_count"`
	LiquidationPct  float64 `json:"liquidation_pct" yaml:"liquidation_pct"` // 0..100 of the starting balance
}

// LiquidationThreshold returns the absolute balance at or below which a path is ruined.
func (p SimulationParameters) LiquidationThreshold() float64 {
	return p.StartingBalance * p.LiquidationPct / 100
}

// Validate checks every precondition and reports all violations at once.
func (p SimulationParameters) Validate() error {
	var v []string

	if !IsFinite(p.StartingBalance) || p.StartingBalance <= 0 {
		v = append(v, fmt.Sprintf("starting_balance must be > 0, got %v", p.StartingBalance))
	}
	if !IsFinite(p.WinProbability) || p.WinProbability < 0 || p.WinProbability > 1 {
		v = append(v, fmt.Sprintf("win_probability must be within [0, 1], got %v", p.WinProbability))
	}
	if !IsFinite(p.RewardRiskRatio) || p.RewardRiskRatio < 0 {
		v = append(v, fmt.Sprintf("reward_risk_ratio must be >= 0, got %v", p.RewardRiskRatio))
	}
	if !IsFinite(p.RiskFraction) || p.RiskFraction < 0 || p.RiskFraction > 1 {
		v = append(v, fmt.Sprintf("risk_fraction must be within [0, 1], got %v", p.RiskFraction))
	}
	if p.TradeCount < 1 {
		v = append(v, fmt.Sprintf("trade_count must be >= 1, got %d", p.TradeCount))
	}
	if p.SimulationCount < 1 {
		v = append(v, fmt.Sprintf("simulation_count must be >= 1, got %d", p.SimulationCount))
	}
	if !IsFinite(p.LiquidationPct) || p.LiquidationPct < 0 || p.LiquidationPct > 100 {
		v = append(v, fmt.Sprintf("liquidation_pct must be within [0, 100], got %v", p.LiquidationPct))
	}

	if len(v) > 0 {
		return &InvalidParameterError{Violations: v}
	}
	return nil
}

// IsFinite reports whether f is neither NaN nor an infinity.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
