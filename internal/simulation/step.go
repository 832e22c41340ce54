package simulation

import "trade-montecarlo-lab/internal/randsrc"

// DrawWin reports whether the next trade wins: a uniform draw below winProbability.
func DrawWin(rng randsrc.Source, winProbability float64) bool {
	return rng.Float64() < winProbability
}

// ApplyTrade returns the balance after one trade risking riskFraction of balance.
// A win pays risk × rewardRisk, a loss costs the risked amount.
// The result is not floored; callers decide how to treat values at or below zero.
func ApplyTrade(balance, riskFraction, rewardRisk float64, win bool) float64 {
	risk := balance * riskFraction
	if win {
		return balance + risk*rewardRisk
	}
	return balance - risk
}
