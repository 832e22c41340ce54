// Package metrics derives summary statistics from simulated batches.
// Every function here is pure: inputs are never modified.
package metrics

import (
	"fmt"
	"sort"

	"trade-montecarlo-lab/internal/domain"
)

const (
	// HistogramBins is the bucket count of the final balance histogram.
	HistogramBins = 50
	// RankedPaths is how many best and worst paths a summary lists.
	RankedPaths = 10
)

// ThresholdMultiples are the multiples of the starting balance reported as
// probability-of-profit thresholds.
var ThresholdMultiples = []float64{1, 2, 10}

// Summarize computes SummaryStatistics for batch under params.
// The below-start curve needs batch.Paths; it is left empty when paths were not retained.
func Summarize(batch *domain.SimulationBatch, params domain.SimulationParameters) (*domain.SummaryStatistics, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if batch == nil || len(batch.Outcomes) == 0 {
		return nil, domain.NewInvalidParameter("batch has no outcomes")
	}
	if len(batch.Outcomes) != params.SimulationCount {
		return nil, domain.NewInvalidParameter("batch size does not match simulation_count")
	}
	for i, o := range batch.Outcomes {
		if !domain.IsFinite(o.FinalBalance) || !domain.IsFinite(o.MaxDrawdown) {
			return nil, fmt.Errorf("%w: path %d final balance %v, max drawdown %v",
				domain.ErrNonFiniteResult, i, o.FinalBalance, o.MaxDrawdown)
		}
	}

	n := len(batch.Outcomes)
	finals := batch.FinalBalances()
	sortedFinals := sortedCopy(finals)
	drawdowns := batch.MaxDrawdowns()
	_, worstDrawdown := MinMax(drawdowns)

	s := &domain.SummaryStatistics{
		SimulationCount: n,
		StartingBalance: params.StartingBalance,

		Median: percentileSorted(sortedFinals, 0.50),
		Mean:   Mean(finals),
		Stddev: Stddev(finals),
		Min:    sortedFinals[0],
		Max:    sortedFinals[n-1],
		P5:     percentileSorted(sortedFinals, 0.05),
		P25:    percentileSorted(sortedFinals, 0.25),
		P75:    percentileSorted(sortedFinals, 0.75),
		P95:    percentileSorted(sortedFinals, 0.95),

		RuinCount:       batch.RuinCount,
		RuinRate:        RuinRate(batch),
		RuinTradeCounts: RuinTradeCounts(batch, params.TradeCount),

		MedianDrawdown: Median(drawdowns),
		MeanDrawdown:   Mean(drawdowns),
		WorstDrawdown:  worstDrawdown,

		Thresholds: Thresholds(finals, params.StartingBalance),

		BreakevenWinratePct: BreakevenWinratePct(params.RewardRiskRatio),
		EdgePerTrade:        EdgePerTrade(params.WinProbability, params.RewardRiskRatio),

		FinalBalanceHistogram: Histogram(finals, HistogramBins),
		Notes:                 degenerateNotes(params),
	}
	s.Profitable = IsProfitable(s.Median, params.StartingBalance)
	s.BestPaths, s.WorstPaths = RankPaths(batch, RankedPaths)

	if len(batch.Paths) == n {
		s.BelowStartCurve = BelowStartCurve(batch.Paths, params.StartingBalance, params.TradeCount)
	}

	return s, nil
}

// RuinRate is ruin_count / simulation_count.
func RuinRate(batch *domain.SimulationBatch) float64 {
	return fraction(batch.RuinCount, len(batch.Outcomes))
}

// IsProfitable reports whether the median final balance strictly exceeds the start.
func IsProfitable(median, startingBalance float64) bool {
	return median > startingBalance
}

// BreakevenWinratePct is the winrate (percent) at which a trade's expected value is zero:
// 100 / (1 + rr). A zero ratio yields 100: every trade must win to break even.
func BreakevenWinratePct(rewardRisk float64) float64 {
	return 100 / (1 + rewardRisk)
}

// EdgePerTrade is the expected return of one trade in units of the amount risked: p·rr − (1−p).
func EdgePerTrade(winProbability, rewardRisk float64) float64 {
	return winProbability*rewardRisk - (1 - winProbability)
}

// Thresholds counts final balances strictly above each of ThresholdMultiples × start.
func Thresholds(finals []float64, startingBalance float64) []domain.ThresholdCrossing {
	out := make([]domain.ThresholdCrossing, len(ThresholdMultiples))
	for i, m := range ThresholdMultiples {
		count := CountAbove(finals, startingBalance*m)
		out[i] = domain.ThresholdCrossing{
			Multiple: m,
			Count:    count,
			Fraction: fraction(count, len(finals)),
		}
	}
	return out
}

// BelowStartCurve returns, for t = 1..tradeCount, the fraction of paths whose balance after
// trade t is strictly below startingBalance. Element t-1 holds trade t.
func BelowStartCurve(paths []domain.Path, startingBalance float64, tradeCount int) []float64 {
	curve := make([]float64, tradeCount)
	if len(paths) == 0 {
		return curve
	}
	for t := 1; t <= tradeCount; t++ {
		below := 0
		for _, p := range paths {
			if t < len(p) && p[t] < startingBalance {
				below++
			}
		}
		curve[t-1] = fraction(below, len(paths))
	}
	return curve
}

// RuinTradeCounts returns how many paths were first ruined at each trade; element t-1 holds trade t.
func RuinTradeCounts(batch *domain.SimulationBatch, tradeCount int) []int {
	counts := make([]int, tradeCount)
	for _, t := range batch.RuinTrades {
		if t >= 1 && t <= tradeCount {
			counts[t-1]++
		}
	}
	return counts
}

// RankPaths returns the indices of the n highest and n lowest final balances.
// best is ordered highest first, worst lowest first.
func RankPaths(batch *domain.SimulationBatch, n int) (best, worst []int) {
	total := len(batch.Outcomes)
	if n > total {
		n = total
	}
	if n <= 0 {
		return nil, nil
	}

	idx := make([]int, total)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return batch.Outcomes[idx[a]].FinalBalance < batch.Outcomes[idx[b]].FinalBalance
	})

	worst = append([]int(nil), idx[:n]...)
	best = make([]int, n)
	for i := 0; i < n; i++ {
		best[i] = idx[total-1-i]
	}
	return best, worst
}

// degenerateNotes explains well-defined edge cases that were resolved by fallback.
func degenerateNotes(params domain.SimulationParameters) []string {
	var notes []string
	if params.RewardRiskRatio == 0 {
		notes = append(notes, "reward/risk ratio is 0: wins pay nothing, breakeven winrate is 100%")
	}
	if params.RiskFraction == 0 {
		notes = append(notes, "risk fraction is 0: balances never change")
	}
	if params.LiquidationPct == 100 {
		notes = append(notes, "liquidation threshold equals the starting balance: every path is ruined at trade 1")
	}
	return notes
}
