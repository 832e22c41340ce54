package reporting

import (
	"fmt"
	"strings"
	"time"
)

// MaxCurveRows caps the rows of the below-start table; longer curves are sampled.
const MaxCurveRows = 25

// RenderMarkdown renders a simulation report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	s := r.Summary
	p := r.Params

	// Header
	sb.WriteString("# Monte Carlo Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: `%s` | Seed: %d\n\n", r.RunID, r.Seed))

	// Parameters
	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Starting Balance | %s |\n", money(p.StartingBalance)))
	sb.WriteString(fmt.Sprintf("| Win Probability | %s |\n", pct(p.WinProbability)))
	sb.WriteString(fmt.Sprintf("| Reward/Risk | %.2f |\n", p.RewardRiskRatio))
	sb.WriteString(fmt.Sprintf("| Risk per Trade | %s |\n", pct(p.RiskFraction)))
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", p.TradeCount))
	sb.WriteString(fmt.Sprintf("| Simulations | %d |\n", p.SimulationCount))
	sb.WriteString(fmt.Sprintf("| Liquidation Threshold | %s (%.2f%%) |\n", money(p.LiquidationThreshold()), p.LiquidationPct))
	sb.WriteString("\n")

	// Final balance distribution
	sb.WriteString("## Final Balance\n\n")
	sb.WriteString("| Statistic | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Median | %s |\n", money(s.Median)))
	sb.WriteString(fmt.Sprintf("| Mean | %s |\n", money(s.Mean)))
	sb.WriteString(fmt.Sprintf("| Stddev | %s |\n", money(s.Stddev)))
	sb.WriteString(fmt.Sprintf("| Min | %s |\n", money(s.Min)))
	sb.WriteString(fmt.Sprintf("| P5 | %s |\n", money(s.P5)))
	sb.WriteString(fmt.Sprintf("| P25 | %s |\n", money(s.P25)))
	sb.WriteString(fmt.Sprintf("| P75 | %s |\n", money(s.P75)))
	sb.WriteString(fmt.Sprintf("| P95 | %s |\n", money(s.P95)))
	sb.WriteString(fmt.Sprintf("| Max | %s |\n", money(s.Max)))
	sb.WriteString("\n")

	// Ruin
	sb.WriteString("## Ruin\n\n")
	sb.WriteString(fmt.Sprintf("Liquidations: %d of %d (%s)\n\n", s.RuinCount, s.SimulationCount, pct(s.RuinRate)))
	if len(r.RuinTrades) > 0 {
		sb.WriteString("| Trade | Paths Ruined |\n")
		sb.WriteString("|-------|--------------|\n")
		for _, row := range r.RuinTrades {
			sb.WriteString(fmt.Sprintf("| %d | %d |\n", row.Trade, row.Count))
		}
		sb.WriteString("\n")
	}

	// Drawdown
	sb.WriteString("## Drawdown\n\n")
	sb.WriteString("| Statistic | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Median | %s |\n", pct(s.MedianDrawdown)))
	sb.WriteString(fmt.Sprintf("| Mean | %s |\n", pct(s.MeanDrawdown)))
	sb.WriteString(fmt.Sprintf("| Worst | %s |\n", pct(s.WorstDrawdown)))
	sb.WriteString("\n")

	// Probability of profit
	sb.WriteString("## Probability of Profit\n\n")
	sb.WriteString("| Final Balance Above | Paths | Share |\n")
	sb.WriteString("|---------------------|-------|-------|\n")
	for _, th := range s.Thresholds {
		sb.WriteString(fmt.Sprintf("| %gx (%s) | %d | %s |\n",
			th.Multiple, money(th.Multiple*s.StartingBalance), th.Count, pct(th.Fraction)))
	}
	sb.WriteString("\n")

	// Verdict
	sb.WriteString("## Verdict\n\n")
	sb.WriteString(fmt.Sprintf("**%s**: median %s vs start %s\n\n", r.Verdict, money(s.Median), money(s.StartingBalance)))
	sb.WriteString(fmt.Sprintf("Breakeven winrate: %.2f%% at RR = %.2f\n\n", s.BreakevenWinratePct, p.RewardRiskRatio))
	sb.WriteString(fmt.Sprintf("Edge per trade: %.4f R\n\n", s.EdgePerTrade))

	// Below-start curve
	if len(s.BelowStartCurve) > 0 {
		sb.WriteString("## Probability Below Start\n\n")
		sb.WriteString("| Trade | Below Start |\n")
		sb.WriteString("|-------|-------------|\n")
		for _, t := range curveRows(len(s.BelowStartCurve)) {
			sb.WriteString(fmt.Sprintf("| %d | %s |\n", t, pct(s.BelowStartCurve[t-1])))
		}
		sb.WriteString("\n")
	}

	// Ranked paths
	renderRanked(&sb, "Best Paths", r.BestPaths)
	renderRanked(&sb, "Worst Paths", r.WorstPaths)

	// Histogram
	sb.WriteString("## Final Balance Distribution\n\n")
	sb.WriteString("| From | To | Paths |\n")
	sb.WriteString("|------|----|-------|\n")
	for _, bin := range s.FinalBalanceHistogram {
		if bin.Count == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %d |\n", money(bin.Lower), money(bin.Upper), bin.Count))
	}
	sb.WriteString("\n")

	if len(s.Notes) > 0 {
		sb.WriteString("## Notes\n\n")
		for _, n := range s.Notes {
			sb.WriteString(fmt.Sprintf("- %s\n", n))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func renderRanked(sb *strings.Builder, title string, rows []RankedPathRow) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(rows) == 0 {
		sb.WriteString("No paths available.\n\n")
		return
	}
	sb.WriteString("| Rank | Path | Final Balance | Max Drawdown |\n")
	sb.WriteString("|------|------|---------------|--------------|\n")
	for _, row := range rows {
		sb.WriteString(fmt.Sprintf("| %d | %d | %s | %s |\n",
			row.Rank, row.PathIndex, money(row.FinalBalance), pct(row.MaxDrawdown)))
	}
	sb.WriteString("\n")
}

// curveRows picks at most MaxCurveRows trade numbers from 1..n, always including n.
func curveRows(n int) []int {
	step := (n + MaxCurveRows - 1) / MaxCurveRows
	var rows []int
	for t := step; t < n; t += step {
		rows = append(rows, t)
	}
	return append(rows, n)
}

// RenderSweepMarkdown renders a sweep grid as a Markdown table.
// Rows are risk levels, columns winrates, cells median final balances.
func RenderSweepMarkdown(r *SweepReport) string {
	var sb strings.Builder
	g := r.Grid

	sb.WriteString("# Risk × Winrate Sweep\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Sweep: `%s` | Seed: %d\n\n", r.SweepID, r.Seed))
	sb.WriteString(fmt.Sprintf("Starting balance %s, RR %.2f, %d trials × %d trades per cell. Cells are median final balances.\n\n",
		money(r.StartingBalance), r.RewardRiskRatio, g.TrialsPerCell, g.TradesPerCell))

	sb.WriteString("| Risk \\ Winrate |")
	for _, w := range g.WinratePcts {
		sb.WriteString(fmt.Sprintf(" %g%% |", w))
	}
	sb.WriteString("\n|----------------|")
	for range g.WinratePcts {
		sb.WriteString("------|")
	}
	sb.WriteString("\n")

	for i, risk := range g.RiskPcts {
		sb.WriteString(fmt.Sprintf("| %g%% |", risk))
		for j := range g.WinratePcts {
			sb.WriteString(fmt.Sprintf(" %s |", money(g.Cell(i, j))))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Best cell: risk %g%%, winrate %g%%, median %s\n",
		r.BestRiskPct, r.BestWinratePct, money(r.BestMedian)))

	return sb.String()
}

// RenderBreakevenMarkdown renders breakeven winrates as a Markdown table.
func RenderBreakevenMarkdown(r *BreakevenReport) string {
	var sb strings.Builder
	sb.WriteString("| RR | Breakeven Winrate |\n")
	sb.WriteString("|----|-------------------|\n")
	for _, row := range r.Rows {
		sb.WriteString(fmt.Sprintf("| %.2f | %.2f%% |\n", row.RewardRiskRatio, row.BreakevenWinratePct))
	}
	return sb.String()
}
