package reporting

import (
	"fmt"
	"strconv"
	"strings"
)

// RenderPathsCSV renders the report's paths in wide form: one row per trade index,
// one column per path. Paths are already capped at MaxPathsCSV.
func RenderPathsCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade")
	for i := range r.Paths {
		sb.WriteString(fmt.Sprintf(",path_%d", i))
	}
	sb.WriteString("\n")

	// Rows
	steps := 0
	for _, p := range r.Paths {
		steps = max(steps, len(p))
	}
	for t := 0; t < steps; t++ {
		sb.WriteString(strconv.Itoa(t))
		for _, p := range r.Paths {
			sb.WriteString(",")
			if t < len(p) {
				sb.WriteString(strconv.FormatFloat(p[t], 'f', 6, 64))
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderSummaryCSV renders the headline statistics as a single-row CSV.
func RenderSummaryCSV(r *Report) string {
	var sb strings.Builder
	s := r.Summary

	sb.WriteString("run_id,seed,simulations,median,mean,stddev,min,max,p5,p25,p75,p95,")
	sb.WriteString("ruin_count,ruin_rate,median_drawdown,mean_drawdown,worst_drawdown,")
	sb.WriteString("breakeven_winrate_pct,edge_per_trade,verdict\n")

	sb.WriteString(fmt.Sprintf("%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%s\n",
		r.RunID,
		r.Seed,
		s.SimulationCount,
		s.Median,
		s.Mean,
		s.Stddev,
		s.Min,
		s.Max,
		s.P5,
		s.P25,
		s.P75,
		s.P95,
		s.RuinCount,
		s.RuinRate,
		s.MedianDrawdown,
		s.MeanDrawdown,
		s.WorstDrawdown,
		s.BreakevenWinratePct,
		s.EdgePerTrade,
		r.Verdict,
	))

	return sb.String()
}

// RenderSweepCSV renders the grid with one row per risk level.
func RenderSweepCSV(r *SweepReport) string {
	var sb strings.Builder
	g := r.Grid

	sb.WriteString("risk_pct")
	for _, w := range g.WinratePcts {
		sb.WriteString(",winrate_" + strconv.FormatFloat(w, 'g', -1, 64))
	}
	sb.WriteString("\n")

	for i, risk := range g.RiskPcts {
		sb.WriteString(strconv.FormatFloat(risk, 'g', -1, 64))
		for j := range g.WinratePcts {
			sb.WriteString(",")
			sb.WriteString(strconv.FormatFloat(g.Cell(i, j), 'f', 6, 64))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
