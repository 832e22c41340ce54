package reporting

import (
	"time"

	"trade-montecarlo-lab/internal/domain"
	"trade-montecarlo-lab/internal/metrics"
	"trade-montecarlo-lab/internal/orchestrator"
)

// MaxPathsCSV caps how many paths are written to a paths CSV.
const MaxPathsCSV = 100

// Generator builds reports from engine results.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Simulation builds a Report from a run result.
func (g *Generator) Simulation(r *orchestrator.RunResult) *Report {
	s := r.Summary
	report := &Report{
		GeneratedAt: g.now(),
		RunID:       r.RunID,
		Seed:        r.Seed,
		Duration:    r.Duration,
		Params:      r.Params,
		Summary:     s,
		Verdict:     VerdictUnprofitable,
		BestPaths:   rankedRows(r.Batch, s.BestPaths),
		WorstPaths:  rankedRows(r.Batch, s.WorstPaths),
		RuinTrades:  ruinTradeRows(s.RuinTradeCounts),
	}
	if s.Profitable {
		report.Verdict = VerdictProfitable
	}

	n := min(len(r.Batch.Paths), MaxPathsCSV)
	report.Paths = r.Batch.Paths[:n]

	return report
}

// Sweep builds a SweepReport from a sweep result.
func (g *Generator) Sweep(r *orchestrator.SweepResult) *SweepReport {
	report := &SweepReport{
		GeneratedAt:     g.now(),
		SweepID:         r.SweepID,
		Seed:            r.Seed,
		Duration:        r.Duration,
		StartingBalance: r.Base.StartingBalance,
		RewardRiskRatio: r.Base.RewardRiskRatio,
		Grid:            r.Grid,
	}

	first := true
	for i, row := range r.Grid.Cells {
		for j, median := range row {
			if first || median > report.BestMedian {
				report.BestRiskPct = r.Grid.RiskPcts[i]
				report.BestWinratePct = r.Grid.WinratePcts[j]
				report.BestMedian = median
				first = false
			}
		}
	}

	return report
}

// Breakeven builds a BreakevenReport for the given reward/risk ratios.
func Breakeven(ratios []float64) *BreakevenReport {
	report := &BreakevenReport{Rows: make([]BreakevenRow, 0, len(ratios))}
	for _, rr := range ratios {
		report.Rows = append(report.Rows, BreakevenRow{
			RewardRiskRatio:     rr,
			BreakevenWinratePct: metrics.BreakevenWinratePct(rr),
		})
	}
	return report
}

func rankedRows(batch *domain.SimulationBatch, indices []int) []RankedPathRow {
	rows := make([]RankedPathRow, 0, len(indices))
	for rank, idx := range indices {
		o := batch.Outcomes[idx]
		rows = append(rows, RankedPathRow{
			Rank:         rank + 1,
			PathIndex:    idx,
			FinalBalance: o.FinalBalance,
			MaxDrawdown:  o.MaxDrawdown,
		})
	}
	return rows
}

func ruinTradeRows(counts []int) []RuinTradeRow {
	var rows []RuinTradeRow
	for i, c := range counts {
		if c > 0 {
			rows = append(rows, RuinTradeRow{Trade: i + 1, Count: c})
		}
	}
	return rows
}
