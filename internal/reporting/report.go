package reporting

import (
	"time"

	"trade-montecarlo-lab/internal/domain"
)

// Verdict labels for the profitability check.
const (
	VerdictProfitable   = "PROFITABLE"
	VerdictUnprofitable = "UNPROFITABLE"
)

// Report is a rendered-ready view of one simulation run.
type Report struct {
	// Metadata
	GeneratedAt time.Time     `json:"generated_at"`
	RunID       string        `json:"run_id"`
	Seed        uint64        `json:"seed"`
	Duration    time.Duration `json:"duration_ns"`

	Params  domain.SimulationParameters `json:"params"`
	Summary *domain.SummaryStatistics   `json:"summary"`
	Verdict string                      `json:"verdict"`

	// Ranked paths with their final balances
	BestPaths  []RankedPathRow `json:"best_paths"`
	WorstPaths []RankedPathRow `json:"worst_paths"`

	// Ruin distribution, trades with at least one first ruin
	RuinTrades []RuinTradeRow `json:"ruin_trades,omitempty"`

	// Paths is capped at MaxPathsCSV and only used for CSV output.
	Paths []domain.Path `json:"-"`
}

// RankedPathRow is one entry of a best/worst path list.
type RankedPathRow struct {
	Rank         int     `json:"rank"`
	PathIndex    int     `json:"path_index"`
	FinalBalance float64 `json:"final_balance"`
	MaxDrawdown  float64 `json:"max_drawdown"`
}

// RuinTradeRow counts paths first ruined at Trade.
type RuinTradeRow struct {
	Trade int `json:"trade"`
	Count int `json:"count"`
}

// SweepReport is a rendered-ready view of a sweep grid.
type SweepReport struct {
	GeneratedAt time.Time     `json:"generated_at"`
	SweepID     string        `json:"sweep_id"`
	Seed        uint64        `json:"seed"`
	Duration    time.Duration `json:"duration_ns"`

	StartingBalance float64           `json:"starting_balance"`
	RewardRiskRatio float64           `json:"reward_risk_ratio"`
	Grid            *domain.SweepGrid `json:"grid"`

	// Best cell by median
	BestRiskPct    float64 `json:"best_risk_pct"`
	BestWinratePct float64 `json:"best_winrate_pct"`
	BestMedian     float64 `json:"best_median"`
}

// BreakevenReport lists breakeven winrates per reward/risk ratio.
type BreakevenReport struct {
	Rows []BreakevenRow `json:"rows"`
}

// BreakevenRow is the breakeven winrate for one reward/risk ratio.
type BreakevenRow struct {
	RewardRiskRatio     float64 `json:"reward_risk_ratio"`
	BreakevenWinratePct float64 `json:"breakeven_winrate_pct"`
}
