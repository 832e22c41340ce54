package domain

// ThresholdCrossing counts final balances strictly above Multiple × starting balance.
type ThresholdCrossing struct {
	Multiple float64 `json:"multiple"`
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
}

// HistogramBin is one equal-width bucket [Lower, Upper).
// The last bin of a histogram also includes Upper.
type HistogramBin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// SummaryStatistics is derived from a SimulationBatch.
type SummaryStatistics struct {
	SimulationCount int     `json:"simulation_count"`
	StartingBalance float64 `json:"starting_balance"`

	// Final balance distribution
	Median float64 `json:"median"`
	Mean   float64 `json:"mean"`
	Stddev float64 `json:"stddev"` // population
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P5     float64 `json:"p5"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	P95    float64 `json:"p95"`

	// Ruin
	RuinCount       int     `json:"ruin_count"`
	RuinRate        float64 `json:"ruin_rate"`
	RuinTradeCounts []int   `json:"ruin_trade_counts"` // [t-1] = paths first ruined at trade t

	// Drawdown
	MedianDrawdown float64 `json:"median_drawdown"`
	MeanDrawdown   float64 `json:"mean_drawdown"`
	WorstDrawdown  float64 `json:"worst_drawdown"`

	// Probability of profit
	Thresholds []ThresholdCrossing `json:"thresholds"`
	Profitable bool                `json:"profitable"`

	BreakevenWinratePct float64 `json:"breakeven_winrate_pct"`
	EdgePerTrade        float64 `json:"edge_per_trade"` // expected return per trade in units of risk

	// BelowStartCurve[t-1] is the fraction of paths below the starting balance after trade t.
	BelowStartCurve []float64 `json:"below_start_curve"`

	FinalBalanceHistogram []HistogramBin `json:"final_balance_histogram"`
	BestPaths             []int          `json:"best_paths"`
	WorstPaths            []int          `json:"worst_paths"`

	// Notes lists well-defined degenerate cases that were resolved by fallback.
	Notes []string `json:"notes,omitempty"`
}
