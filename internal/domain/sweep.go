package domain

// SweepGrid is a risk × winrate sensitivity surface.
// Cells[i][j] is the median final balance at (RiskPcts[i], WinratePcts[j]).
// Every cell comes from its own independent batch.
type SweepGrid struct {
	RiskPcts      []float64   `json:"risk_pcts"`
	WinratePcts   []float64   `json:"winrate_pcts"`
	TrialsPerCell int         `json:"trials_per_cell"`
	TradesPerCell int         `json:"trades_per_cell"`
	Cells         [][]float64 `json:"cells"`
}

// Cell returns the median at row i (risk) and column j (winrate).
func (g *SweepGrid) Cell(i, j int) float64 {
	return g.Cells[i][j]
}
