package domain

// Path is the balance series of one simulated run.
// Index 0 is the starting balance, index t the balance after t trades.
type Path []float64

// Final returns the last recorded balance.
func (p Path) Final() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// PathOutcome is derived from a Path.
type PathOutcome struct {
	FinalBalance float64 `json:"final_balance"`
	MaxDrawdown  float64 `json:"max_drawdown"` // largest relative peak-to-trough decline, 0..1
	Ruined       bool    `json:"ruined"`
	RuinTrade    int     `json:"ruin_trade,omitempty"` // 1-based trade index of first ruin, 0 if never ruined
}

// SimulationBatch holds SimulationCount exchangeable paths generated under one parameter set.
type SimulationBatch struct {
	Params   SimulationParameters `json:"params"`
	Paths    []Path               `json:"paths,omitempty"`
	Outcomes []PathOutcome        `json:"outcomes"`

	// RuinCount counts first-ruin events; a path stuck at zero is counted once.
	RuinCount int `json:"ruin_count"`
	// RuinTrades holds the first-ruin trade index of every ruined path, in path order.
	RuinTrades []int `json:"ruin_trades,omitempty"`
}

// FinalBalances returns the final balance of every path.
func (b *SimulationBatch) FinalBalances() []float64 {
	out := make([]float64, len(b.Outcomes))
	for i, o := range b.Outcomes {
		out[i] = o.FinalBalance
	}
	return out
}

// MaxDrawdowns returns the max drawdown of every path.
func (b *SimulationBatch) MaxDrawdowns() []float64 {
	out := make([]float64, len(b.Outcomes))
	for i, o := range b.Outcomes {
		out[i] = o.MaxDrawdown
	}
	return out
}
