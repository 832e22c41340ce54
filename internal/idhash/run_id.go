package idhash

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"

	"trade-montecarlo-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(simulate|balance|p|rr|risk|trades|sims|liq|seed)
// Returns the base58-encoded hash.
func ComputeRunID(params domain.SimulationParameters, seed uint64) string {
	data := fmt.Sprintf("simulate|%s|%s|%s|%s|%d|%d|%s|%d",
		formatFloat(params.StartingBalance),
		formatFloat(params.WinProbability),
		formatFloat(params.RewardRiskRatio),
		formatFloat(params.RiskFraction),
		params.TradeCount,
		params.SimulationCount,
		formatFloat(params.LiquidationPct),
		seed,
	)
	return encode(data)
}

// ComputeSweepID computes a deterministic sweep_id using SHA256.
// Formula: SHA256(sweep|balance|rr|risks|winrates|trials|trades|seed)
func ComputeSweepID(base domain.SimulationParameters, riskPcts, winratePcts []float64, trials, trades int, seed uint64) string {
	data := fmt.Sprintf("sweep|%s|%s|%s|%s|%d|%d|%d",
		formatFloat(base.StartingBalance),
		formatFloat(base.RewardRiskRatio),
		joinFloats(riskPcts),
		joinFloats(winratePcts),
		trials,
		trades,
		seed,
	)
	return encode(data)
}

func encode(data string) string {
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// formatFloat uses the shortest representation that round-trips.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func joinFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ",")
}
