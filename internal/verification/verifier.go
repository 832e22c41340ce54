// Package verification checks that simulated batches are reproducible.
// A batch is re-run with the same seed, and every path is replayed on its own
// stream; both must match the original within FloatTolerance.
package verification

import (
	"context"
	"fmt"
	"math"

	"trade-montecarlo-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// MaxDivergences caps the divergences kept in a report.
const MaxDivergences = 50

// FieldDivergence represents a mismatch between expected and actual values.
type FieldDivergence struct {
	Field    string      `json:"field"`
	Expected interface{} `json:"expected"`
	Actual   interface{} `json:"actual"`
}

// CompareBatches compares two batches and returns divergences.
// Uses FloatTolerance for balances and drawdowns.
func CompareBatches(expected, actual *domain.SimulationBatch) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, exp, act interface{}) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: exp, Actual: act})
	}

	if expected.RuinCount != actual.RuinCount {
		add("RuinCount", expected.RuinCount, actual.RuinCount)
	}
	if len(expected.Paths) != len(actual.Paths) {
		add("len(Paths)", len(expected.Paths), len(actual.Paths))
		return divergences
	}

	for i := range expected.Paths {
		divergences = append(divergences, ComparePath(i, expected.Paths[i], actual.Paths[i])...)
		if i < len(expected.Outcomes) && i < len(actual.Outcomes) {
			divergences = append(divergences, CompareOutcome(i, expected.Outcomes[i], actual.Outcomes[i])...)
		}
	}
	return divergences
}

// ComparePath compares balances of path i step by step.
func ComparePath(i int, expected, actual domain.Path) []FieldDivergence {
	if len(expected) != len(actual) {
		return []FieldDivergence{{
			Field:    fmt.Sprintf("Paths[%d].len", i),
			Expected: len(expected),
			Actual:   len(actual),
		}}
	}
	for t := range expected {
		if !floatEquals(expected[t], actual[t]) {
			// First differing step is enough; later steps follow from it.
			return []FieldDivergence{{
				Field:    fmt.Sprintf("Paths[%d][%d]", i, t),
				Expected: expected[t],
				Actual:   actual[t],
			}}
		}
	}
	return nil
}

// CompareOutcome compares the per-path outcome fields.
func CompareOutcome(i int, expected, actual domain.PathOutcome) []FieldDivergence {
	var divergences []FieldDivergence

	if !floatEquals(expected.FinalBalance, actual.FinalBalance) {
		divergences = append(divergences, FieldDivergence{
			Field:    fmt.Sprintf("Outcomes[%d].FinalBalance", i),
			Expected: expected.FinalBalance,
			Actual:   actual.FinalBalance,
		})
	}
	if !floatEquals(expected.MaxDrawdown, actual.MaxDrawdown) {
		divergences = append(divergences, FieldDivergence{
			Field:    fmt.Sprintf("Outcomes[%d].MaxDrawdown", i),
			Expected: expected.MaxDrawdown,
			Actual:   actual.MaxDrawdown,
		})
	}
	if expected.Ruined != actual.Ruined {
		divergences = append(divergences, FieldDivergence{
			Field:    fmt.Sprintf("Outcomes[%d].Ruined", i),
			Expected: expected.Ruined,
			Actual:   actual.Ruined,
		})
	}
	if expected.RuinTrade != actual.RuinTrade {
		divergences = append(divergences, FieldDivergence{
			Field:    fmt.Sprintf("Outcomes[%d].RuinTrade", i),
			Expected: expected.RuinTrade,
			Actual:   actual.RuinTrade,
		})
	}

	return divergences
}

// floatEquals compares two floats within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}

// BatchRunner produces a batch from parameters and a seed.
type BatchRunner interface {
	Run(ctx context.Context, params domain.SimulationParameters, seed uint64) (*domain.SimulationBatch, error)
}
