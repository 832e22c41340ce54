package reporting

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// money formats a balance with two decimals.
func money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Sprintf("%v", v)
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// pct formats a 0..1 fraction as a percentage with two decimals.
func pct(f float64) string {
	return fmt.Sprintf("%.2f%%", f*100)
}
