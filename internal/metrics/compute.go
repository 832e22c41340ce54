package metrics

import (
	"math"
	"sort"

	"trade-montecarlo-lab/internal/domain"
)

// sortedCopy returns values sorted ASC without touching the input.
func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// Mean calculates the arithmetic mean. Empty input yields 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Stddev calculates the population standard deviation (n denominator).
func Stddev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	mean := Mean(values)
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// Median returns the 50th percentile; even-length input averages the middle pair.
func Median(values []float64) float64 {
	return Percentile(values, 0.50)
}

// Percentile uses linear interpolation between closest ranks.
// p is a fraction (0.10 = 10th percentile).
func Percentile(values []float64, p float64) float64 {
	return percentileSorted(sortedCopy(values), p)
}

// percentileSorted expects sorted ASC input.
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	// Index for percentile (0-based, continuous)
	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// MinMax returns the smallest and largest value. Empty input yields (0, 0).
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// CountAbove counts values strictly greater than limit.
func CountAbove(values []float64, limit float64) int {
	n := 0
	for _, v := range values {
		if v > limit {
			n++
		}
	}
	return n
}

// fraction returns count / total, 0 when total is 0.
func fraction(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total)
}

// MaxDrawdown calculates the largest relative peak-to-trough decline of a balance series.
// A non-positive peak contributes no drawdown.
func MaxDrawdown(balances []float64) float64 {
	if len(balances) == 0 {
		return 0
	}

	peak := balances[0]
	maxDrawdown := 0.0
	for _, b := range balances {
		if b > peak {
			peak = b
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - b) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}

// Histogram buckets values into bins equal-width intervals spanning [min, max].
// The last bin is closed on the right. When every value is equal the range is
// widened to [v-0.5, v+0.5].
func Histogram(values []float64, bins int) []domain.HistogramBin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}

	lo, hi := MinMax(values)
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	width := (hi - lo) / float64(bins)

	out := make([]domain.HistogramBin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out
}
