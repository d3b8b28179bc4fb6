// Package stats provides the statistical primitives shared by the
// aggregation components: percentiles, dispersion measures, and the
// least-squares forecast used for trend projection.
package stats

import (
	"math"
	"sort"
)

// Average returns the arithmetic mean of values, or 0 for an empty slice.
// Empty input is a normal warm-up condition, not an error.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the 50th percentile of values, or 0 for an empty slice.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

// Percentile returns the p-th percentile (0-100) of values using linear
// interpolation between the two bracketing ranks. The input slice is not
// modified. Returns 0 for an empty slice.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	index := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := lower + 1

	if lower < 0 {
		return sorted[0]
	}
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// StdDev returns the population standard deviation of values, or 0 for an
// empty slice.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	mean := Average(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

// LinearForecast fits an ordinary least-squares line through values (indexed
// by 0-based rank) and returns the value predicted one step beyond the
// series. With fewer than 3 points a fit is meaningless, so the last value
// is returned unchanged.
func LinearForecast(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n < 3 {
		return values[n-1]
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return values[n-1]
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	return slope*fn + intercept
}

// GrowthRate returns the geometric mean period-over-period growth rate,
// (last/first)^(1/(n-1)) - 1. Returns 0 for fewer than 2 points or a
// non-positive first value, where the ratio is undefined.
func GrowthRate(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	first := values[0]
	last := values[len(values)-1]
	if first <= 0 {
		return 0
	}

	return math.Pow(last/first, 1/float64(len(values)-1)) - 1
}
