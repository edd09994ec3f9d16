package graph

import "math"

// =============================================================================
// GROWTH HELPERS
// =============================================================================

// GrowthRate returns the period-over-period change as a fraction:
// (current - prior) / prior. A zero prior yields 0 for a zero current value
// and +Inf otherwise.
func GrowthRate(current, prior float64) float64 {
	if prior == 0 {
		if current == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return (current - prior) / math.Abs(prior)
}

// AverageGrowth averages the finite period-over-period growth rates of a
// chronological series. Series shorter than two values have zero growth.
func AverageGrowth(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum, n := 0.0, 0
	for i := 1; i < len(values); i++ {
		g := GrowthRate(values[i], values[i-1])
		if math.IsInf(g, 0) || math.IsNaN(g) {
			continue
		}
		sum += g
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CAGR returns the compound annual growth rate as a fraction:
// (end / start) ^ (1 / years) - 1. Non-positive inputs yield 0.
func CAGR(start, end float64, years int) float64 {
	if start <= 0 || end <= 0 || years <= 0 {
		return 0
	}
	return math.Pow(end/start, 1.0/float64(years)) - 1
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
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
