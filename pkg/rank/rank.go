// Package rank provides percentile ranking and min–max scaling over numeric
// fields.
//
// Every function is pure and deterministic. Results depend only on the
// multiset of input values, never on their order, and tied values always
// receive identical ranks. Ranks must be computed against the entire active
// set so that values rendered together are comparable.
package rank

import (
	"math"
	"slices"
	"sort"
)

// PercentileRank returns the percentile rank (0–100) of value within values:
// the count of values strictly less than value, divided by n−1.
// For n <= 1 the result is always 100.
func PercentileRank(values []float64, value float64) float64 {
	n := len(values)
	if n <= 1 {
		return 100
	}
	less := 0
	for _, v := range values {
		if v < value {
			less++
		}
	}
	return float64(less) / float64(n-1) * 100
}

// PercentileRanks ranks every element of values against the whole set.
// It is equivalent to calling [PercentileRank] for each element but sorts
// once instead of scanning n times.
func PercentileRanks(values []float64) []float64 {
	n := len(values)
	ranks := make([]float64, n)
	if n <= 1 {
		for i := range ranks {
			ranks[i] = 100
		}
		return ranks
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	for i, v := range values {
		// SearchFloat64s returns the first index with sorted[idx] >= v,
		// which is exactly the count of values strictly less than v.
		less := sort.SearchFloat64s(sorted, v)
		ranks[i] = float64(less) / float64(n-1) * 100
	}
	return ranks
}

// RelativeSizePercent maps value linearly from [min, max] onto [0, 100].
// A constant set (max == min) is treated as maximal and yields 100.
func RelativeSizePercent(value, min, max float64) float64 {
	if max == min {
		return 100
	}
	return (value - min) / (max - min) * 100
}

// MinMax returns the joint minimum and maximum across all given fields, so
// that several fields can share one scale. With no values it returns 0, 0.
func MinMax(fields ...[]float64) (min, max float64) {
	first := true
	for _, field := range fields {
		for _, v := range field {
			if first {
				min, max = v, v
				first = false
				continue
			}
			min = math.Min(min, v)
			max = math.Max(max, v)
		}
	}
	return min, max
}

// RelativeSizes scales every value of every field against the joint min/max
// of all fields. The result has the same shape as fields.
func RelativeSizes(fields ...[]float64) [][]float64 {
	lo, hi := MinMax(fields...)
	out := make([][]float64, len(fields))
	for i, field := range fields {
		out[i] = make([]float64, len(field))
		for j, v := range field {
			out[i][j] = RelativeSizePercent(v, lo, hi)
		}
	}
	return out
}

// Lerp interpolates between lo and hi by pct (0–100). pct is clamped so the
// result never leaves [lo, hi].
func Lerp(lo, hi, pct float64) float64 {
	return lo + (hi-lo)*Clamp(pct, 0, 100)/100
}

// Clamp limits v to [lo, hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
