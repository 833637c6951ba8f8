// Package stats holds the pure numeric helpers used by the daily rollup.
package stats

import (
	"math"
	"sort"
)

// Percentile computes the nearest-rank percentile of samples: the value at
// index ceil(p/100*n)-1 of the ascending-sorted list, clamped at 0. This is
// not linear interpolation. Returns 0 for an empty sample set.
func Percentile(samples []int64, p float64) int64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]int64, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Round4 rounds a ratio to four decimal places, the precision used for
// funnel conversion rates.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
