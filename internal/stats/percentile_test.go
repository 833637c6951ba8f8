package stats_test

import (
	"testing"

	"github.com/snapframe/kiosk-analytics/internal/stats"
	"github.com/stretchr/testify/assert"
)

func TestPercentile_NearestRank(t *testing.T) {
	samples := []int64{10, 20, 30, 40, 50}

	assert.EqualValues(t, 30, stats.Percentile(samples, 50))
	assert.EqualValues(t, 50, stats.Percentile(samples, 95))
	assert.EqualValues(t, 50, stats.Percentile(samples, 99))
	assert.EqualValues(t, 10, stats.Percentile(samples, 0))
	assert.EqualValues(t, 50, stats.Percentile(samples, 100))
}

func TestPercentile_Empty(t *testing.T) {
	assert.EqualValues(t, 0, stats.Percentile(nil, 50))
	assert.EqualValues(t, 0, stats.Percentile([]int64{}, 99))
}

func TestPercentile_Unsorted(t *testing.T) {
	samples := []int64{50, 10, 40, 20, 30}

	assert.EqualValues(t, 30, stats.Percentile(samples, 50))
	// Input must not be mutated.
	assert.Equal(t, []int64{50, 10, 40, 20, 30}, samples)
}

func TestPercentile_SingleSample(t *testing.T) {
	samples := []int64{120}

	assert.EqualValues(t, 120, stats.Percentile(samples, 50))
	assert.EqualValues(t, 120, stats.Percentile(samples, 99))
}

func TestRound4(t *testing.T) {
	assert.InDelta(t, 0.6667, stats.Round4(2.0/3.0), 1e-9)
	assert.InDelta(t, 0.125, stats.Round4(0.125), 1e-9)
	assert.InDelta(t, 0, stats.Round4(0), 1e-9)
}
