package hrtrend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitLine_PerfectLine(t *testing.T) {
	points := []sample{{0, 60}, {1000, 62}, {2000, 64}, {3000, 66}}
	fit, ok := fitLine(points)
	require.True(t, ok)
	assert.InDelta(t, 0.002, fit.Slope, 1e-12)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-12)
}

func TestFitLine_OffsetTimestamps(t *testing.T) {
	points := []sample{{1_700_000_000_000, 100}, {1_700_000_001_000, 99}, {1_700_000_002_000, 98}}
	fit, ok := fitLine(points)
	require.True(t, ok)
	assert.InDelta(t, -0.001, fit.Slope, 1e-12)
}

func TestFitLine_Undefined(t *testing.T) {
	_, ok := fitLine([]sample{{0, 70}, {1000, 70}, {2000, 70}})
	assert.False(t, ok, "flat series")

	_, ok = fitLine([]sample{{500, 70}, {500, 72}, {500, 74}})
	assert.False(t, ok, "no time spread")

	_, ok = fitLine([]sample{{0, 70}})
	assert.False(t, ok, "single point")
}

func TestFitLine_NoisyFitHasLowerConfidence(t *testing.T) {
	fit, ok := fitLine([]sample{{0, 70}, {1000, 75}, {2000, 68}, {3000, 74}, {4000, 69}})
	require.True(t, ok)
	assert.Less(t, fit.RSquared, 0.5)
}

func TestWeightedAverage(t *testing.T) {
	assert.InDelta(t, 14.0/6.0, weightedAverage([]float64{1, 2, 3}), 1e-12)
	assert.Equal(t, 0.0, weightedAverage(nil))
}

func TestKalmanFilter_SeedsAndSmooths(t *testing.T) {
	k := newKalmanFilter(kalmanProcessNoise, kalmanMeasurementNoise)
	assert.Equal(t, 80.0, k.update(80))

	next := k.update(90)
	assert.Greater(t, next, 80.0)
	assert.Less(t, next, 90.0)

	k.reset()
	assert.Equal(t, 120.0, k.update(120))
}
