package blast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 2.0, Mean([]float64{1, 2, 3}))
}

func TestStdDevSample(t *testing.T) {
	// deviations of +/-2 over four of ten points: variance 36/9 = 4
	xs := []float64{23, 23, 17, 17, 20, 20, 20, 20, 20, 20}
	sd, ok := StdDev(xs)
	require.True(t, ok)
	assert.InDelta(t, 2.0, sd, 1e-12)
}

func TestStdDevDegenerate(t *testing.T) {
	_, ok := StdDev([]float64{5})
	assert.False(t, ok)
	_, ok = StdDev(nil)
	assert.False(t, ok)
}

func TestZScore(t *testing.T) {
	xs := []float64{23, 23, 17, 17, 20, 20, 20, 20, 20, 20}
	z, ok := ZScore(26, xs)
	require.True(t, ok)
	assert.InDelta(t, 3.0, z, 1e-12)
}

func TestZScoreZeroDeviation(t *testing.T) {
	_, ok := ZScore(10, []float64{5, 5, 5})
	assert.False(t, ok, "flat baseline must not produce a z-score")
}

func TestZScoreNonFinite(t *testing.T) {
	_, ok := ZScore(math.NaN(), []float64{1, 2, 3})
	assert.False(t, ok)
}

func TestPercentileRank(t *testing.T) {
	hist := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	rank, ok := PercentileRank(3.5, hist)
	require.True(t, ok)
	assert.Equal(t, 30.0, rank)

	rank, ok = PercentileRank(100, hist)
	require.True(t, ok)
	assert.Equal(t, 100.0, rank)

	_, ok = PercentileRank(1, nil)
	assert.False(t, ok)
}

func TestFirstDerivative(t *testing.T) {
	assert.Nil(t, FirstDerivative([]float64{1}))
	assert.Equal(t, []float64{1, 2, -3}, FirstDerivative([]float64{0, 1, 3, 0}))
}

func TestSecondDerivative(t *testing.T) {
	assert.Nil(t, SecondDerivative([]float64{1, 2}))
	// velocities 1,2,-3 -> accelerations 1,-5
	assert.Equal(t, []float64{1, -5}, SecondDerivative([]float64{0, 1, 3, 0}))
}
