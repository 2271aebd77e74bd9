package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanInsufficientData(t *testing.T) {
	_, err := Mean([]float64{1, 2}, 7)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestMeanExactMinN(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	m, err := Mean(values, 7)
	require.NoError(t, err)
	assert.Equal(t, 4.0, m)
}

func TestMeanOrderInvariant(t *testing.T) {
	a := []float64{5, 1, 9, 3, 7, 2, 8}
	b := []float64{9, 8, 7, 5, 3, 2, 1}
	ma, err := Mean(a, 7)
	require.NoError(t, err)
	mb, err := Mean(b, 7)
	require.NoError(t, err)
	assert.Equal(t, ma, mb)
}

func TestStdDevPopulation(t *testing.T) {
	// Population stddev of [2,4,4,4,5,5,7,9] is 2.0
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	sd, err := StdDev(values, 7)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, sd, 0.0001)
}

func TestQuartilesInsufficientData(t *testing.T) {
	_, _, err := Quartiles(make([]float64, 29), 30)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestQuartilesExactMinN(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = float64(i + 1)
	}
	q1, q3, err := Quartiles(values, 30)
	require.NoError(t, err)
	assert.Greater(t, q3, q1)
}

func TestZScoreUndefinedWhenNoSpread(t *testing.T) {
	_, err := ZScore(5, 5, 0)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestZScoreComputed(t *testing.T) {
	z, err := ZScore(10, 5, 2.5)
	require.NoError(t, err)
	assert.Equal(t, 2.0, z)
}

func day(n int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestRollingMeanSkipsGaps(t *testing.T) {
	// 7-day window with one day "missing" from the slice entirely.
	points := []Point{
		{Date: day(0), Value: 100},
		{Date: day(1), Value: 100},
		// day(2) missing
		{Date: day(3), Value: 100},
		{Date: day(4), Value: 100},
		{Date: day(5), Value: 100},
		{Date: day(6), Value: 100},
	}
	_, err := RollingMean(points, 7, 7)
	require.ErrorIs(t, err, ErrInsufficientData, "gap should reduce sample count below minN, not be imputed as zero")
}

func TestHistoricalMaxReturnsDateOfOccurrence(t *testing.T) {
	points := []Point{
		{Date: day(0), Value: 10},
		{Date: day(1), Value: 999},
		{Date: day(2), Value: 20},
	}
	ext, err := HistoricalMax(points, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, 999.0, ext.Value)
	assert.True(t, ext.Date.Equal(day(1)))
}

func TestPercentChangeZeroBaseline(t *testing.T) {
	_, err := PercentChange(10, 0)
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestPercentChangeComputed(t *testing.T) {
	pct, err := PercentChange(82, 100)
	require.NoError(t, err)
	assert.InDelta(t, -0.18, pct, 0.0001)
}
