// Package stats is the Statistical Kernel: pure, deterministic,
// side-effect-free functions shared by every detector. Gaps in an input
// series are skipped, never imputed. Minimum-sample guards return
// ErrInsufficientData rather than a numeric result — callers (detectors)
// must treat that as "no signal", never as an anomaly.
//
// Grounded on the z-score shape in other_examples/HerbHall-subnetree's
// anomaly package, generalized from a single threshold check into the full
// set of primitives spec.md §4.1 requires (mean, stddev, quartiles/IQR,
// z-score, rolling mean, historical extrema).
package stats

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrInsufficientData is returned when a primitive requires more valid
// samples than were supplied.
var ErrInsufficientData = errors.New("insufficient data")

// DefaultMinRollingN is the minimum sample count for rolling-window
// primitives (mean, stddev, extrema) absent an explicit override.
const DefaultMinRollingN = 7

// DefaultMinQuartileN is the minimum sample count for quartile-based tests.
const DefaultMinQuartileN = 30

// Point pairs a calendar date with a metric value. A missing day is simply
// absent from the slice — callers never synthesize a zero for it.
type Point struct {
	Date  time.Time
	Value float64
}

// Mean returns the arithmetic mean of values, or ErrInsufficientData if
// fewer than minN values are supplied.
func Mean(values []float64, minN int) (float64, error) {
	if len(values) < minN {
		return 0, ErrInsufficientData
	}
	return mean(values), nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64, minN int) (float64, error) {
	if len(values) < minN {
		return 0, ErrInsufficientData
	}
	m := mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	variance := sumSq / float64(len(values))
	return math.Sqrt(variance), nil
}

// Quartiles returns (Q1, Q3) computed via linear interpolation on the
// sorted values, following the same method as Python's
// statistics.quantiles(method="inclusive") that the original system used.
func Quartiles(values []float64, minN int) (q1, q3 float64, err error) {
	if len(values) < minN {
		return 0, 0, ErrInsufficientData
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 = percentile(sorted, 0.25)
	q3 = percentile(sorted, 0.75)
	return q1, q3, nil
}

// percentile performs linear interpolation between closest ranks on an
// already-sorted slice, p in [0,1].
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	rank := p * float64(n-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// IQR returns Q3 - Q1.
func IQR(values []float64, minN int) (float64, error) {
	q1, q3, err := Quartiles(values, minN)
	if err != nil {
		return 0, err
	}
	return q3 - q1, nil
}

// ZScore returns (x - mean) / stddev. It is only defined when stddev > 0;
// otherwise it returns ErrInsufficientData (spec.md §4.1: "undefined
// sentinel").
func ZScore(x, mean, stddev float64) (float64, error) {
	if stddev <= 0 {
		return 0, ErrInsufficientData
	}
	return (x - mean) / stddev, nil
}

// RollingMean computes the mean of the trailing window of N valid points
// ending at (and including) the last point in points, skipping any gaps
// already absent from the slice. Returns ErrInsufficientData if fewer than
// minN points fall within the window.
func RollingMean(points []Point, window, minN int) (float64, error) {
	tail := lastN(points, window)
	if len(tail) < minN {
		return 0, ErrInsufficientData
	}
	values := make([]float64, len(tail))
	for i, p := range tail {
		values[i] = p.Value
	}
	return mean(values), nil
}

// lastN returns the trailing n points (or fewer, if points is shorter).
func lastN(points []Point, n int) []Point {
	if n <= 0 || len(points) == 0 {
		return nil
	}
	if len(points) <= n {
		return points
	}
	return points[len(points)-n:]
}

// Extremum describes a historical max or min and the date it occurred.
type Extremum struct {
	Value float64
	Date  time.Time
}

// HistoricalMax returns the maximum value (and its date) within the window
// of points, the trailing window-length slice of points.
func HistoricalMax(points []Point, window, minN int) (Extremum, error) {
	return extremum(points, window, minN, true)
}

// HistoricalMin returns the minimum value (and its date) within the window.
func HistoricalMin(points []Point, window, minN int) (Extremum, error) {
	return extremum(points, window, minN, false)
}

func extremum(points []Point, window, minN int, max bool) (Extremum, error) {
	tail := lastN(points, window)
	if len(tail) < minN {
		return Extremum{}, ErrInsufficientData
	}
	best := tail[0]
	for _, p := range tail[1:] {
		if (max && p.Value > best.Value) || (!max && p.Value < best.Value) {
			best = p
		}
	}
	return Extremum{Value: best.Value, Date: best.Date}, nil
}

// PercentChange returns (current-baseline)/baseline as a fraction (not a
// percentage). Callers multiply by 100 for display. Returns
// ErrInsufficientData when baseline is zero — a percent change against a
// zero baseline is not meaningful.
func PercentChange(current, baseline float64) (float64, error) {
	if baseline == 0 {
		return 0, ErrInsufficientData
	}
	return (current - baseline) / baseline, nil
}
