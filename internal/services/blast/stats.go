package blast

import "math"

// Statistics primitives over bounded numeric windows. All functions expect
// series ordered oldest to newest; callers reverse the newest-first history
// window before differencing.

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation (N-1 denominator) and true,
// or (0, false) when fewer than two values are available.
func StdDev(xs []float64) (float64, bool) {
	n := len(xs)
	if n < 2 {
		return 0, false
	}
	m := Mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(n-1)), true
}

// ZScore returns how many standard deviations current lies from the mean of
// hist. ok is false when the score cannot be computed (fewer than two
// historical values, zero deviation, or non-finite input); dependent signals
// must not fire in that case.
func ZScore(current float64, hist []float64) (float64, bool) {
	if !isFinite(current) {
		return 0, false
	}
	sd, ok := StdDev(hist)
	if !ok || sd == 0 {
		return 0, false
	}
	return (current - Mean(hist)) / sd, true
}

// PercentileRank returns the fraction of historical values <= current,
// expressed 0-100. ok is false for an empty history or non-finite input.
func PercentileRank(current float64, hist []float64) (float64, bool) {
	if len(hist) == 0 || !isFinite(current) {
		return 0, false
	}
	count := 0
	for _, x := range hist {
		if x <= current {
			count++
		}
	}
	return float64(count) / float64(len(hist)) * 100, true
}

// FirstDerivative returns per-step differences of a series (velocity).
// The result has length len(xs)-1, or nil when fewer than two points exist.
func FirstDerivative(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, 0, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out = append(out, xs[i]-xs[i-1])
	}
	return out
}

// SecondDerivative returns differences of differences (acceleration).
// Requires at least three points; nil otherwise.
func SecondDerivative(xs []float64) []float64 {
	if len(xs) < 3 {
		return nil
	}
	return FirstDerivative(FirstDerivative(xs))
}

// reversed returns a copy of xs in opposite order.
func reversed(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[len(xs)-1-i] = x
	}
	return out
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
