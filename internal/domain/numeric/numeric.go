// Package numeric holds the small statistics helpers shared by the scheduler
// components. Every function is pure and tolerates empty input.
package numeric

import "math"

// Clamp bounds v to [lo, hi]. NaN collapses to lo so a bad upstream value
// cannot propagate across turns.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Mean returns the arithmetic mean, or 0 for empty input.
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

// Variance returns the population variance, or 0 for fewer than two values.
func Variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs))
}

// CoefficientOfVariation returns stddev/mean, or 0 when the mean is zero or
// there are fewer than two values.
func CoefficientOfVariation(xs []float64) float64 {
	m := Mean(xs)
	if m == 0 || len(xs) < 2 {
		return 0
	}
	return math.Sqrt(Variance(xs)) / m
}

// Slope fits y = a + b*x by least squares over x = 0..n-1 and returns b.
// Fewer than two points yield 0.
func Slope(ys []float64) float64 {
	n := float64(len(ys))
	if len(ys) < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}

// Last returns up to n trailing elements of xs.
func Last(xs []float64, n int) []float64 {
	if n < len(xs) {
		return xs[len(xs)-n:]
	}
	return xs
}
