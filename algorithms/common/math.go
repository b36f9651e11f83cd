package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms using gonum for robustness

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// MeanSquare returns the average of the squared samples (signal power).
func MeanSquare(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Dot(data, data) / float64(len(data))
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	return math.Sqrt(MeanSquare(data))
}

// SubtractMean returns a copy of data with its mean removed.
func SubtractMean(data []float64) []float64 {
	out := make([]float64, len(data))
	if len(data) == 0 {
		return out
	}
	copy(out, data)
	floats.AddConst(-Mean(data), out)
	return out
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lerp blends a towards b by t.
func Lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// ParabolicPeak refines the position of the extremum at index i using the
// parabola through (i-1, i, i+1). It returns i unchanged at the edges or when
// the three points are collinear.
func ParabolicPeak(data []float64, i int) float64 {
	if i <= 0 || i >= len(data)-1 {
		return float64(i)
	}
	y0, y1, y2 := data[i-1], data[i], data[i+1]
	denom := y0 - 2*y1 + y2
	if math.Abs(denom) < 1e-12 {
		return float64(i)
	}
	offset := 0.5 * (y0 - y2) / denom
	if offset > 1 || offset < -1 {
		return float64(i)
	}
	return float64(i) + offset
}
