package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Small numeric helpers shared by the analysis packages, backed by gonum.

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Norm(data, 2) / math.Sqrt(float64(len(data)))
}

// L2Normalize scales data in place to unit Euclidean norm. Vectors with a
// norm at or below eps are left untouched.
func L2Normalize(data []float64, eps float64) []float64 {
	norm := floats.Norm(data, 2)
	if norm <= eps {
		return data
	}
	floats.Scale(1/norm, data)
	return data
}

// Dot returns the inner product of two equal-length vectors
func Dot(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}
	return floats.Dot(a, b)
}

// Max returns the largest element, or 0 for an empty slice
func Max(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Max(data)
}

// ArgMax returns the index of the largest element, or -1 for an empty slice
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// ArgMin returns the index of the smallest element, or -1 for an empty slice
func ArgMin(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MinIdx(data)
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ToFloat64 widens a single-precision block for analysis
func ToFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// ToFloat32 narrows an analysis block, e.g. for model input tensors
func ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
