package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestL2Normalize(t *testing.T) {
	v := []float64{3, 4}
	L2Normalize(v, 0)
	assert.InDeltaSlice(t, []float64{0.6, 0.8}, v, 1e-12)

	zero := []float64{0, 0, 0}
	L2Normalize(zero, 0)
	assert.Equal(t, []float64{0, 0, 0}, zero)

	tiny := []float64{1e-9, 0}
	L2Normalize(tiny, 1e-6)
	assert.Equal(t, []float64{1e-9, 0}, tiny)
}

func TestStatsHelpers(t *testing.T) {
	data := []float64{1, -2, 5, 5, 0}

	assert.InDelta(t, 1.8, Mean(data), 1e-12)
	assert.Equal(t, 5.0, Max(data))
	assert.Equal(t, 2, ArgMax(data))
	assert.Equal(t, 1, ArgMin(data))
	assert.InDelta(t, math.Sqrt(55.0/5), RMS(data), 1e-12)

	assert.Zero(t, Mean(nil))
	assert.Zero(t, RMS(nil))
	assert.Equal(t, -1, ArgMax(nil))
	assert.Equal(t, -1, ArgMin(nil))
}

func TestArgMin_FirstOfTies(t *testing.T) {
	assert.Equal(t, 1, ArgMin([]float64{math.Inf(1), 0.5, 0.5, 2}))
}

func TestDot(t *testing.T) {
	assert.Equal(t, 11.0, Dot([]float64{1, 2}, []float64{3, 4}))
	assert.Zero(t, Dot([]float64{1}, []float64{1, 2}))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.95, Clamp(0.5, 0.95, 0.97))
	assert.Equal(t, 0.97, Clamp(1.0, 0.95, 0.97))
	assert.Equal(t, 0.96, Clamp(0.96, 0.95, 0.97))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(1.5))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
}

func TestFloatConversions(t *testing.T) {
	in := []float32{0.25, -1, 2}
	assert.Equal(t, []float64{0.25, -1, 2}, ToFloat64(in))
	assert.Equal(t, in, ToFloat32(ToFloat64(in)))
}
