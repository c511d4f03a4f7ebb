package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp's real FFT
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the full complex spectrum of a real signal.
// go-dsp handles non-power-of-2 sizes.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// Magnitude returns |X[k]| for the non-negative frequency bins 0..n/2 of an
// n-point transform. The input is zero-padded or truncated to n.
func (f *FFT) Magnitude(x []float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	frame := fitLength(x, n)
	spectrum := fft.FFTReal(frame)

	mags := make([]float64, n/2+1)
	for k := range mags {
		mags[k] = cmplx.Abs(spectrum[k])
	}
	return mags
}

// Power returns |X[k]|^2 for bins 0..n/2
func (f *FFT) Power(x []float64, n int) []float64 {
	mags := f.Magnitude(x, n)
	for k, m := range mags {
		mags[k] = m * m
	}
	return mags
}

// BinFrequency returns the center frequency in Hz of bin k for an n-point FFT
func BinFrequency(k, n, sampleRate int) float64 {
	return float64(k) * float64(sampleRate) / float64(n)
}

func fitLength(x []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, x)
	return out
}
