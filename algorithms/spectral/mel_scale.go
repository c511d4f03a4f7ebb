package spectral

import (
	"math"

	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/floats"
)

// MelScale converts between Hz and the Slaney mel scale and builds
// area-normalized triangular filter banks, matching the layout neural pitch
// models are trained on.
type MelScale struct {
	SampleRate int
	FFTSize    int
	NumMels    int
	FMin       float64
	FMax       float64

	filters [][]float64
}

const (
	slaneyFSp       = 200.0 / 3
	slaneyMinLogHz  = 1000.0
	slaneyMinLogMel = slaneyMinLogHz / slaneyFSp
)

var slaneyLogStep = math.Log(6.4) / 27.0

// NewMelScale creates a mel converter and precomputes its filter bank
func NewMelScale(sampleRate, fftSize, numMels int, fmin, fmax float64) *MelScale {
	ms := &MelScale{
		SampleRate: sampleRate,
		FFTSize:    fftSize,
		NumMels:    numMels,
		FMin:       fmin,
		FMax:       fmax,
	}
	ms.filters = ms.CreateMelFilterBank()
	return ms
}

// HzToMel converts frequency in Hz to the Slaney mel scale (linear below
// 1 kHz, logarithmic above)
func HzToMel(hz float64) float64 {
	if hz < slaneyMinLogHz {
		return hz / slaneyFSp
	}
	return slaneyMinLogMel + math.Log(hz/slaneyMinLogHz)/slaneyLogStep
}

// MelToHz converts Slaney mel back to Hz
func MelToHz(mel float64) float64 {
	if mel < slaneyMinLogMel {
		return mel * slaneyFSp
	}
	return slaneyMinLogHz * math.Exp(slaneyLogStep*(mel-slaneyMinLogMel))
}

// CreateMelFilterBank builds NumMels triangular filters over FFTSize/2+1 bins
func (ms *MelScale) CreateMelFilterBank() [][]float64 {
	if ms.NumMels <= 0 || ms.FFTSize <= 0 || ms.SampleRate <= 0 {
		return nil
	}

	numBins := ms.FFTSize/2 + 1
	fftFreqs := make([]float64, numBins)
	floats.Span(fftFreqs, 0, float64(ms.SampleRate)/2)

	melPoints := make([]float64, ms.NumMels+2)
	floats.Span(melPoints, HzToMel(ms.FMin), HzToMel(ms.FMax))
	hzPoints := make([]float64, len(melPoints))
	for i, m := range melPoints {
		hzPoints[i] = MelToHz(m)
	}

	bank := make([][]float64, ms.NumMels)
	for m := range bank {
		bank[m] = make([]float64, numBins)
		left, center, right := hzPoints[m], hzPoints[m+1], hzPoints[m+2]
		enorm := 2.0 / (right - left)

		for k, f := range fftFreqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			w := math.Max(0, math.Min(lower, upper))
			bank[m][k] = w * enorm
		}
	}
	return bank
}

// ApplyFilterBank projects a power spectrum onto the mel bands
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64) []float64 {
	mel := make([]float64, len(ms.filters))
	for i, filter := range ms.filters {
		n := min(len(filter), len(powerSpectrum))
		mel[i] = floats.Dot(filter[:n], powerSpectrum[:n])
	}
	return mel
}

// Spectrogram computes a centered, zero-padded power mel spectrogram with a
// periodic Hann window. The result is indexed [mel][frame].
func (ms *MelScale) Spectrogram(signal []float64, hop int) [][]float64 {
	if hop <= 0 || ms.FFTSize <= 0 {
		return nil
	}

	half := ms.FFTSize / 2
	padded := make([]float64, len(signal)+2*half)
	copy(padded[half:], signal)

	numFrames := 1 + (len(padded)-ms.FFTSize)/hop
	if numFrames <= 0 {
		return nil
	}

	// Periodic Hann of length N is the first N points of a symmetric N+1 Hann.
	win := window.Hann(ms.FFTSize + 1)[:ms.FFTSize]
	f := NewFFT()

	out := make([][]float64, ms.NumMels)
	for m := range out {
		out[m] = make([]float64, numFrames)
	}

	frame := make([]float64, ms.FFTSize)
	for t := 0; t < numFrames; t++ {
		start := t * hop
		for i := range frame {
			frame[i] = padded[start+i] * win[i]
		}
		mel := ms.ApplyFilterBank(f.Power(frame, ms.FFTSize))
		for m, v := range mel {
			out[m][t] = v
		}
	}
	return out
}

// LogNormalized converts a power mel spectrogram to dB relative to its
// maximum, clips at -80 dB and rescales to [0, 1] via (dB+80)/80.
func LogNormalized(spec [][]float64) [][]float64 {
	const (
		amin  = 1e-10
		topDB = 80.0
	)

	ref := amin
	for _, row := range spec {
		if len(row) > 0 {
			ref = math.Max(ref, floats.Max(row))
		}
	}
	refDB := 10 * math.Log10(ref)

	out := make([][]float64, len(spec))
	for m, row := range spec {
		out[m] = make([]float64, len(row))
		for t, v := range row {
			db := 10*math.Log10(math.Max(amin, v)) - refDB
			db = math.Max(db, -topDB)
			out[m][t] = (db + topDB) / topDB
		}
	}
	return out
}
