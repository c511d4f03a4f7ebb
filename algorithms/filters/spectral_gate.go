package filters

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// SpectralGate is a stationary noise gate. It learns an average magnitude
// spectrum from a noise-only recording and zeroes every bin of a block that
// does not rise Threshold times above that floor.
//
// Magnitudes are normalised by the square root of the window energy so
// that profile frames and gated blocks of different lengths are comparable.
// Bins are matched by frequency, not index, so the profile may be stored at
// a different sample rate than the blocks being gated.
type SpectralGate struct {
	noiseFloor []float64 // normalised magnitude per profile bin
	profileFFT int
	profileSR  int

	Threshold float64
}

const (
	gateFrameSize = 1024
	gateThreshold = 1.5
)

// NewSpectralGate builds a gate from a noise recording sampled at sampleRate.
// It returns nil if the recording is empty.
func NewSpectralGate(noise []float64, sampleRate int) *SpectralGate {
	if len(noise) == 0 || sampleRate <= 0 {
		return nil
	}

	n := gateFrameSize
	if len(noise) < n {
		n = len(noise)
	}
	hop := max(1, n/2)

	win := window.Hann(n)
	if n == 1 {
		win = []float64{1}
	}
	winNorm := 0.0
	for _, w := range win {
		winNorm += w * w
	}
	winNorm = math.Sqrt(math.Max(winNorm, 1e-12))

	floor := make([]float64, n/2+1)
	frames := 0
	frame := make([]float64, n)
	for start := 0; start+n <= len(noise); start += hop {
		for i := range frame {
			frame[i] = noise[start+i] * win[i]
		}
		spectrum := fft.FFTReal(frame)
		for k := range floor {
			floor[k] += cmplx.Abs(spectrum[k]) / winNorm
		}
		frames++
	}
	for k := range floor {
		floor[k] /= float64(frames)
	}

	return &SpectralGate{
		noiseFloor: floor,
		profileFFT: n,
		profileSR:  sampleRate,
		Threshold:  gateThreshold,
	}
}

// Apply gates a block sampled at sampleRate and returns the filtered copy.
func (g *SpectralGate) Apply(block []float64, sampleRate int) []float64 {
	if g == nil || len(block) == 0 || sampleRate <= 0 {
		return block
	}

	n := len(block)
	spectrum := fft.FFTReal(block)
	norm := math.Sqrt(float64(n))

	for k := 0; k <= n/2; k++ {
		freq := float64(k) * float64(sampleRate) / float64(n)
		if cmplx.Abs(spectrum[k])/norm >= g.Threshold*g.floorAt(freq) {
			continue
		}
		spectrum[k] = 0
		if mirror := n - k; mirror != k && mirror < n {
			spectrum[mirror] = 0
		}
	}

	restored := fft.IFFT(spectrum)
	out := make([]float64, n)
	for i, v := range restored {
		out[i] = real(v)
	}
	return out
}

// floorAt returns the learned noise magnitude nearest to freq. Frequencies
// above the profile's Nyquist reuse the top bin.
func (g *SpectralGate) floorAt(freq float64) float64 {
	bin := int(math.Round(freq * float64(g.profileFFT) / float64(g.profileSR)))
	if bin >= len(g.noiseFloor) {
		bin = len(g.noiseFloor) - 1
	}
	if bin < 0 {
		bin = 0
	}
	return g.noiseFloor[bin]
}
