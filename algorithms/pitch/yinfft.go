package pitch

import (
	"fmt"
	"math"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
	"github.com/RyanBlaney/sonido-follow/logging"
)

// YinFFT is the spectral variant of YIN. The difference function is read
// off the autocorrelation of the Hann-windowed power spectrum, normalised by
// its cumulative mean, and searched for the deepest dip between the lags of
// maxFreq and minFreq. The dip is refined by parabolic interpolation.
//
// Confidence is 1 minus the dip depth, scaled by an amplitude factor
// min(1, 50*RMS) and a harmonicity factor, the largest non-zero-lag
// autocorrelation over the zero-lag energy.
type YinFFT struct {
	sampleRate float64
	minFreq    float64
	maxFreq    float64
	logger     logging.Logger

	mu      sync.Mutex
	windows map[int][]float64
}

// NewYinFFT creates the spectral YIN tier
func NewYinFFT(sampleRate int, minFreq, maxFreq float64) *YinFFT {
	if minFreq <= 0 {
		minFreq = 50.0
	}
	if maxFreq <= 0 || maxFreq > float64(sampleRate)/2 {
		maxFreq = float64(sampleRate) / 2
	}
	return &YinFFT{
		sampleRate: float64(sampleRate),
		minFreq:    minFreq,
		maxFreq:    maxFreq,
		logger: logging.WithFields(logging.Fields{
			"component": "yinfft",
		}),
		windows: make(map[int][]float64),
	}
}

// Name implements Estimator
func (y *YinFFT) Name() string {
	return "yinfft"
}

// Predict implements Estimator
func (y *YinFFT) Predict(frame []float64) (Result, error) {
	res := Result{Source: y.Name()}

	// the spectrum is mirrored around n/2, so the frame length must be even
	frame = frame[:len(frame)&^1]

	freq, conf, err := y.detect(frame)
	if err != nil {
		return res, err
	}
	if math.IsNaN(freq) || math.IsNaN(conf) || freq <= 0 {
		return res, nil
	}

	amplitude := math.Min(1.0, common.RMS(frame)*50)
	res.Frequency = freq
	res.Confidence = common.Clamp(conf, 0, 1) * amplitude * Harmonicity(frame)
	return res, nil
}

func (y *YinFFT) detect(frame []float64) (freq, conf float64, err error) {
	n := len(frame)
	maxTau := int(math.Min(math.Ceil(y.sampleRate/y.minFreq), float64(n/2)))
	minTau := max(1, int(math.Min(math.Floor(y.sampleRate/y.maxFreq), float64(n/2))))
	if maxTau <= minTau {
		return 0, 0, fmt.Errorf("%w: yinfft frame size %d cannot resolve %.1f Hz", ErrInference, n, y.minFreq)
	}

	win := y.window(n)
	windowed := make([]float64, n)
	for i, v := range frame {
		windowed[i] = v * win[i]
	}
	spectrum := fft.FFTReal(windowed)

	half := n/2 + 1
	power := make([]float64, n)
	power[0] = squaredMagnitude(spectrum[0])
	sum := 0.0
	for k := 1; k < half; k++ {
		p := squaredMagnitude(spectrum[k])
		power[k] = p
		power[n-k] = p
		sum += p
	}
	sum *= 2
	if sum == 0 {
		return 0, 0, nil
	}

	acf := fft.FFTReal(power)
	yin := make([]float64, half)
	yin[0] = 1
	running := 0.0
	for tau := 1; tau < half; tau++ {
		yin[tau] = sum - real(acf[tau])
		running += yin[tau]
		if running <= 0 {
			yin[tau] = 1
			continue
		}
		yin[tau] *= float64(tau) / running
	}

	best := -1
	for tau := minTau; tau <= maxTau && tau < half-1; tau++ {
		if yin[tau] > yin[tau-1] || yin[tau] > yin[tau+1] {
			continue
		}
		if best < 0 || yin[tau] < yin[best] {
			best = tau
		}
	}
	if best < 0 {
		return 0, 0, nil
	}

	shift, depth := parabolicMinimum(yin[best-1], yin[best], yin[best+1])
	return y.sampleRate / (float64(best) + shift), 1 - depth, nil
}

func (y *YinFFT) window(n int) []float64 {
	y.mu.Lock()
	defer y.mu.Unlock()

	if w, ok := y.windows[n]; ok {
		return w
	}
	w := window.Hann(n)
	y.windows[n] = w
	y.logger.Debug("Built analysis window", logging.Fields{
		"frame_size": n,
	})
	return w
}

func squaredMagnitude(c complex128) float64 {
	return real(c)*real(c) + imag(c)*imag(c)
}

// parabolicMinimum fits a parabola through three equally spaced points and
// returns the offset of its vertex from the middle point, in [-0.5, 0.5],
// together with the value there
func parabolicMinimum(left, centre, right float64) (offset, value float64) {
	curvature := left - 2*centre + right
	if curvature <= 0 {
		return 0, centre
	}
	offset = common.Clamp(0.5*(left-right)/curvature, -0.5, 0.5)
	return offset, centre - 0.25*(left-right)*offset
}

// Harmonicity returns max(r[1:])/r[0] for the autocorrelation r of frame,
// or 0.5 for frames too short to have a non-zero lag
func Harmonicity(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.5
	}

	r := autocorrelation(frame)
	return common.Max(r[1:]) / (r[0] + 1e-10)
}

// autocorrelation computes the non-negative lags of the linear
// autocorrelation through a zero-padded FFT
func autocorrelation(frame []float64) []float64 {
	n := len(frame)
	padded := make([]float64, 2*n)
	copy(padded, frame)

	spectrum := fft.FFTReal(padded)
	for i, v := range spectrum {
		spectrum[i] = complex(real(v)*real(v)+imag(v)*imag(v), 0)
	}
	full := fft.IFFT(spectrum)

	r := make([]float64, n)
	for i := range r {
		r[i] = real(full[i])
	}
	return r
}
