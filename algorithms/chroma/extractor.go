package chroma

import (
	"math"

	"github.com/mjibson/go-dsp/window"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
	"github.com/RyanBlaney/sonido-follow/algorithms/filters"
	"github.com/RyanBlaney/sonido-follow/algorithms/spectral"
)

// NumBins is the number of pitch classes in a chroma vector
const NumBins = 12

// Vector is an octave-folded pitch-class energy distribution. Index 0 is C.
// Extractor output is always either all zero or unit L2 norm.
type Vector [NumBins]float64

// Norm returns the Euclidean norm
func (v Vector) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Dot returns the inner product with other
func (v Vector) Dot(other Vector) float64 {
	return common.Dot(v[:], other[:])
}

// Max returns the strongest bin value
func (v Vector) Max() float64 {
	return common.Max(v[:])
}

// Mean returns the average bin value
func (v Vector) Mean() float64 {
	return common.Mean(v[:])
}

// Dominant returns the index of the strongest bin
func (v Vector) Dominant() int {
	return common.ArgMax(v[:])
}

// IsZero reports whether every bin is zero
func (v Vector) IsZero() bool {
	return v == Vector{}
}

// Normalized returns a unit-norm copy, or the zero vector for silent input
func (v Vector) Normalized() Vector {
	common.L2Normalize(v[:], 0)
	return v
}

var pitchClassNames = [NumBins]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Labels returns the pitch-class names in bin order
func Labels() []string {
	return pitchClassNames[:]
}

// PitchClass maps a frequency to its nearest pitch class, or -1 for f <= 0
func PitchClass(frequency float64) int {
	if frequency <= 0 {
		return -1
	}
	midi := int(math.RoundToEven(FrequencyToMIDI(frequency)))
	return ((midi % NumBins) + NumBins) % NumBins
}

// FrequencyToMIDI converts Hz to a fractional MIDI note (A4 = 440 Hz = 69)
func FrequencyToMIDI(frequency float64) float64 {
	return 69.0 + 12.0*math.Log2(frequency/440.0)
}

// Config holds chroma extraction parameters
type Config struct {
	SampleRate  int     `json:"sample_rate" yaml:"sample_rate"`
	FFTSize     int     `json:"fft_size" yaml:"fft_size"`
	MinFreq     float64 `json:"min_freq" yaml:"min_freq"`
	PreEmphasis float64 `json:"pre_emphasis" yaml:"pre_emphasis"` // 0 disables
}

// DefaultConfig returns the 2048-point, 50 Hz floor extractor settings
func DefaultConfig(sampleRate int) Config {
	return Config{
		SampleRate:  sampleRate,
		FFTSize:     2048,
		MinFreq:     50.0,
		PreEmphasis: filters.DefaultPreEmphasis,
	}
}

// Extractor computes chroma vectors from audio frames. The bin-to-class
// mapping and the window are precomputed, so Compute allocates only the
// working frame.
type Extractor struct {
	config  Config
	fft     *spectral.FFT
	window  []float64
	mapping []int // FFT bin -> pitch class, -1 when excluded
	preEmph *filters.PreEmphasis
}

// NewExtractor creates a chroma extractor
func NewExtractor(cfg Config) *Extractor {
	if cfg.FFTSize <= 1 {
		cfg.FFTSize = 2048
	}

	e := &Extractor{
		config: cfg,
		fft:    spectral.NewFFT(),
		window: window.Hann(cfg.FFTSize),
	}
	if cfg.PreEmphasis > 0 {
		e.preEmph = filters.NewPreEmphasis(cfg.PreEmphasis)
	}
	e.mapping = e.calculateChromaMapping()
	return e
}

// Config returns the extractor settings
func (e *Extractor) Config() Config {
	return e.config
}

// calculateChromaMapping maps FFT bins to chroma bins
func (e *Extractor) calculateChromaMapping() []int {
	mapping := make([]int, e.config.FFTSize/2+1)
	for k := range mapping {
		frequency := spectral.BinFrequency(k, e.config.FFTSize, e.config.SampleRate)
		if frequency < e.config.MinFreq || frequency <= 0 {
			mapping[k] = -1
			continue
		}
		mapping[k] = PitchClass(frequency)
	}
	return mapping
}

// Compute folds the magnitude spectrum of one frame into pitch classes.
// Frames are pre-emphasised, then zero-padded or truncated to FFTSize.
func (e *Extractor) Compute(frame []float64) Vector {
	var out Vector
	if len(frame) == 0 {
		return out
	}

	input := frame
	if e.preEmph != nil && len(frame) > 1 {
		input = e.preEmph.Apply(frame)
	}

	windowed := make([]float64, e.config.FFTSize)
	n := min(len(input), e.config.FFTSize)
	for i := 0; i < n; i++ {
		windowed[i] = input[i] * e.window[i]
	}

	mags := e.fft.Magnitude(windowed, e.config.FFTSize)
	for k, m := range mags {
		if pc := e.mapping[k]; pc >= 0 && common.IsFinite(m) {
			out[pc] += m
		}
	}
	return out.Normalized()
}

// ComputeFromF0 synthesises a one-hot chroma vector for a detected pitch.
// It is zero when frequency <= 30 Hz or confidence <= 0.1.
func (e *Extractor) ComputeFromF0(frequency, confidence float64) Vector {
	return FromF0(frequency, confidence)
}

// FromF0 is the stateless form of Extractor.ComputeFromF0
func FromF0(frequency, confidence float64) Vector {
	var out Vector
	if !(frequency > 30) || !(confidence > 0.1) || math.IsInf(frequency, 0) {
		return out
	}
	out[PitchClass(frequency)] = confidence
	return out.Normalized()
}
