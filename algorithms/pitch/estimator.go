package pitch

import (
	"errors"
)

var (
	// ErrModelUnavailable reports a tier whose model file or runtime is missing
	ErrModelUnavailable = errors.New("pitch: model unavailable")
	// ErrInference reports a tier whose model failed while running
	ErrInference = errors.New("pitch: inference failed")
)

// Result is one pitch estimate. A zero Frequency means unvoiced.
type Result struct {
	Frequency  float64 `json:"frequency"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
}

// Voiced reports whether a frequency was found
func (r Result) Voiced() bool {
	return r.Frequency > 0
}

// Estimator predicts the fundamental of one mono frame
type Estimator interface {
	Name() string
	Predict(frame []float64) (Result, error)
}

// Warmer is implemented by estimators that benefit from a dummy inference
// before real-time use
type Warmer interface {
	Warmup() error
}

// Closer releases model sessions
type Closer interface {
	Close() error
}

// Params configures the estimator chain
type Params struct {
	SampleRate      int     `json:"sample_rate" yaml:"sample_rate"`
	MinSamples      int     `json:"min_samples" yaml:"min_samples"`
	ConfidenceFloor float64 `json:"confidence_floor" yaml:"confidence_floor"`
	YinThreshold    float64 `json:"yin_threshold" yaml:"yin_threshold"`
	MinFreq         float64 `json:"min_freq" yaml:"min_freq"`
	YinFFTMaxFreq   float64 `json:"yinfft_max_freq" yaml:"yinfft_max_freq"`

	RMVPEModel  string `json:"rmvpe_model" yaml:"rmvpe_model"`
	CREPEModel  string `json:"crepe_model" yaml:"crepe_model"`
	ONNXLibrary string `json:"onnx_library" yaml:"onnx_library"`
}

// DefaultParams returns the chain defaults for a capture rate
func DefaultParams(sampleRate int) Params {
	return Params{
		SampleRate:      sampleRate,
		MinSamples:      1024,
		ConfidenceFloor: 0.1,
		YinThreshold:    0.15,
		MinFreq:         50.0,
		YinFFTMaxFreq:   1500.0,
		RMVPEModel:      "models/rmvpe.onnx",
		CREPEModel:      "models/crepe-tiny",
	}
}
