package filters

import (
	"math"
	"sync/atomic"

	"github.com/mjibson/go-dsp/window"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
	"github.com/RyanBlaney/sonido-follow/algorithms/spectral"
	"github.com/RyanBlaney/sonido-follow/logging"
)

// PreprocessorConfig holds the front-end parameters
type PreprocessorConfig struct {
	SampleRate         int     `json:"sample_rate" yaml:"sample_rate"`
	TargetSampleRate   int     `json:"target_sample_rate" yaml:"target_sample_rate"`
	PreEmphasis        float64 `json:"pre_emphasis" yaml:"pre_emphasis"`
	SilenceThresholdDB float64 `json:"silence_threshold_db" yaml:"silence_threshold_db"`
}

// DefaultPreprocessorConfig returns the 44.1 kHz to 22.05 kHz front end
func DefaultPreprocessorConfig() PreprocessorConfig {
	return PreprocessorConfig{
		SampleRate:         44100,
		TargetSampleRate:   22050,
		PreEmphasis:        DefaultPreEmphasis,
		SilenceThresholdDB: -60.0,
	}
}

// ProcessOptions toggles individual preprocessing stages
type ProcessOptions struct {
	Window      bool
	PreEmphasis bool
	Denoise     bool
}

// DefaultProcessOptions enables every stage
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{Window: true, PreEmphasis: true, Denoise: true}
}

// Preprocessor conditions raw capture blocks for analysis: DC removal,
// optional noise gating, pre-emphasis, integer decimation and a Hann window,
// in that order.
type Preprocessor struct {
	config      PreprocessorConfig
	factor      int
	preEmphasis *PreEmphasis
	gate        atomic.Pointer[SpectralGate]
	logger      logging.Logger
}

// NewPreprocessor creates a preprocessor. The decimation factor is the
// integer ratio SampleRate/TargetSampleRate, at least 1.
func NewPreprocessor(cfg PreprocessorConfig) *Preprocessor {
	factor := 1
	if cfg.TargetSampleRate > 0 && cfg.SampleRate > cfg.TargetSampleRate {
		factor = cfg.SampleRate / cfg.TargetSampleRate
	}

	return &Preprocessor{
		config:      cfg,
		factor:      factor,
		preEmphasis: NewPreEmphasis(cfg.PreEmphasis),
		logger: logging.WithFields(logging.Fields{
			"component": "preprocessor",
		}),
	}
}

// Factor returns the decimation factor
func (p *Preprocessor) Factor() int {
	return p.factor
}

// OutputSampleRate returns the rate of processed blocks
func (p *Preprocessor) OutputSampleRate() int {
	return p.config.SampleRate / p.factor
}

// Process runs every stage. Empty input is returned unchanged.
func (p *Preprocessor) Process(audio []float64) []float64 {
	return p.ProcessWith(audio, DefaultProcessOptions())
}

// ProcessWith runs the stages selected by opts
func (p *Preprocessor) ProcessWith(audio []float64, opts ProcessOptions) []float64 {
	if len(audio) == 0 {
		return audio
	}

	processed := RemoveDC(audio)

	if opts.Denoise {
		if gate := p.gate.Load(); gate != nil {
			processed = gate.Apply(processed, p.config.SampleRate)
		}
	}

	if opts.PreEmphasis {
		processed = p.preEmphasis.Apply(processed)
	}

	processed = spectral.Decimate(processed, p.factor)

	if opts.Window {
		applyHann(processed)
	}

	return processed
}

// SetNoiseProfile learns the noise floor from a noise-only block. The block
// is DC-removed and decimated like regular input before it is stored.
// An empty block is ignored.
func (p *Preprocessor) SetNoiseProfile(noise []float64) {
	if len(noise) == 0 {
		return
	}

	profile := spectral.Decimate(RemoveDC(noise), p.factor)
	p.gate.Store(NewSpectralGate(profile, p.OutputSampleRate()))

	p.logger.Info("Updated noise profile", logging.Fields{
		"length": len(profile),
	})
}

// ClearNoiseProfile disables denoising
func (p *Preprocessor) ClearNoiseProfile() {
	p.gate.Store(nil)
}

// HasNoiseProfile reports whether a profile is set
func (p *Preprocessor) HasNoiseProfile() bool {
	return p.gate.Load() != nil
}

// EnergyDB returns 20*log10(RMS), floored at -100 dB
func (p *Preprocessor) EnergyDB(audio []float64) float64 {
	return EnergyDB(audio)
}

// IsSilence reports whether the block is below the silence threshold
func (p *Preprocessor) IsSilence(audio []float64) bool {
	return EnergyDB(audio) < p.config.SilenceThresholdDB
}

// EnergyDB returns 20*log10(RMS), or -100 when RMS < 1e-10
func EnergyDB(audio []float64) float64 {
	rms := common.RMS(audio)
	if rms < 1e-10 {
		return -100.0
	}
	return 20 * math.Log10(rms)
}

// applyHann multiplies in place by a symmetric Hann window
func applyHann(frame []float64) {
	if len(frame) == 1 {
		return
	}
	window.Apply(frame, window.Hann)
}
