// Package config aggregates the settings of every stage of the practice
// pipeline and loads overrides from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
	"github.com/RyanBlaney/sonido-follow/algorithms/filters"
	"github.com/RyanBlaney/sonido-follow/algorithms/pitch"
	"github.com/RyanBlaney/sonido-follow/audio"
	"github.com/RyanBlaney/sonido-follow/follower"
	"github.com/RyanBlaney/sonido-follow/logging"
	"github.com/RyanBlaney/sonido-follow/practice"
)

// Pre-emphasis coefficients outside this range are clamped
const (
	MinPreEmphasis = 0.95
	MaxPreEmphasis = 0.97
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("config: invalid")

// AudioConfig describes the capture stream and the analysis cadence
type AudioConfig struct {
	audio.CaptureConfig `yaml:",inline"`

	AnalysisHz  float64 `json:"analysis_hz" yaml:"analysis_hz"`
	FrameMillis float64 `json:"frame_millis" yaml:"frame_millis"`
}

// FrameSamples returns the analysis frame length in samples
func (a AudioConfig) FrameSamples() int {
	return int(float64(a.SampleRate) * a.FrameMillis / 1000)
}

// TickInterval returns the analysis period
func (a AudioConfig) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / a.AnalysisHz)
}

// PracticeConfig holds scoring and judging
type PracticeConfig struct {
	Scoring practice.ScoringConfig `json:"scoring" yaml:"scoring"`
	Judge   practice.JudgeConfig   `json:"judge" yaml:"judge"`
}

// LoggingConfig selects the global log level
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Colors bool   `json:"colors" yaml:"colors"`
}

// Config is the complete application configuration
type Config struct {
	Audio      AudioConfig                `json:"audio" yaml:"audio"`
	Decoder    audio.DecoderConfig        `json:"decoder" yaml:"decoder"`
	Preprocess filters.PreprocessorConfig `json:"preprocess" yaml:"preprocess"`
	Pitch      pitch.Params               `json:"pitch" yaml:"pitch"`
	Alignment  follower.Config            `json:"alignment" yaml:"alignment"`
	Practice   PracticeConfig             `json:"practice" yaml:"practice"`
	Logging    LoggingConfig              `json:"logging" yaml:"logging"`
}

// Default returns the configuration for 44.1 kHz capture in 256-sample
// blocks analysed at 30 Hz over 50 ms frames
func Default() *Config {
	capture := audio.DefaultCaptureConfig()
	sr := capture.SampleRate

	preprocess := filters.DefaultPreprocessorConfig()
	preprocess.SampleRate = sr

	decoder := audio.DefaultDecoderConfig()
	decoder.TargetSampleRate = sr

	// analysis runs on the downsampled signal
	analysisRate := sr / max(1, sr/preprocess.TargetSampleRate)

	return &Config{
		Audio: AudioConfig{
			CaptureConfig: capture,
			AnalysisHz:    30,
			FrameMillis:   50,
		},
		Decoder:    decoder,
		Preprocess: preprocess,
		Pitch:      pitch.DefaultParams(analysisRate),
		Alignment:  follower.DefaultConfig(analysisRate),
		Practice: PracticeConfig{
			Scoring: practice.DefaultScoringConfig(),
			Judge:   practice.DefaultJudgeConfig(),
		},
		Logging: LoggingConfig{Level: "info", Colors: true},
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// AnalysisSampleRate is the rate the pitch and chroma stages see
func (c *Config) AnalysisSampleRate() int {
	factor := max(1, c.Preprocess.SampleRate/max(1, c.Preprocess.TargetSampleRate))
	return c.Preprocess.SampleRate / factor
}

// Validate rejects unusable values and propagates the capture rate to the
// stages that depend on it. Pre-emphasis coefficients outside
// [MinPreEmphasis, MaxPreEmphasis] are clamped with a warning.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Audio.SampleRate <= 0 {
		invalid("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	}
	if c.Audio.BlockSize <= 0 {
		invalid("audio.block_size must be positive, got %d", c.Audio.BlockSize)
	}
	if c.Audio.BufferSeconds <= 0 {
		invalid("audio.buffer_seconds must be positive, got %g", c.Audio.BufferSeconds)
	}
	if c.Audio.AnalysisHz <= 0 {
		invalid("audio.analysis_hz must be positive, got %g", c.Audio.AnalysisHz)
	}
	if c.Audio.FrameMillis <= 0 {
		invalid("audio.frame_millis must be positive, got %g", c.Audio.FrameMillis)
	}
	if c.Preprocess.TargetSampleRate <= 0 || c.Preprocess.TargetSampleRate > c.Audio.SampleRate {
		invalid("preprocess.target_sample_rate must be in (0, %d], got %d",
			c.Audio.SampleRate, c.Preprocess.TargetSampleRate)
	}
	if c.Alignment.Radius <= 0 {
		invalid("alignment.radius must be positive, got %d", c.Alignment.Radius)
	}
	if c.Alignment.ReferenceRate <= 0 {
		invalid("alignment.reference_rate must be positive, got %g", c.Alignment.ReferenceRate)
	}
	if c.Alignment.SafetyMargin < 0 {
		invalid("alignment.safety_margin must not be negative, got %d", c.Alignment.SafetyMargin)
	}
	if c.Pitch.ConfidenceFloor < 0 || c.Pitch.ConfidenceFloor > 1 {
		invalid("pitch.confidence_floor must be in [0, 1], got %g", c.Pitch.ConfidenceFloor)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.Preprocess.PreEmphasis = clampPreEmphasis("preprocess.pre_emphasis", c.Preprocess.PreEmphasis)
	if c.Alignment.Chroma.PreEmphasis != 0 {
		c.Alignment.Chroma.PreEmphasis = clampPreEmphasis("alignment.chroma.pre_emphasis", c.Alignment.Chroma.PreEmphasis)
	}

	c.Preprocess.SampleRate = c.Audio.SampleRate
	c.Decoder.TargetSampleRate = c.Audio.SampleRate
	rate := c.AnalysisSampleRate()
	c.Pitch.SampleRate = rate
	c.Alignment.Chroma.SampleRate = rate

	return nil
}

func clampPreEmphasis(key string, v float64) float64 {
	clamped := common.Clamp(v, MinPreEmphasis, MaxPreEmphasis)
	if clamped != v {
		logging.Warn("Pre-emphasis coefficient out of range, clamping", logging.Fields{
			"key":       key,
			"requested": v,
			"applied":   clamped,
		})
	}
	return clamped
}

// ApplyLogging configures the global logger from c.Logging
func (c *Config) ApplyLogging() error {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	logging.SetLevel(level)
	if c.Logging.Colors {
		logging.EnableColors()
	} else {
		logging.DisableColors()
	}
	return nil
}
