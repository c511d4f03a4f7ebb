package pitch

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
	"github.com/RyanBlaney/sonido-follow/algorithms/spectral"
	"github.com/RyanBlaney/sonido-follow/logging"
)

const (
	crepeSampleRate = 16000
	crepeFrameSize  = 1024
)

// activationRunner executes a CREPE graph on a batch of 1024-sample frames
// and returns one row of NumSalienceBins activations per frame
type activationRunner interface {
	Run(frames [][]float32) ([][]float32, error)
	Close() error
}

// CREPE is the secondary neural pitch tier. The input block is resampled to
// 16 kHz and cut into centred 1024-sample frames with a single hop spanning
// the block, so the model sees the block's start and end. The most
// confident frame wins. No Viterbi smoothing is applied.
type CREPE struct {
	sampleRate int
	runner     activationRunner
	logger     logging.Logger
}

// NewCREPE loads the SavedModel directory at params.CREPEModel
func NewCREPE(params Params) (*CREPE, error) {
	runner, err := newCREPERunner(params.CREPEModel)
	if err != nil {
		return nil, err
	}
	return newCREPEWithRunner(params, runner), nil
}

func newCREPEWithRunner(params Params, runner activationRunner) *CREPE {
	return &CREPE{
		sampleRate: params.SampleRate,
		runner:     runner,
		logger: logging.WithFields(logging.Fields{
			"component": "crepe",
		}),
	}
}

// Name implements Estimator
func (c *CREPE) Name() string {
	return "crepe"
}

// Warmup runs one second of silence through the model
func (c *CREPE) Warmup() error {
	_, err := c.predictAt(make([]float64, crepeSampleRate), crepeSampleRate)
	if err == nil {
		c.logger.Debug("Model warmed up")
	}
	return err
}

// Predict implements Estimator
func (c *CREPE) Predict(frame []float64) (Result, error) {
	return c.predictAt(frame, c.sampleRate)
}

func (c *CREPE) predictAt(frame []float64, sampleRate int) (Result, error) {
	res := Result{Source: c.Name()}

	frames := crepeFrames(spectral.Resample(frame, sampleRate, crepeSampleRate))
	if len(frames) == 0 {
		return res, nil
	}

	activations, err := c.runner.Run(frames)
	if err != nil {
		return res, fmt.Errorf("%w: crepe: %v", ErrInference, err)
	}

	for _, row := range activations {
		freq, conf := decodeSalience(common.ToFloat64(row), &crepeCents, 0)
		if conf > res.Confidence {
			res.Frequency, res.Confidence = freq, conf
		}
	}
	return res, nil
}

// crepeFrames centre-pads the audio by half a frame on each side and slices
// 1024-sample frames at a hop equal to the audio length. Each frame is
// normalised to zero mean and unit variance as the model expects.
func crepeFrames(audio []float64) [][]float32 {
	if len(audio) == 0 {
		return nil
	}

	half := crepeFrameSize / 2
	padded := make([]float64, len(audio)+crepeFrameSize)
	copy(padded[half:], audio)

	hop := len(audio)
	var frames [][]float32
	for start := 0; start+crepeFrameSize <= len(padded); start += hop {
		frames = append(frames, normalizeFrame(padded[start:start+crepeFrameSize]))
	}
	return frames
}

func normalizeFrame(frame []float64) []float32 {
	mean := common.Mean(frame)
	variance := 0.0
	for _, v := range frame {
		variance += (v - mean) * (v - mean)
	}
	std := math.Sqrt(variance / float64(len(frame)))
	if std < 1e-8 {
		std = 1e-8
	}

	out := make([]float32, len(frame))
	for i, v := range frame {
		out[i] = float32((v - mean) / std)
	}
	return out
}

// Close releases the model session
func (c *CREPE) Close() error {
	if c.runner == nil {
		return nil
	}
	return c.runner.Close()
}
