package pitch

import (
	"fmt"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
	"github.com/RyanBlaney/sonido-follow/algorithms/spectral"
	"github.com/RyanBlaney/sonido-follow/logging"
)

const (
	rmvpeSampleRate = 16000
	rmvpeFFTSize    = 2048
	rmvpeHop        = 320
	rmvpeMels       = 128
	rmvpeFMin       = 30.0
	rmvpeFMax       = 8000.0
	rmvpeTimeAlign  = 32 // the U-Net halves the time axis five times
)

// salienceRunner executes a salience model on a [1, mels, frames] input and
// returns frames rows of NumSalienceBins probabilities
type salienceRunner interface {
	Run(input []float32, mels, frames int) ([][]float32, error)
	Close() error
}

// RMVPE is the primary neural pitch tier. Audio is resampled to 16 kHz and
// turned into a normalised 128-band log-mel spectrogram whose time axis is
// padded to a multiple of 32. The temporally central output frame is
// decoded.
type RMVPE struct {
	sampleRate int
	floor      float64
	mel        *spectral.MelScale
	runner     salienceRunner
	logger     logging.Logger
}

// NewRMVPE loads the model at params.RMVPEModel. It returns
// an error wrapping ErrModelUnavailable when the model or runtime is missing.
func NewRMVPE(params Params) (*RMVPE, error) {
	runner, err := newRMVPERunner(params.RMVPEModel, params.ONNXLibrary)
	if err != nil {
		return nil, err
	}
	return newRMVPEWithRunner(params, runner), nil
}

func newRMVPEWithRunner(params Params, runner salienceRunner) *RMVPE {
	return &RMVPE{
		sampleRate: params.SampleRate,
		floor:      params.ConfidenceFloor,
		mel:        spectral.NewMelScale(rmvpeSampleRate, rmvpeFFTSize, rmvpeMels, rmvpeFMin, rmvpeFMax),
		runner:     runner,
		logger: logging.WithFields(logging.Fields{
			"component": "rmvpe",
		}),
	}
}

// Name implements Estimator
func (r *RMVPE) Name() string {
	return "rmvpe"
}

// Warmup runs one second of silence through the model
func (r *RMVPE) Warmup() error {
	if _, _, err := r.predictAt(make([]float64, rmvpeSampleRate), rmvpeSampleRate); err != nil {
		return err
	}
	r.logger.Debug("Model warmed up")
	return nil
}

// Predict implements Estimator
func (r *RMVPE) Predict(frame []float64) (Result, error) {
	freq, conf, err := r.predictAt(frame, r.sampleRate)
	return Result{Frequency: freq, Confidence: conf, Source: r.Name()}, err
}

func (r *RMVPE) predictAt(frame []float64, sampleRate int) (float64, float64, error) {
	input, mels, frames, valid := r.Features(frame, sampleRate)
	if valid == 0 {
		return 0, 0, nil
	}

	probs, err := r.runner.Run(input, mels, frames)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: rmvpe: %v", ErrInference, err)
	}
	if len(probs) > valid {
		probs = probs[:valid]
	}
	if len(probs) == 0 {
		return 0, 0, nil
	}

	middle := probs[len(probs)/2]
	freq, conf := decodeSalience(common.ToFloat64(middle), &rmvpeCents, r.floor)
	return freq, conf, nil
}

// Features builds the model input for a frame sampled at sampleRate. It
// returns the flattened [1, mels, frames] tensor, its dimensions and the
// number of frames before time padding.
func (r *RMVPE) Features(frame []float64, sampleRate int) (input []float32, mels, frames, valid int) {
	audio := spectral.Resample(frame, sampleRate, rmvpeSampleRate)
	if len(audio) == 0 {
		return nil, rmvpeMels, 0, 0
	}
	if len(audio) < rmvpeFFTSize {
		padded := make([]float64, rmvpeFFTSize)
		copy(padded, audio)
		audio = padded
	}

	spec := spectral.LogNormalized(r.mel.Spectrogram(audio, rmvpeHop))
	if len(spec) == 0 || len(spec[0]) == 0 {
		return nil, rmvpeMels, 0, 0
	}

	valid = len(spec[0])
	frames = valid + (rmvpeTimeAlign-valid%rmvpeTimeAlign)%rmvpeTimeAlign

	input = make([]float32, rmvpeMels*frames)
	for m, row := range spec {
		for t, v := range row {
			input[m*frames+t] = float32(v)
		}
	}
	return input, rmvpeMels, frames, valid
}

// Close releases the model session
func (r *RMVPE) Close() error {
	if r.runner == nil {
		return nil
	}
	return r.runner.Close()
}
