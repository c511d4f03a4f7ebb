package audio

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-follow/algorithms/spectral"
	"github.com/RyanBlaney/sonido-follow/logging"
)

// Load decodes path to mono at sampleRate. WAV files are read natively,
// everything else goes through ffmpeg.
func Load(ctx context.Context, path string, sampleRate int, decoder *Decoder) (*Clip, error) {
	var (
		clip *Clip
		err  error
	)

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		clip, err = ReadWAVFile(path)
		if err != nil {
			logging.Warn("Native wav read failed, falling back to ffmpeg", logging.Fields{
				"path":  path,
				"error": err.Error(),
			})
		}
	}

	if clip == nil {
		if decoder == nil {
			cfg := DefaultDecoderConfig()
			cfg.TargetSampleRate = sampleRate
			decoder = NewDecoder(cfg)
		}
		clip, err = decoder.DecodeFile(ctx, path)
		if err != nil {
			return nil, err
		}
	}

	return Resample(clip, sampleRate), nil
}

// Resample returns clip at sampleRate, or clip itself when it already matches
func Resample(clip *Clip, sampleRate int) *Clip {
	if clip.SampleRate == sampleRate || sampleRate <= 0 {
		return clip
	}
	out := newClip(spectral.Resample(clip.Samples, clip.SampleRate, sampleRate), sampleRate, clip.Channels, clip.Source)
	return out
}
