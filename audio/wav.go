package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mjibson/go-dsp/wav"
)

const wavChunkFrames = 4096

// ReadWAV decodes a PCM WAV stream and downmixes it to mono
func ReadWAV(r io.Reader) (*Clip, error) {
	w, err := wav.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	channels := int(w.Header.NumChannels)
	sampleRate := int(w.Header.SampleRate)
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("%w: invalid wav header", ErrUnsupportedFormat)
	}

	mono := make([]float64, 0, w.Samples/channels+8)

	// Samples is rounded down to a multiple of 8, so it is a safe lower
	// bound for chunked reads; binary.Read discards short reads
	for remaining := w.Samples - w.Samples%channels; remaining > 0; {
		n := min(wavChunkFrames*channels, remaining)
		data, done, err := readWAVSamples(w, n)
		if err != nil {
			return nil, err
		}
		if done {
			return newClip(mono, sampleRate, channels, ""), nil
		}
		mono = appendMono(mono, pcmToFloat(data), channels)
		remaining -= n
	}

	// the tail past the rounded count is read one frame at a time
	for {
		data, done, err := readWAVSamples(w, channels)
		if err != nil {
			return nil, err
		}
		if done {
			break
		}
		mono = appendMono(mono, pcmToFloat(data), channels)
	}

	return newClip(mono, sampleRate, channels, ""), nil
}

func readWAVSamples(w *wav.Wav, n int) (data any, done bool, err error) {
	data, err = w.ReadSamples(n)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read wav samples: %w", err)
	}
	return data, false, nil
}

// ReadWAVFile opens and decodes a WAV file
func ReadWAVFile(path string) (*Clip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	clip, err := ReadWAV(f)
	if err != nil {
		return nil, err
	}
	clip.Source = path
	return clip, nil
}

// pcmToFloat scales raw wav samples to [-1, 1]
func pcmToFloat(data any) []float32 {
	switch d := data.(type) {
	case []uint8:
		out := make([]float32, len(d))
		for i, v := range d {
			out[i] = (float32(v) - 128) / 128
		}
		return out
	case []int16:
		out := make([]float32, len(d))
		for i, v := range d {
			out[i] = float32(v) / 32768
		}
		return out
	case []float32:
		return d
	default:
		return nil
	}
}

// appendMono averages interleaved frames; a trailing partial frame is dropped
func appendMono(dst []float64, interleaved []float32, channels int) []float64 {
	frames := len(interleaved) / channels
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(interleaved[i*channels+c])
		}
		dst = append(dst, sum/float64(channels))
	}
	return dst
}
