package audio

import (
	"errors"
	"math"
	"time"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
)

// ErrUnsupportedFormat is returned for inputs no reader can decode
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Clip is decoded mono audio
type Clip struct {
	Samples    []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"` // channels in the source before downmix
	Duration   time.Duration `json:"duration"`
	Source     string        `json:"source,omitempty"`
}

func newClip(samples []float64, sampleRate, channels int, source string) *Clip {
	var d time.Duration
	if sampleRate > 0 {
		d = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}
	return &Clip{Samples: samples, SampleRate: sampleRate, Channels: channels, Duration: d, Source: source}
}

// Source is a live sample stream the analysis loop can poll
type Source interface {
	// ReadLatest returns the newest n samples, zero-padded at the front
	ReadLatest(n int) []float32
	// Read returns the newest n samples, or nil until n have been buffered
	Read(n int) []float32
	// RMS returns the level of the newest block
	RMS() float64
	SampleRate() int
}

// LevelDB converts an RMS value to dBFS, floored at -100
func LevelDB(rms float64) float64 {
	if rms < 1e-10 {
		return -100.0
	}
	return 20 * math.Log10(rms)
}

// bufferedSource implements Source over a ring buffer
type bufferedSource struct {
	buffer     *common.RingBuffer
	sampleRate int
	blockSize  int
}

func newBufferedSource(sampleRate, blockSize int, seconds float64) bufferedSource {
	capacity := int(float64(sampleRate) * seconds)
	if capacity < blockSize {
		capacity = blockSize
	}
	return bufferedSource{
		buffer:     common.NewRingBuffer(capacity),
		sampleRate: sampleRate,
		blockSize:  blockSize,
	}
}

func (b *bufferedSource) ReadLatest(n int) []float32 {
	return b.buffer.ReadLatest(n)
}

func (b *bufferedSource) Read(n int) []float32 {
	return b.buffer.Read(n)
}

func (b *bufferedSource) RMS() float64 {
	return b.buffer.RMS(b.blockSize)
}

func (b *bufferedSource) SampleRate() int {
	return b.sampleRate
}
