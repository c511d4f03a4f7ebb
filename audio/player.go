package audio

import (
	"context"
	"time"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
	"github.com/RyanBlaney/sonido-follow/logging"
)

// Player streams a decoded clip into a ring buffer block by block at the
// clip's real-time rate, standing in for a live input
type Player struct {
	bufferedSource

	clip   *Clip
	cursor int
	logger logging.Logger
}

// NewPlayer creates a player for clip with the given block size
func NewPlayer(clip *Clip, blockSize int, bufferSeconds float64) *Player {
	return &Player{
		bufferedSource: newBufferedSource(clip.SampleRate, blockSize, bufferSeconds),
		clip:           clip,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_player",
			"source":    clip.Source,
		}),
	}
}

// Step writes the next block and reports whether any samples remained.
// The final block is zero-padded to the block size.
func (p *Player) Step() bool {
	if p.cursor >= len(p.clip.Samples) {
		return false
	}

	end := min(p.cursor+p.blockSize, len(p.clip.Samples))
	block := common.ToFloat32(p.clip.Samples[p.cursor:end])
	if len(block) < p.blockSize {
		block = append(block, make([]float32, p.blockSize-len(block))...)
	}
	p.buffer.Write(block)
	p.cursor = end
	return true
}

// Position returns the playback position in seconds
func (p *Player) Position() float64 {
	if p.clip.SampleRate <= 0 {
		return 0
	}
	return float64(p.cursor) / float64(p.clip.SampleRate)
}

// Run plays the clip in real time until it ends or ctx is cancelled
func (p *Player) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) * float64(p.blockSize) / float64(p.clip.SampleRate))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.logger.Debug("Starting playback", logging.Fields{
		"duration_sec": p.clip.Duration.Seconds(),
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !p.Step() {
				p.logger.Debug("Playback finished")
				return nil
			}
		}
	}
}
