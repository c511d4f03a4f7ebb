package follower

import (
	"errors"
	"math"

	"github.com/RyanBlaney/sonido-follow/algorithms/chroma"
	"github.com/RyanBlaney/sonido-follow/algorithms/common"
)

var (
	// ErrNoValidEvents is returned when validation leaves no events
	ErrNoValidEvents = errors.New("follower: no valid events")
	// ErrNonPositiveDuration is returned when the score ends at or before 0 s
	ErrNonPositiveDuration = errors.New("follower: total duration is not positive")
)

const (
	// DefaultReferenceRate is the reference frame rate in Hz. The same rate
	// converts aligned frame indices back to seconds.
	DefaultReferenceRate = 10.0
	// DefaultSafetyMargin is the number of empty frames appended after the
	// last note
	DefaultSafetyMargin = 5
)

// Reference is the time-quantised chroma matrix a performance is aligned
// against. It is immutable once built.
type Reference struct {
	Frames [][]float64 // one L2-normalised (or zero) 12-bin row per frame
	Rate   float64     // frames per second
	Total  float64     // score length in seconds
}

// Len returns the number of frames
func (r Reference) Len() int {
	return len(r.Frames)
}

// FrameTime converts a frame index to seconds
func (r Reference) FrameTime(index int) float64 {
	if r.Rate <= 0 {
		return 0
	}
	return float64(index) * (1.0 / r.Rate)
}

// TotalDuration returns the latest note end among events
func TotalDuration(events []NoteEvent) float64 {
	total := 0.0
	for _, ev := range events {
		total = math.Max(total, ev.End())
	}
	return total
}

// BuildReference renders events into a chroma matrix of
// ceil(total*rate)+margin rows. Each note lights its pitch-class column with
// 1.0 from round(start*rate) through round(end*rate) inclusive; notes that
// start outside the matrix are skipped and ends are clipped. Rows are then
// L2 normalised.
func BuildReference(events []NoteEvent, rate float64, margin int) (Reference, error) {
	if len(events) == 0 {
		return Reference{}, ErrNoValidEvents
	}
	if rate <= 0 {
		rate = DefaultReferenceRate
	}
	if margin < 0 {
		margin = 0
	}

	total := TotalDuration(events)
	if !(total > 0) {
		return Reference{}, ErrNonPositiveDuration
	}

	n := int(math.Ceil(total*rate)) + margin
	frames := make([][]float64, n)
	for i := range frames {
		frames[i] = make([]float64, chroma.NumBins)
	}

	for _, ev := range events {
		startFrame := int(math.RoundToEven(ev.Start * rate))
		endFrame := int(math.RoundToEven(ev.End() * rate))
		if startFrame < 0 || startFrame >= n {
			continue
		}
		col := ev.PitchClass()
		for i := startFrame; i < min(endFrame+1, n); i++ {
			frames[i][col] = 1.0
		}
	}

	for _, row := range frames {
		common.L2Normalize(row, 0)
	}

	return Reference{Frames: frames, Rate: rate, Total: total}, nil
}
