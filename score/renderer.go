package score

import (
	"sync"

	"github.com/RyanBlaney/sonido-follow/logging"
)

// Color is a note highlight
type Color string

const (
	ColorHit    Color = "green"
	ColorMiss   Color = "red"
	ColorActive Color = "blue"
)

// Renderer displays the score. Implementations must be safe to call from
// the analysis goroutine.
type Renderer interface {
	SetCursor(seconds float64)
	MarkNote(id string, color Color)
}

// LogRenderer reports cursor moves and note marks through the logger. Cursor
// updates are logged at debug level only when the cursor moves by at least
// Step seconds.
type LogRenderer struct {
	Step float64

	mu     sync.Mutex
	last   float64
	marks  map[string]Color
	logger logging.Logger
}

func NewLogRenderer(step float64) *LogRenderer {
	return &LogRenderer{
		Step:  step,
		last:  -1,
		marks: make(map[string]Color),
		logger: logging.WithFields(logging.Fields{
			"component": "score_renderer",
		}),
	}
}

func (r *LogRenderer) SetCursor(seconds float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.last >= 0 && seconds-r.last < r.Step && r.last-seconds < r.Step {
		return
	}
	r.last = seconds
	r.logger.Debug("Cursor", logging.Fields{"seconds": seconds})
}

func (r *LogRenderer) MarkNote(id string, color Color) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.marks[id] = color
	r.logger.Info("Note marked", logging.Fields{"note_id": id, "color": string(color)})
}

// Marks returns a copy of the marks applied so far
func (r *LogRenderer) Marks() map[string]Color {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Color, len(r.marks))
	for k, v := range r.marks {
		out[k] = v
	}
	return out
}
