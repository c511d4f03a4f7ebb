package follower

import (
	"fmt"

	"github.com/RyanBlaney/sonido-follow/algorithms/alignment"
	"github.com/RyanBlaney/sonido-follow/algorithms/chroma"
	"github.com/RyanBlaney/sonido-follow/logging"
)

// Config holds score-following parameters
type Config struct {
	ReferenceRate float64       `json:"reference_rate" yaml:"reference_rate"`
	SafetyMargin  int           `json:"safety_margin" yaml:"safety_margin"`
	Radius        int           `json:"radius" yaml:"radius"`
	NoteTolerance float64       `json:"note_tolerance" yaml:"note_tolerance"`
	UseF0Chroma   bool          `json:"use_f0_chroma" yaml:"use_f0_chroma"`
	Chroma        chroma.Config `json:"chroma" yaml:"chroma"`
}

// DefaultConfig returns the 10 Hz, radius 50 follower for a capture rate
func DefaultConfig(sampleRate int) Config {
	return Config{
		ReferenceRate: DefaultReferenceRate,
		SafetyMargin:  DefaultSafetyMargin,
		Radius:        alignment.DefaultRadius,
		NoteTolerance: 0.1,
		Chroma:        chroma.DefaultConfig(sampleRate),
	}
}

// Follower aligns live audio frames to a loaded score.
//
// Until a score loads the follower is not ready and ProcessFrame reports
// time 0 with a zero chroma. Chroma is taken from the full spectrum on every
// frame, which keeps chords visible to the aligner; with UseF0Chroma set, a
// confident pitch estimate replaces it with a one-hot vector instead.
//
// A Follower is not safe for concurrent use. The caller serialises loads,
// resets and frames.
type Follower struct {
	config    Config
	extractor *chroma.Extractor
	oltw      *alignment.OLTW
	reference Reference
	events    []NoteEvent
	ready     bool
	logger    logging.Logger
}

// New creates a follower with no score loaded
func New(cfg Config) *Follower {
	if cfg.ReferenceRate <= 0 {
		cfg.ReferenceRate = DefaultReferenceRate
	}
	return &Follower{
		config:    cfg,
		extractor: chroma.NewExtractor(cfg.Chroma),
		logger: logging.WithFields(logging.Fields{
			"component": "score_follower",
		}),
	}
}

// LoadScoreFromMIDIEvents validates loosely typed (start, duration, pitch[,
// id]) rows and loads them. Invalid rows are dropped. If nothing valid
// remains, or the score has no positive length, the previous score stays
// loaded and the error is returned.
func (f *Follower) LoadScoreFromMIDIEvents(rows [][]any) error {
	logger := f.logger.WithFields(logging.Fields{
		"function": "LoadScoreFromMIDIEvents",
	})

	events, dropped := ValidateEvents(rows)
	if dropped > 0 {
		logger.Warn("Dropped invalid note events", logging.Fields{
			"dropped":  dropped,
			"received": len(rows),
		})
	}
	return f.load(events, logger)
}

// LoadNotes loads already typed events, dropping non-finite ones
func (f *Follower) LoadNotes(notes []NoteEvent) error {
	logger := f.logger.WithFields(logging.Fields{
		"function": "LoadNotes",
	})

	events, dropped := validNotes(notes)
	if dropped > 0 {
		logger.Warn("Dropped invalid note events", logging.Fields{
			"dropped":  dropped,
			"received": len(notes),
		})
	}
	return f.load(events, logger)
}

func (f *Follower) load(events []NoteEvent, logger logging.Logger) error {
	ref, err := BuildReference(events, f.config.ReferenceRate, f.config.SafetyMargin)
	if err != nil {
		logger.Error(err, "Failed to build reference, keeping previous score", logging.Fields{
			"events": len(events),
		})
		return fmt.Errorf("failed to load score: %w", err)
	}

	if ref.Total < 1.0 && len(events) > 10 {
		logger.Warn("Score duration is extremely short, check time units", logging.Fields{
			"duration_sec": ref.Total,
			"events":       len(events),
		})
	}

	f.events = events
	f.LoadReference(ref)

	logger.Info("Score loaded", logging.Fields{
		"events":       len(events),
		"frames":       ref.Len(),
		"duration_sec": ref.Total,
	})
	return nil
}

// LoadReference installs a prebuilt reference and resets alignment
func (f *Follower) LoadReference(ref Reference) {
	if ref.Rate <= 0 {
		ref.Rate = f.config.ReferenceRate
	}
	f.reference = ref
	f.oltw = alignment.NewOLTW(ref.Frames, f.config.Radius)
	f.ready = ref.Len() > 0
}

// IsReady reports whether a score is loaded
func (f *Follower) IsReady() bool {
	return f.ready
}

// Reset rewinds alignment to the start of the score
func (f *Follower) Reset() {
	if f.oltw != nil {
		f.oltw.Reset()
	}
}

// ProcessFrame aligns one audio frame and returns the estimated score time
// in seconds together with the chroma used. f0 and confidence are only
// consulted when UseF0Chroma is set; pass zeros when unknown.
func (f *Follower) ProcessFrame(frame []float64, f0, confidence float64) (float64, chroma.Vector) {
	if !f.ready {
		return 0, chroma.Vector{}
	}

	live := f.chromaFor(frame, f0, confidence)
	index := f.oltw.Step(live[:])
	return f.reference.FrameTime(index), live
}

func (f *Follower) chromaFor(frame []float64, f0, confidence float64) chroma.Vector {
	if f.config.UseF0Chroma {
		if v := f.extractor.ComputeFromF0(f0, confidence); !v.IsZero() {
			return v
		}
	}
	return f.extractor.Compute(frame)
}

// ActiveNotes returns every event whose span, widened by NoteTolerance on
// both sides, contains t
func (f *Follower) ActiveNotes(t float64) []NoteEvent {
	var active []NoteEvent
	for _, ev := range f.events {
		if ev.Contains(t, f.config.NoteTolerance) {
			active = append(active, ev)
		}
	}
	return active
}

// CheckChromaHit reports whether targetPitch dominates v; see chroma.CheckHit
func (f *Follower) CheckChromaHit(v chroma.Vector, targetPitch int, threshold float64) bool {
	return chroma.CheckHit(v, targetPitch, threshold)
}

// Position returns the current reference frame index
func (f *Follower) Position() int {
	if f.oltw == nil {
		return 0
	}
	return f.oltw.Position()
}

// Events returns the loaded note events
func (f *Follower) Events() []NoteEvent {
	return f.events
}

// Reference returns the loaded reference matrix
func (f *Follower) Reference() Reference {
	return f.reference
}

// Extractor exposes the chroma front end
func (f *Follower) Extractor() *chroma.Extractor {
	return f.extractor
}
