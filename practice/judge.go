package practice

import (
	"github.com/RyanBlaney/sonido-follow/algorithms/chroma"
	"github.com/RyanBlaney/sonido-follow/algorithms/pitch"
	"github.com/RyanBlaney/sonido-follow/follower"
)

// JudgeConfig holds hit criteria
type JudgeConfig struct {
	PitchToleranceSemitones float64 `json:"pitch_tolerance_semitones" yaml:"pitch_tolerance_semitones"`
	ChromaThreshold         float64 `json:"chroma_threshold" yaml:"chroma_threshold"`
	NoteTolerance           float64 `json:"note_tolerance" yaml:"note_tolerance"`
	MinPitchConfidence      float64 `json:"min_pitch_confidence" yaml:"min_pitch_confidence"`
}

// DefaultJudgeConfig accepts a pitch within one semitone or a chroma hit
// above 0.6
func DefaultJudgeConfig() JudgeConfig {
	return JudgeConfig{
		PitchToleranceSemitones: 1.0,
		ChromaThreshold:         chroma.DefaultHitLevel,
		NoteTolerance:           0.1,
		MinPitchConfidence:      0.1,
	}
}

// Observation is what the analysis loop knows at one tick
type Observation struct {
	Time   float64
	Active []follower.NoteEvent
	Pitch  pitch.Result
	Chroma chroma.Vector
}

// Judge turns observations into hits and misses. Each note is judged at
// most once: it is a hit the first tick the detected pitch is within
// tolerance of it, or its pitch class dominates the chroma; it is a miss
// once the aligned time passes its end plus NoteTolerance unjudged.
type Judge struct {
	config  JudgeConfig
	session *Session
	judged  map[int]OutcomeType
}

// NewJudge creates a judge reporting into session
func NewJudge(cfg JudgeConfig, session *Session) *Judge {
	return &Judge{config: cfg, session: session, judged: make(map[int]OutcomeType)}
}

// Reset forgets which notes have been judged
func (j *Judge) Reset() {
	j.judged = make(map[int]OutcomeType)
}

// Judged returns the verdict for a note index, if any
func (j *Judge) Judged(index int) (OutcomeType, bool) {
	t, ok := j.judged[index]
	return t, ok
}

// IsHit applies the hit criteria to one note. A pitch below
// MinPitchConfidence is ignored and only the chroma test applies.
func (j *Judge) IsHit(note follower.NoteEvent, p pitch.Result, v chroma.Vector) bool {
	if p.Voiced() && p.Confidence >= j.config.MinPitchConfidence {
		target := pitch.MIDIToFrequency(note.Pitch)
		if pitch.SemitoneError(p.Frequency, target) < j.config.PitchToleranceSemitones {
			return true
		}
	}
	return chroma.CheckHit(v, note.Pitch, j.config.ChromaThreshold)
}

// Evaluate judges the active notes of one observation and returns the
// outcomes registered with the session
func (j *Judge) Evaluate(obs Observation) []Outcome {
	var outcomes []Outcome
	for _, note := range obs.Active {
		if _, done := j.judged[note.Index]; done {
			continue
		}
		if !j.IsHit(note, obs.Pitch, obs.Chroma) {
			continue
		}
		j.judged[note.Index] = OutcomeHit
		if out, ok := j.session.RegisterHit(note.ID); ok {
			outcomes = append(outcomes, out)
		}
	}
	return outcomes
}

// Sweep registers a miss for every unjudged note that ended more than
// NoteTolerance before t
func (j *Judge) Sweep(t float64, events []follower.NoteEvent) []Outcome {
	var outcomes []Outcome
	for _, note := range events {
		if _, done := j.judged[note.Index]; done {
			continue
		}
		if note.End()+j.config.NoteTolerance >= t {
			continue
		}
		j.judged[note.Index] = OutcomeMiss
		if out, ok := j.session.RegisterMiss(note.ID); ok {
			outcomes = append(outcomes, out)
		}
	}
	return outcomes
}
