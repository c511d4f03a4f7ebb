package practice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-follow/algorithms/chroma"
	"github.com/RyanBlaney/sonido-follow/algorithms/pitch"
	"github.com/RyanBlaney/sonido-follow/follower"
)

func testNotes() []follower.NoteEvent {
	return []follower.NoteEvent{
		{Start: 0, Duration: 1, Pitch: 69, ID: "n1", Index: 0},
		{Start: 1, Duration: 1, Pitch: 64, ID: "n2", Index: 1},
	}
}

func newTestJudge() (*Judge, *Session) {
	s := NewSession(DefaultScoringConfig())
	s.Start(2)
	return NewJudge(DefaultJudgeConfig(), s), s
}

func TestJudgeIsHit(t *testing.T) {
	j, _ := newTestJudge()
	a4 := testNotes()[0]

	tests := []struct {
		name  string
		pitch pitch.Result
		vec   chroma.Vector
		hit   bool
	}{
		{"pitch in tune", pitch.Result{Frequency: 440, Confidence: 0.9}, chroma.Vector{}, true},
		{"pitch slightly sharp", pitch.Result{Frequency: 450, Confidence: 0.9}, chroma.Vector{}, true},
		{"pitch a semitone off", pitch.Result{Frequency: pitch.MIDIToFrequency(70), Confidence: 0.9}, chroma.Vector{}, false},
		{"unconfident pitch ignored", pitch.Result{Frequency: 440, Confidence: 0.01}, chroma.Vector{}, false},
		{"chroma fallback", pitch.Result{}, chroma.FromF0(440, 1), true},
		{"wrong chroma", pitch.Result{}, chroma.FromF0(330, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.hit, j.IsHit(a4, tt.pitch, tt.vec))
		})
	}
}

func TestJudgeEvaluateOnce(t *testing.T) {
	j, s := newTestJudge()
	notes := testNotes()

	obs := Observation{
		Time:   0.5,
		Active: notes[:1],
		Pitch:  pitch.Result{Frequency: 440, Confidence: 0.9},
	}

	outcomes := j.Evaluate(obs)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeHit, outcomes[0].Type)
	assert.Equal(t, "n1", outcomes[0].NoteID)

	assert.Empty(t, j.Evaluate(obs))

	verdict, ok := j.Judged(0)
	assert.True(t, ok)
	assert.Equal(t, OutcomeHit, verdict)
	assert.Equal(t, 1, s.Summary().Hits)
}

func TestJudgeSweep(t *testing.T) {
	j, s := newTestJudge()
	notes := testNotes()

	j.Evaluate(Observation{Active: notes[:1], Pitch: pitch.Result{Frequency: 440, Confidence: 0.9}})

	assert.Empty(t, j.Sweep(2.05, notes))

	outcomes := j.Sweep(2.2, notes)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeMiss, outcomes[0].Type)
	assert.Equal(t, "n2", outcomes[0].NoteID)

	assert.Empty(t, j.Sweep(5, notes))

	sum := s.Summary()
	assert.Equal(t, 1, sum.Hits)
	assert.Equal(t, 1, sum.Misses)

	j.Reset()
	_, ok := j.Judged(1)
	assert.False(t, ok)
}

func TestJudgeDedupesByIndex(t *testing.T) {
	j, s := newTestJudge()
	notes := []follower.NoteEvent{
		{Start: 0, Duration: 1, Pitch: 69, Index: 0},
		{Start: 0, Duration: 1, Pitch: 69, Index: 1},
	}

	outcomes := j.Evaluate(Observation{Active: notes, Pitch: pitch.Result{Frequency: 440, Confidence: 0.9}})
	assert.Len(t, outcomes, 2)
	assert.Equal(t, 2, s.Summary().Hits)
}
