package practice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionInactiveIgnoresRegistrations(t *testing.T) {
	s := NewSession(DefaultScoringConfig())
	assert.False(t, s.Active())

	_, ok := s.RegisterHit("n1")
	assert.False(t, ok)
	_, ok = s.RegisterMiss("n1")
	assert.False(t, ok)

	sum := s.Summary()
	assert.Zero(t, sum.Hits)
	assert.Zero(t, sum.Misses)
	assert.Zero(t, sum.Elapsed)
}

func TestSessionComboMultiplier(t *testing.T) {
	s := NewSession(DefaultScoringConfig())
	s.Start(20)
	require.True(t, s.Active())

	var last Outcome
	for i := 1; i <= 9; i++ {
		out, ok := s.RegisterHit("")
		require.True(t, ok)
		assert.Equal(t, 100, out.Points, "hit %d", i)
		last = out
	}
	assert.Equal(t, 900, last.Score)

	out, _ := s.RegisterHit("n10")
	assert.Equal(t, 10, out.Combo)
	assert.Equal(t, 200, out.Points)
	assert.Equal(t, 1100, out.Score)
	assert.Equal(t, "n10", out.NoteID)

	miss, ok := s.RegisterMiss("n11")
	require.True(t, ok)
	assert.Equal(t, OutcomeMiss, miss.Type)
	assert.Zero(t, miss.Combo)
	assert.Equal(t, 1100, miss.Score)

	out, _ = s.RegisterHit("n12")
	assert.Equal(t, 1, out.Combo)
	assert.Equal(t, 100, out.Points)

	sum := s.Summary()
	assert.Equal(t, 11, sum.Hits)
	assert.Equal(t, 1, sum.Misses)
	assert.Equal(t, 10, sum.MaxCombo)
	assert.Equal(t, 1200, sum.Score)
	assert.InDelta(t, 55.0, sum.Accuracy, 1e-9)
	assert.NotEmpty(t, sum.SessionID)
}

func TestSessionMultiplierCap(t *testing.T) {
	s := NewSession(DefaultScoringConfig())

	tests := []struct {
		combo int
		want  int
	}{
		{0, 1},
		{9, 1},
		{10, 2},
		{19, 2},
		{20, 4},
		{30, 8},
		{45, 8},
		{1000, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Multiplier(tt.combo), "combo %d", tt.combo)
	}
}

func TestSessionStartClearsAndStopFreezes(t *testing.T) {
	s := NewSession(ScoringConfig{})
	s.Start(2)
	s.RegisterHit("a")
	s.Stop()

	first := s.Summary()
	assert.Equal(t, 1, first.Hits)
	assert.InDelta(t, 50.0, first.Accuracy, 1e-9)

	_, ok := s.RegisterHit("b")
	assert.False(t, ok)

	s.Start(0)
	sum := s.Summary()
	assert.Zero(t, sum.Hits)
	assert.Zero(t, sum.Score)
	assert.Zero(t, sum.Accuracy)
	assert.NotEqual(t, first.SessionID, sum.SessionID)
}
