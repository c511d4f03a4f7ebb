package practice

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RyanBlaney/sonido-follow/logging"
)

// ScoringConfig holds the scoring constants
type ScoringConfig struct {
	PointsPerHit  int `json:"points_per_hit" yaml:"points_per_hit"`
	ComboStep     int `json:"combo_step" yaml:"combo_step"`
	MaxMultiplier int `json:"max_multiplier" yaml:"max_multiplier"`
}

// DefaultScoringConfig awards 100 points per hit, doubling every 10 combo
// up to 8x
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{PointsPerHit: 100, ComboStep: 10, MaxMultiplier: 8}
}

// OutcomeType distinguishes hits from misses
type OutcomeType string

const (
	OutcomeHit  OutcomeType = "hit"
	OutcomeMiss OutcomeType = "miss"
)

// Outcome is returned for every registered hit or miss
type Outcome struct {
	Type   OutcomeType `json:"type"`
	NoteID string      `json:"note_id,omitempty"`
	Combo  int         `json:"combo"`
	Score  int         `json:"score"`
	Points int         `json:"points"`
}

// Summary is the end-of-session report
type Summary struct {
	SessionID string        `json:"session_id"`
	Score     int           `json:"score"`
	Hits      int           `json:"hits"`
	Misses    int           `json:"misses"`
	MaxCombo  int           `json:"max_combo"`
	Total     int           `json:"total_notes"`
	Accuracy  float64       `json:"accuracy"` // percent of total notes hit
	Elapsed   time.Duration `json:"elapsed"`
}

// Session counts hits, misses and combo for one run through a score.
// Registrations while the session is not active are ignored.
type Session struct {
	mu sync.Mutex

	config  ScoringConfig
	id      string
	active  bool
	started time.Time
	stopped time.Time

	hits, misses    int
	combo, maxCombo int
	score           int
	total           int

	logger logging.Logger
}

// NewSession creates an inactive session
func NewSession(cfg ScoringConfig) *Session {
	if cfg.PointsPerHit <= 0 {
		cfg.PointsPerHit = 100
	}
	if cfg.ComboStep <= 0 {
		cfg.ComboStep = 10
	}
	if cfg.MaxMultiplier <= 0 {
		cfg.MaxMultiplier = 8
	}
	return &Session{
		config: cfg,
		logger: logging.WithFields(logging.Fields{
			"component": "practice_session",
		}),
	}
}

// Start clears all counters and activates the session
func (s *Session) Start(totalNotes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = uuid.NewString()
	s.active = true
	s.started = time.Now()
	s.stopped = time.Time{}
	s.hits, s.misses = 0, 0
	s.combo, s.maxCombo = 0, 0
	s.score = 0
	s.total = totalNotes

	s.logger.Info("Practice session started", logging.Fields{
		"session_id":  s.id,
		"total_notes": totalNotes,
	})
}

// Stop deactivates the session
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.active = false
	s.stopped = time.Now()

	s.logger.Info("Practice session stopped", logging.Fields{
		"session_id": s.id,
		"score":      s.score,
		"hits":       s.hits,
		"total":      s.total,
	})
}

// Active reports whether the session is running
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Multiplier returns min(MaxMultiplier, 2^(combo/ComboStep))
func (s *Session) Multiplier(combo int) int {
	m := 1
	for steps := combo / s.config.ComboStep; steps > 0 && m < s.config.MaxMultiplier; steps-- {
		m *= 2
	}
	return min(m, s.config.MaxMultiplier)
}

// RegisterHit scores a hit. It returns false when the session is inactive.
func (s *Session) RegisterHit(noteID string) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return Outcome{}, false
	}

	s.hits++
	s.combo++
	s.maxCombo = max(s.maxCombo, s.combo)

	points := s.config.PointsPerHit * s.Multiplier(s.combo)
	s.score += points

	return Outcome{Type: OutcomeHit, NoteID: noteID, Combo: s.combo, Score: s.score, Points: points}, true
}

// RegisterMiss breaks the combo. It returns false when the session is inactive.
func (s *Session) RegisterMiss(noteID string) (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return Outcome{}, false
	}

	s.misses++
	s.combo = 0
	return Outcome{Type: OutcomeMiss, NoteID: noteID, Combo: 0, Score: s.score}, true
}

// Summary reports the session statistics so far
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	accuracy := 0.0
	if s.total > 0 {
		accuracy = float64(s.hits) / float64(s.total) * 100
	}

	var elapsed time.Duration
	switch {
	case s.started.IsZero():
	case s.stopped.IsZero():
		elapsed = time.Since(s.started)
	default:
		elapsed = s.stopped.Sub(s.started)
	}

	return Summary{
		SessionID: s.id,
		Score:     s.score,
		Hits:      s.hits,
		Misses:    s.misses,
		MaxCombo:  s.maxCombo,
		Total:     s.total,
		Accuracy:  accuracy,
		Elapsed:   elapsed,
	}
}
