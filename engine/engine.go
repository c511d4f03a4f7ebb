// Package engine runs the practice analysis loop: it polls the audio
// source, estimates pitch, advances the score follower and judges notes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-follow/algorithms/chroma"
	"github.com/RyanBlaney/sonido-follow/algorithms/common"
	"github.com/RyanBlaney/sonido-follow/algorithms/filters"
	"github.com/RyanBlaney/sonido-follow/algorithms/pitch"
	"github.com/RyanBlaney/sonido-follow/audio"
	"github.com/RyanBlaney/sonido-follow/config"
	"github.com/RyanBlaney/sonido-follow/follower"
	"github.com/RyanBlaney/sonido-follow/logging"
	"github.com/RyanBlaney/sonido-follow/practice"
	"github.com/RyanBlaney/sonido-follow/score"
)

// ErrNoScore is returned by Run when no score has been loaded
var ErrNoScore = errors.New("engine: no score loaded")

// ErrShortNoise is returned when less than a second of audio is buffered
// for the noise profile
var ErrShortNoise = errors.New("engine: not enough audio for a noise profile")

// PitchEstimator is the part of pitch.Chain the engine needs
type PitchEstimator interface {
	Predict(frame []float64) pitch.Result
}

// TickResult records one analysis step
type TickResult struct {
	Tick      int                `json:"tick"`
	Time      float64            `json:"time"`       // clock seconds
	ScoreTime float64            `json:"score_time"` // aligned position in the score
	Position  int                `json:"position"`   // reference frame index
	EnergyDB  float64            `json:"energy_db"`
	Silent    bool               `json:"silent"`
	Pitch     pitch.Result       `json:"pitch"`
	Note      string             `json:"note,omitempty"`
	Chroma    chroma.Vector      `json:"chroma"`
	Active    []string           `json:"active,omitempty"`
	Outcomes  []practice.Outcome `json:"outcomes,omitempty"`
}

// Option customises an Engine
type Option func(*Engine)

// WithEstimator replaces the default pitch chain
func WithEstimator(est PitchEstimator) Option {
	return func(e *Engine) { e.estimator = est }
}

// WithRenderer sets the score display
func WithRenderer(r score.Renderer) Option {
	return func(e *Engine) { e.renderer = r }
}

// DefaultHistoryLimit keeps five minutes of ticks at 30 Hz
const DefaultHistoryLimit = 9000

// WithHistoryLimit bounds History to the latest limit ticks. A limit of
// zero or less keeps every tick, which suits finite offline runs.
func WithHistoryLimit(limit int) Option {
	return func(e *Engine) { e.historyLimit = limit }
}

// WithClock sets the time source reported in TickResult.Time. The default
// counts seconds since the session started.
func WithClock(clock func() float64) Option {
	return func(e *Engine) { e.clock = clock }
}

// Engine wires capture, preprocessing, pitch estimation, score following
// and judging. All methods are safe for concurrent use; ticks are
// serialised.
type Engine struct {
	mu sync.Mutex

	config    *config.Config
	source    audio.Source
	pre       *filters.Preprocessor
	estimator PitchEstimator
	follower  *follower.Follower
	session   *practice.Session
	judge     *practice.Judge
	renderer  score.Renderer
	clock     func() float64

	frameSamples int
	ticks        int
	lastTime     float64
	started      time.Time
	history      []TickResult
	historyLimit int

	logger logging.Logger
}

// New creates an engine reading from src. Without WithEstimator the full
// pitch fallback chain is built from cfg.Pitch.
func New(cfg *config.Config, src audio.Source, opts ...Option) *Engine {
	session := practice.NewSession(cfg.Practice.Scoring)

	e := &Engine{
		config:       cfg,
		source:       src,
		pre:          filters.NewPreprocessor(cfg.Preprocess),
		follower:     follower.New(cfg.Alignment),
		session:      session,
		judge:        practice.NewJudge(cfg.Practice.Judge, session),
		frameSamples: cfg.Audio.FrameSamples(),
		historyLimit: DefaultHistoryLimit,
		logger: logging.WithFields(logging.Fields{
			"component": "engine",
		}),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.estimator == nil {
		e.estimator = pitch.NewDefaultChain(cfg.Pitch)
	}
	if e.clock == nil {
		e.clock = func() float64 {
			if e.started.IsZero() {
				return 0
			}
			return time.Since(e.started).Seconds()
		}
	}

	return e
}

// LoadScore loads a parsed score into the follower and starts a fresh
// session over it. On failure the previous score stays loaded.
func (e *Engine) LoadScore(s *score.Score) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.follower.LoadNotes(s.Notes); err != nil {
		return fmt.Errorf("failed to load score %s: %w", s.Source, err)
	}
	e.resetLocked()
	return nil
}

// Reset rewinds the follower, clears judgements and restarts the session
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *Engine) resetLocked() {
	e.follower.Reset()
	e.judge.Reset()
	e.session.Start(len(e.follower.Events()))
	e.ticks = 0
	e.lastTime = 0
	e.started = time.Now()
	e.history = e.history[:0]
}

// SetNoiseProfile captures the last second of audio as background noise
func (e *Engine) SetNoiseProfile() error {
	noise := e.source.Read(e.source.SampleRate())
	if noise == nil {
		return ErrShortNoise
	}
	e.pre.SetNoiseProfile(common.ToFloat64(noise))
	e.logger.Info("Noise profile captured", logging.Fields{
		"samples":  len(noise),
		"level_db": audio.LevelDB(common.RMS(common.ToFloat64(noise))),
	})
	return nil
}

// Tick analyses the newest frame of the source
func (e *Engine) Tick() TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	raw := common.ToFloat64(e.source.ReadLatest(e.frameSamples))

	result := TickResult{
		Tick:      e.ticks,
		Time:      e.clock(),
		ScoreTime: e.lastTime,
		Position:  e.follower.Position(),
		EnergyDB:  e.pre.EnergyDB(raw),
		Silent:    e.pre.IsSilence(raw),
	}
	e.ticks++

	if result.Silent {
		e.record(result)
		return result
	}

	// chroma applies its own pre-emphasis and window
	frame := e.pre.ProcessWith(raw, filters.ProcessOptions{Denoise: true})

	result.Pitch = e.estimator.Predict(frame)
	result.Note, _ = pitch.NoteName(result.Pitch.Frequency)

	scoreTime, live := e.follower.ProcessFrame(frame, result.Pitch.Frequency, result.Pitch.Confidence)
	result.Chroma = live
	if !e.follower.IsReady() {
		e.record(result)
		return result
	}

	result.ScoreTime = scoreTime
	result.Position = e.follower.Position()
	e.lastTime = scoreTime

	active := e.follower.ActiveNotes(scoreTime)
	for _, n := range active {
		result.Active = append(result.Active, n.ID)
	}

	result.Outcomes = append(result.Outcomes, e.judge.Evaluate(practice.Observation{
		Time:   scoreTime,
		Active: active,
		Pitch:  result.Pitch,
		Chroma: live,
	})...)
	result.Outcomes = append(result.Outcomes, e.judge.Sweep(scoreTime, e.follower.Events())...)

	if e.renderer != nil {
		e.renderer.SetCursor(scoreTime)
		for _, out := range result.Outcomes {
			color := score.ColorHit
			if out.Type == practice.OutcomeMiss {
				color = score.ColorMiss
			}
			e.renderer.MarkNote(out.NoteID, color)
		}
	}

	e.record(result)
	return result
}

// record appends to history and compacts once it holds twice the limit,
// so trimming costs O(1) amortised per tick
func (e *Engine) record(r TickResult) {
	e.history = append(e.history, r)
	if e.historyLimit > 0 && len(e.history) >= 2*e.historyLimit {
		n := copy(e.history, e.history[len(e.history)-e.historyLimit:])
		clear(e.history[n:])
		e.history = e.history[:n]
	}
}

// Run ticks at the configured analysis rate until ctx is cancelled, then
// stops the session. Cancellation is not reported as an error.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	ready := e.follower.IsReady()
	e.mu.Unlock()
	if !ready {
		return ErrNoScore
	}

	interval := e.config.Audio.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("Analysis loop started", logging.Fields{
		"interval_ms":   interval.Milliseconds(),
		"frame_samples": e.frameSamples,
	})

	for {
		select {
		case <-ctx.Done():
			e.session.Stop()
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Finish stops the session and returns its summary
func (e *Engine) Finish() practice.Summary {
	e.session.Stop()
	return e.session.Summary()
}

// Summary returns the running session summary
func (e *Engine) Summary() practice.Summary {
	return e.session.Summary()
}

// History returns a copy of the ticks since the last reset, at most the
// history limit of them
func (e *Engine) History() []TickResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.history
	if e.historyLimit > 0 && len(kept) > e.historyLimit {
		kept = kept[len(kept)-e.historyLimit:]
	}
	out := make([]TickResult, len(kept))
	copy(out, kept)
	return out
}

// Follower exposes the score follower
func (e *Engine) Follower() *follower.Follower {
	return e.follower
}

// Close releases the pitch estimator
func (e *Engine) Close() error {
	if closer, ok := e.estimator.(pitch.Closer); ok {
		return closer.Close()
	}
	return nil
}
