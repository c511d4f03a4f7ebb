package pitch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-follow/logging"
)

// TierStatus describes one estimator tier after initialisation
type TierStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

// Capabilities lists the tiers a chain was built with, in priority order,
// including the ones that could not be loaded
type Capabilities struct {
	Tiers []TierStatus `json:"tiers"`
}

// Available reports whether the named tier loaded
func (c Capabilities) Available(name string) bool {
	for _, t := range c.Tiers {
		if t.Name == name {
			return t.Available
		}
	}
	return false
}

// Active returns the names of the loaded tiers in priority order
func (c Capabilities) Active() []string {
	var names []string
	for _, t := range c.Tiers {
		if t.Available {
			names = append(names, t.Name)
		}
	}
	return names
}

func (c Capabilities) String() string {
	parts := make([]string, len(c.Tiers))
	for i, t := range c.Tiers {
		mark := "-"
		if t.Available {
			mark = "+"
		}
		parts[i] = mark + t.Name
	}
	return strings.Join(parts, " ")
}

// Chain tries each estimator in priority order and returns the first result
// that is voiced with confidence at or above the floor. The last tier's
// answer is accepted unconditionally so the chain always produces an
// estimate. Tier failures are logged once per tier and skipped.
//
// A Chain is meant to be driven from the single analysis goroutine.
type Chain struct {
	tiers      []Estimator
	caps       Capabilities
	minSamples int
	floor      float64
	lastSource string

	logger logging.Logger
	once   logging.Once
}

// NewChain builds a chain from explicit tiers, all reported as available
func NewChain(params Params, tiers ...Estimator) *Chain {
	caps := Capabilities{}
	for _, t := range tiers {
		caps.Tiers = append(caps.Tiers, TierStatus{Name: t.Name(), Available: true})
	}
	return &Chain{
		tiers:      tiers,
		caps:       caps,
		minSamples: params.MinSamples,
		floor:      params.ConfidenceFloor,
		logger: logging.WithFields(logging.Fields{
			"component": "pitch_chain",
		}),
	}
}

// NewDefaultChain builds RMVPE, CREPE, YinFFT and YIN in that order.
// Tiers that cannot load are logged once here and left out; YIN is always
// present. Neural tiers are warmed up before the chain is returned.
func NewDefaultChain(params Params) *Chain {
	logger := logging.WithFields(logging.Fields{
		"component": "pitch_chain",
		"function":  "NewDefaultChain",
	})

	var (
		tiers []Estimator
		caps  Capabilities
	)
	add := func(name string, est Estimator, err error) {
		if err == nil {
			if w, ok := est.(Warmer); ok {
				if werr := w.Warmup(); werr != nil {
					err = fmt.Errorf("%w: warmup: %v", ErrInference, werr)
				}
			}
		}
		if err != nil {
			caps.Tiers = append(caps.Tiers, TierStatus{Name: name, Reason: err.Error()})
			logger.Warn("Pitch estimator unavailable, falling back", logging.Fields{
				"tier":   name,
				"reason": err.Error(),
			})
			return
		}
		tiers = append(tiers, est)
		caps.Tiers = append(caps.Tiers, TierStatus{Name: name, Available: true})
	}

	rmvpe, err := NewRMVPE(params)
	add("rmvpe", rmvpe, err)

	crepe, err := NewCREPE(params)
	add("crepe", crepe, err)

	add("yinfft", NewYinFFT(params.SampleRate, params.MinFreq, params.YinFFTMaxFreq), nil)
	add("yin", NewYIN(params.SampleRate, params.YinThreshold, params.MinFreq), nil)

	chain := NewChain(params, tiers...)
	chain.caps = caps

	logger.Info("Pitch estimator chain ready", logging.Fields{
		"tiers": caps.String(),
	})
	return chain
}

// Capabilities reports which tiers loaded
func (c *Chain) Capabilities() Capabilities {
	return c.caps
}

// Predict runs the fallback chain. Frames shorter than MinSamples give a
// zero result without consulting any tier.
func (c *Chain) Predict(frame []float64) Result {
	if len(frame) < c.minSamples || len(c.tiers) == 0 {
		return Result{}
	}

	for i, tier := range c.tiers {
		last := i == len(c.tiers)-1

		res, err := tier.Predict(frame)
		if err != nil {
			c.once.Do("error:"+tier.Name(), func() {
				c.logger.Error(err, "Pitch estimator failed, falling back", logging.Fields{
					"tier":      tier.Name(),
					"inference": errors.Is(err, ErrInference),
				})
			})
			continue
		}

		if last || (res.Voiced() && res.Confidence >= c.floor) {
			res.Source = tier.Name()
			c.noteSource(res.Source)
			return res
		}
	}
	return Result{}
}

func (c *Chain) noteSource(source string) {
	if source == c.lastSource {
		return
	}
	c.logger.Debug("Pitch estimate source changed", logging.Fields{
		"from": c.lastSource,
		"to":   source,
	})
	c.lastSource = source
}

// Close releases every tier that holds resources
func (c *Chain) Close() error {
	var errs []error
	for _, t := range c.tiers {
		if closer, ok := t.(Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}
