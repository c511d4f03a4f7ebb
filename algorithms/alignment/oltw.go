package alignment

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultRadius is the stiffness of the search window in reference frames
const DefaultRadius = 50

// Weights scales the local cost for each allowed transition into frame i
type Weights struct {
	Stay    float64 // i -> i, performer lingers on a frame
	Advance float64 // i-1 -> i, reference tempo
	Skip    float64 // i-2 -> i, faster than reference
}

// DefaultWeights penalises staying twice as much as advancing
func DefaultWeights() Weights {
	return Weights{Stay: 2.0, Advance: 1.0, Skip: 1.5}
}

// OLTW is an online time warping aligner. Each Step consumes one live
// feature vector and returns the best matching reference frame.
//
// Only a window of [position-radius, position+2*radius) is recomputed per
// step, so the cost per frame is bounded regardless of score length. The
// argmin is taken inside that window too; the aligner can move backwards
// within it, which is how it recovers from a bad estimate.
//
// OLTW is not safe for concurrent use. Reset may be called between steps.
type OLTW struct {
	reference [][]float64
	radius    int
	weights   Weights

	position    int
	accumulated []float64
	scratch     []float64
	local       []float64
}

// NewOLTW creates an aligner over reference rows, which must be L2 normalised
// so that 1 - dot is a cosine distance. A non-positive radius uses DefaultRadius.
func NewOLTW(reference [][]float64, radius int) *OLTW {
	if radius <= 0 {
		radius = DefaultRadius
	}
	n := len(reference)
	o := &OLTW{
		reference:   reference,
		radius:      radius,
		weights:     DefaultWeights(),
		accumulated: make([]float64, n),
		scratch:     make([]float64, n),
		local:       make([]float64, n),
	}
	o.Reset()
	return o
}

// SetWeights overrides the transition weights
func (o *OLTW) SetWeights(w Weights) {
	o.weights = w
}

// Reset returns to frame 0 with a cost of zero there and +Inf elsewhere
func (o *OLTW) Reset() {
	o.position = 0
	for i := range o.accumulated {
		o.accumulated[i] = math.Inf(1)
	}
	if len(o.accumulated) > 0 {
		o.accumulated[0] = 0
	}
}

// Position returns the current reference frame
func (o *OLTW) Position() int {
	return o.position
}

// Len returns the number of reference frames
func (o *OLTW) Len() int {
	return len(o.reference)
}

// Radius returns the window stiffness
func (o *OLTW) Radius() int {
	return o.radius
}

// AccumulatedCost returns a copy of the current accumulated cost row
func (o *OLTW) AccumulatedCost() []float64 {
	out := make([]float64, len(o.accumulated))
	copy(out, o.accumulated)
	return out
}

// Window returns the [start, end) range the next step will recompute
func (o *OLTW) Window() (start, end int) {
	start = max(0, o.position-o.radius)
	end = min(len(o.reference), o.position+2*o.radius)
	return start, end
}

// Step advances the alignment by one live frame and returns the new position.
// Frames outside the window become +Inf. An all-Inf window keeps the
// position at the window start rather than failing.
func (o *OLTW) Step(live []float64) int {
	n := len(o.reference)
	if n == 0 {
		return 0
	}

	start, end := o.Window()
	for i := start; i < end; i++ {
		o.local[i] = 1.0 - dot(o.reference[i], live)
	}

	next := o.scratch
	for i := range next {
		next[i] = math.Inf(1)
	}

	acc := o.accumulated
	for i := start; i < end; i++ {
		c := o.local[i]
		best := acc[i] + o.weights.Stay*c
		if i >= 1 {
			best = math.Min(best, acc[i-1]+o.weights.Advance*c)
		}
		if i >= 2 {
			best = math.Min(best, acc[i-2]+o.weights.Skip*c)
		}
		next[i] = best
	}

	o.accumulated, o.scratch = next, acc

	bestIdx := start
	for i := start + 1; i < end; i++ {
		if o.accumulated[i] < o.accumulated[bestIdx] {
			bestIdx = i
		}
	}
	o.position = bestIdx
	return bestIdx
}

func dot(a, b []float64) float64 {
	if len(a) != len(b) {
		n := min(len(a), len(b))
		a, b = a[:n], b[:n]
	}
	if len(a) == 0 {
		return 0
	}
	return floats.Dot(a, b)
}
