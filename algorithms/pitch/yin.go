package pitch

import (
	"math"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
)

// minYINLag is the shortest lag searched: a period of two samples is the
// Nyquist frequency
const minYINLag = 2

// YIN is a self-contained YIN estimator. It has no external dependencies
// and is the tier of last resort, so it never returns an error.
type YIN struct {
	sampleRate int
	threshold  float64
	minFreq    float64
}

// NewYIN creates a YIN estimator searching from minFreq up to Nyquist
func NewYIN(sampleRate int, threshold, minFreq float64) *YIN {
	if threshold <= 0 {
		threshold = 0.15
	}
	if minFreq <= 0 {
		minFreq = 50.0
	}
	return &YIN{sampleRate: sampleRate, threshold: threshold, minFreq: minFreq}
}

// Name implements Estimator
func (y *YIN) Name() string {
	return "yin"
}

// Predict implements Estimator.
//
// The difference function compares the first half of the frame with lagged
// copies of itself. The lag search spans minYINLag to sr/minFreq, limited so
// the lagged window stays inside the frame. The first lag whose CMNDF drops
// below the threshold is followed down to its local minimum; if none does,
// the global minimum is used. Confidence is 1-CMNDF at that lag, weighted
// by min(1, 50*RMS).
func (y *YIN) Predict(frame []float64) (Result, error) {
	res := Result{Source: y.Name()}
	sr := y.sampleRate
	if sr <= 1 || len(frame) < 4 {
		return res, nil
	}

	window := len(frame) / 2
	tauMin := minYINLag
	tauMax := min(int(float64(sr)/y.minFreq), len(frame)-window+1)
	if tauMax <= tauMin+1 {
		return res, nil
	}

	diff := difference(frame, window, tauMax)
	cmndf := cumulativeMeanNormalized(diff)

	tau := -1
	for t := tauMin; t < tauMax; t++ {
		if cmndf[t] < y.threshold {
			for t+1 < tauMax && cmndf[t+1] < cmndf[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		tau = tauMin + common.ArgMin(cmndf[tauMin:])
	}

	amplitude := math.Min(1.0, common.RMS(frame)*50)
	confidence := math.Max(0, 1.0-cmndf[tau]) * amplitude

	if tau > 0 {
		res.Frequency = float64(sr) / float64(tau)
	}
	res.Confidence = confidence
	return res, nil
}

// difference computes d[tau] = sum_j (x[j] - x[j+tau])^2 over the window
func difference(frame []float64, window, tauMax int) []float64 {
	diff := make([]float64, tauMax)
	for tau := 1; tau < tauMax; tau++ {
		sum := 0.0
		for j := 0; j < window; j++ {
			delta := frame[j] - frame[j+tau]
			sum += delta * delta
		}
		diff[tau] = sum
	}
	return diff
}

// cumulativeMeanNormalized divides each d[tau] by the running mean of
// d[1..tau]. A zero running sum maps to 1.
func cumulativeMeanNormalized(diff []float64) []float64 {
	cmndf := make([]float64, len(diff))
	if len(cmndf) == 0 {
		return cmndf
	}
	cmndf[0] = 1.0

	runningSum := 0.0
	for tau := 1; tau < len(diff); tau++ {
		runningSum += diff[tau]
		if runningSum == 0 {
			cmndf[tau] = 1.0
			continue
		}
		cmndf[tau] = diff[tau] / (runningSum / float64(tau))
	}
	return cmndf
}
