package pitch

import (
	"math"
)

// NumSalienceBins is the width of the pitch salience output of both neural
// models: 360 bins at 20 cents, from about 31 Hz to 7.9 kHz
const NumSalienceBins = 360

// centTable holds the cent value of each salience bin relative to 10 Hz
type centTable [NumSalienceBins]float64

func newCentTable(offset float64) centTable {
	var t centTable
	for i := range t {
		t[i] = offset + 20.0*float64(i)
	}
	return t
}

var (
	// RMVPE bin 0 sits at 31.1127 Hz
	rmvpeCents = newCentTable(1200.0 * math.Log2(31.1127/10.0))
	// CREPE bin 0 sits at 1997.38 cents, about 31.70 Hz
	crepeCents = newCentTable(1997.3794084376191)
)

// centsToHz converts cents relative to 10 Hz
func centsToHz(cents float64) float64 {
	return 10.0 * math.Pow(2.0, cents/1200.0)
}

// decodeSalience picks the peak bin of one frame of salience and refines it
// with a probability-weighted centroid over the four bins either side. The
// peak value is the confidence; below floor the frequency is 0.
func decodeSalience(probs []float64, table *centTable, floor float64) (freq, conf float64) {
	if len(probs) == 0 {
		return 0, 0
	}

	peak := 0
	for i, p := range probs {
		if p > probs[peak] {
			peak = i
		}
	}
	conf = probs[peak]
	if conf < floor {
		return 0, conf
	}

	start := max(0, peak-4)
	end := min(len(probs), min(NumSalienceBins, peak+5))

	weighted, total := 0.0, 0.0
	for i := start; i < end; i++ {
		weighted += probs[i] * table[i]
		total += probs[i]
	}
	if total <= 0 {
		return 0, conf
	}
	return centsToHz(weighted / total), conf
}
