package chroma

// Gates applied before a chroma vector is accepted as containing a note
const (
	MinPeakEnergy   = 0.3
	MinPeakiness    = 2.5
	DefaultHitLevel = 0.6
)

// CheckHit reports whether target's pitch class dominates the vector.
//
// Quiet vectors (peak below MinPeakEnergy) and flat ones (peak/mean below
// MinPeakiness) are rejected first. A hit then needs the target bin above
// threshold, or the target and its two neighbours together above
// 1.5*threshold to tolerate tuning drift.
func CheckHit(v Vector, targetPitch int, threshold float64) bool {
	peak := v.Max()
	if peak < MinPeakEnergy {
		return false
	}
	if peak/(v.Mean()+1e-6) < MinPeakiness {
		return false
	}

	pc := ((targetPitch % NumBins) + NumBins) % NumBins
	if v[pc] > threshold {
		return true
	}

	left := v[(pc+NumBins-1)%NumBins]
	right := v[(pc+1)%NumBins]
	return left+v[pc]+right > threshold*1.5
}
