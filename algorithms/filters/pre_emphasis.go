package filters

// PreEmphasis implements a first-order pre-emphasis (high-pass) filter.
//
// The filter implements the transfer function:
// H(z) = 1 - α*z^-1
//
// With the difference equation:
// y[n] = x[n] - α*x[n-1]
//
// Guitar energy is concentrated in the low fundamentals; lifting the upper
// partials evens out the spectrum before chroma folding.
//
// References:
//   - L.R. Rabiner, R.W. Schafer, "Digital Processing of Speech Signals",
//     Prentice-Hall, 1978, Chapter 4
type PreEmphasis struct {
	coefficient float64 // Pre-emphasis coefficient α
}

// DefaultPreEmphasis is the coefficient used by the analysis front end
const DefaultPreEmphasis = 0.97

// NewPreEmphasis creates a pre-emphasis filter with specified coefficient.
// Coefficients outside (0, 1) fall back to DefaultPreEmphasis.
func NewPreEmphasis(coefficient float64) *PreEmphasis {
	if coefficient <= 0.0 || coefficient >= 1.0 {
		coefficient = DefaultPreEmphasis
	}
	return &PreEmphasis{coefficient: coefficient}
}

// Apply filters a self-contained frame: the first sample passes through
// unchanged and no state is carried between frames.
func (pe *PreEmphasis) Apply(input []float64) []float64 {
	if len(input) == 0 {
		return []float64{}
	}
	output := make([]float64, len(input))
	output[0] = input[0]
	for n := 1; n < len(input); n++ {
		output[n] = input[n] - pe.coefficient*input[n-1]
	}
	return output
}

// Coefficient returns α
func (pe *PreEmphasis) Coefficient() float64 {
	return pe.coefficient
}
