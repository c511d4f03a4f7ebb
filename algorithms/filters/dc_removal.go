package filters

import (
	"gonum.org/v1/gonum/stat"
)

// RemoveDC subtracts the block mean, leaving a zero-mean copy.
//
// A one-pole DC blocker needs hundreds of samples to settle, which is longer
// than the frames analysed here, so each block is centred on its own mean.
func RemoveDC(input []float64) []float64 {
	if len(input) == 0 {
		return []float64{}
	}

	mean := stat.Mean(input, nil)
	output := make([]float64, len(input))
	for i, v := range input {
		output[i] = v - mean
	}
	return output
}
