package spectral

// Resample converts a signal between sample rates by linear interpolation.
// ratio = originalRate/targetRate; the output length is len/ratio.
func Resample(signal []float64, originalRate, targetRate int) []float64 {
	if len(signal) == 0 || originalRate <= 0 || targetRate <= 0 || originalRate == targetRate {
		return signal
	}

	ratio := float64(originalRate) / float64(targetRate)
	newLength := int(float64(len(signal)) / ratio)
	if newLength <= 0 {
		return []float64{}
	}

	resampled := make([]float64, newLength)
	for i := range resampled {
		resampled[i] = linearAt(signal, float64(i)*ratio)
	}
	return resampled
}

// Decimate keeps every factor-th sample. No anti-alias filter is applied;
// callers feeding the chroma path rely on the window and the 50 Hz floor.
func Decimate(signal []float64, factor int) []float64 {
	if len(signal) == 0 || factor <= 1 {
		return signal
	}

	out := make([]float64, (len(signal)+factor-1)/factor)
	for i := range out {
		out[i] = signal[i*factor]
	}
	return out
}

func linearAt(data []float64, index float64) float64 {
	if index <= 0 {
		return data[0]
	}
	last := len(data) - 1
	if index >= float64(last) {
		return data[last]
	}

	i := int(index)
	frac := index - float64(i)
	return data[i] + frac*(data[i+1]-data[i])
}
