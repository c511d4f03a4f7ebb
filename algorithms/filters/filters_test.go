package filters

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-follow/algorithms/common"
)

func sine(freq, amplitude float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func whiteNoise(rng *rand.Rand, sigma float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * sigma
	}
	return out
}

func TestPreEmphasis_Apply(t *testing.T) {
	pe := NewPreEmphasis(0.97)

	out := pe.Apply([]float64{1, 1, 1})
	assert.InDeltaSlice(t, []float64{1, 0.03, 0.03}, out, 1e-12)
	assert.Empty(t, pe.Apply(nil))
}

func TestPreEmphasis_Coefficient(t *testing.T) {
	for _, c := range []float64{0, -0.5, 1, 1.5} {
		assert.Equal(t, DefaultPreEmphasis, NewPreEmphasis(c).Coefficient(), "coefficient %g", c)
	}

	pe := NewPreEmphasis(0.5)
	assert.Equal(t, 0.5, pe.Coefficient())
	assert.InDeltaSlice(t, []float64{2, 1, -1}, pe.Apply([]float64{2, 2, 0}), 1e-12)
	// frames are independent
	assert.InDeltaSlice(t, []float64{4}, pe.Apply([]float64{4}), 1e-12)
}

func TestRemoveDC(t *testing.T) {
	in := sine(100, 0.5, 8000, 500)
	for i := range in {
		in[i] += 0.3
	}
	out := RemoveDC(in)

	assert.InDelta(t, 0.0, common.Mean(out), 1e-12)
	assert.Empty(t, RemoveDC(nil))
}

func TestPreprocessor_EmptyInput(t *testing.T) {
	p := NewPreprocessor(DefaultPreprocessorConfig())

	assert.Empty(t, p.Process(nil))
	assert.Empty(t, p.Process([]float64{}))
}

func TestPreprocessor_DecimatesAndWindows(t *testing.T) {
	p := NewPreprocessor(DefaultPreprocessorConfig())
	require.Equal(t, 2, p.Factor())
	require.Equal(t, 22050, p.OutputSampleRate())

	in := sine(220, 0.5, 44100, 2205)
	for i := range in {
		in[i] += 0.2
	}
	out := p.Process(in)

	require.Len(t, out, 1103)
	assert.InDelta(t, 0.0, out[0], 1e-12)
	assert.InDelta(t, 0.0, out[len(out)-1], 1e-12)
}

func TestPreprocessor_DCRemovalOnly(t *testing.T) {
	cfg := DefaultPreprocessorConfig()
	cfg.TargetSampleRate = cfg.SampleRate
	p := NewPreprocessor(cfg)
	require.Equal(t, 1, p.Factor())

	in := sine(440, 0.5, cfg.SampleRate, 1000)
	for i := range in {
		in[i] -= 0.4
	}
	out := p.ProcessWith(in, ProcessOptions{})

	require.Len(t, out, len(in))
	assert.InDelta(t, 0.0, common.Mean(out), 1e-12)
}

func TestPreprocessor_SilenceAndEnergy(t *testing.T) {
	p := NewPreprocessor(DefaultPreprocessorConfig())

	assert.Equal(t, -100.0, p.EnergyDB(make([]float64, 64)))
	assert.True(t, p.IsSilence(make([]float64, 64)))

	loud := sine(440, 1, 44100, 4410)
	assert.InDelta(t, -3.0103, p.EnergyDB(loud), 0.01)
	assert.False(t, p.IsSilence(loud))

	quiet := sine(440, 1e-4, 44100, 4410)
	assert.True(t, p.IsSilence(quiet))
}

func TestPreprocessor_NoiseProfile(t *testing.T) {
	p := NewPreprocessor(DefaultPreprocessorConfig())
	assert.False(t, p.HasNoiseProfile())

	p.SetNoiseProfile(nil)
	assert.False(t, p.HasNoiseProfile())

	rng := rand.New(rand.NewSource(7))
	p.SetNoiseProfile(whiteNoise(rng, 0.05, 44100))
	assert.True(t, p.HasNoiseProfile())

	out := p.Process(whiteNoise(rng, 0.05, 2205))
	assert.Len(t, out, 1103)

	p.ClearNoiseProfile()
	assert.False(t, p.HasNoiseProfile())
}

func TestSpectralGate_AttenuatesNoiseKeepsTone(t *testing.T) {
	const sr = 22050
	rng := rand.New(rand.NewSource(42))

	gate := NewSpectralGate(whiteNoise(rng, 0.05, sr), sr)
	require.NotNil(t, gate)

	noise := whiteNoise(rng, 0.05, 4096)
	gated := gate.Apply(noise, sr)
	require.Len(t, gated, len(noise))
	assert.Less(t, common.RMS(gated), 0.85*common.RMS(noise))

	tone := sine(440, 1, sr, 4096)
	noisy := make([]float64, len(tone))
	extra := whiteNoise(rng, 0.05, len(tone))
	for i := range tone {
		noisy[i] = tone[i] + extra[i]
	}
	kept := gate.Apply(noisy, sr)
	assert.InDelta(t, common.RMS(tone), common.RMS(kept), 0.05)
}

func TestSpectralGate_NilAndEmpty(t *testing.T) {
	assert.Nil(t, NewSpectralGate(nil, 22050))

	var gate *SpectralGate
	block := []float64{1, 2, 3}
	assert.Equal(t, block, gate.Apply(block, 22050))
}
