package pitch

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-follow/logging"
)

func sine(freq float64, sampleRate, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func useMemoryLogger(t *testing.T) *logging.MemoryLogger {
	t.Helper()
	prev := logging.GetGlobalLogger()
	mem := logging.NewMemoryLogger()
	logging.SetGlobalLogger(mem)
	t.Cleanup(func() { logging.SetGlobalLogger(prev) })
	return mem
}

type fakeEstimator struct {
	name  string
	res   Result
	err   error
	calls int
}

func (f *fakeEstimator) Name() string { return f.name }

func (f *fakeEstimator) Predict(frame []float64) (Result, error) {
	f.calls++
	return f.res, f.err
}

func TestYINFindsFundamental(t *testing.T) {
	y := NewYIN(44100, 0.15, 50)
	res, err := y.Predict(sine(220, 44100, 2048, 0.5))
	require.NoError(t, err)

	assert.Equal(t, "yin", res.Source)
	assert.InDelta(t, 220.0, res.Frequency, 2.0)
	assert.Greater(t, res.Confidence, 0.5)
}

func TestYINSearchesDownToTwoSampleLag(t *testing.T) {
	for _, sr := range []int{8000, 11025} {
		y := NewYIN(sr, 0.15, 50)
		freq := float64(sr) / 4
		res, err := y.Predict(sine(freq, sr, 1024, 0.5))
		require.NoError(t, err)
		assert.InDelta(t, freq, res.Frequency, 1e-9, "sample rate %d", sr)
	}
}

func TestYINShortFrame(t *testing.T) {
	y := NewYIN(44100, 0.15, 50)
	res, err := y.Predict([]float64{0.1, 0.2, 0.3})
	require.NoError(t, err)
	assert.Zero(t, res.Frequency)
	assert.Zero(t, res.Confidence)
}

func TestYINSilenceHasNoConfidence(t *testing.T) {
	y := NewYIN(22050, 0.15, 50)
	res, err := y.Predict(make([]float64, 2048))
	require.NoError(t, err)
	assert.Zero(t, res.Confidence)
}

func TestYinFFTFindsFundamental(t *testing.T) {
	y := NewYinFFT(22050, 50, 1500)

	res, err := y.Predict(sine(220, 22050, 2048, 0.5))
	require.NoError(t, err)
	assert.Equal(t, "yinfft", res.Source)
	assert.InDelta(t, 220, res.Frequency, 2)
	assert.Greater(t, res.Confidence, 0.5)

	// an odd length drops its last sample
	res, err = y.Predict(sine(220, 22050, 2049, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, 220, res.Frequency, 2)
}

func TestYinFFTSilenceAndShortFrames(t *testing.T) {
	y := NewYinFFT(22050, 50, 1500)

	res, err := y.Predict(make([]float64, 2048))
	require.NoError(t, err)
	assert.Zero(t, res.Frequency)
	assert.Zero(t, res.Confidence)

	_, err = y.Predict(sine(220, 22050, 20, 0.5))
	assert.ErrorIs(t, err, ErrInference)
}

func TestParabolicMinimum(t *testing.T) {
	offset, value := parabolicMinimum(1, 0, 1)
	assert.Zero(t, offset)
	assert.Zero(t, value)

	// y = (x-0.25)^2 sampled at -1, 0, 1
	offset, value = parabolicMinimum(1.5625, 0.0625, 0.5625)
	assert.InDelta(t, 0.25, offset, 1e-12)
	assert.InDelta(t, 0, value, 1e-12)

	offset, value = parabolicMinimum(1, 2, 1)
	assert.Zero(t, offset)
	assert.Equal(t, 2.0, value)
}

func TestChainSkipsShortFrames(t *testing.T) {
	a := &fakeEstimator{name: "a", res: Result{Frequency: 440, Confidence: 1}}
	chain := NewChain(DefaultParams(22050), a)

	res := chain.Predict(make([]float64, 100))
	assert.Equal(t, Result{}, res)
	assert.Zero(t, a.calls)
}

func TestChainFallback(t *testing.T) {
	frame := make([]float64, 2048)

	tests := []struct {
		name   string
		tiers  []*fakeEstimator
		source string
		freq   float64
	}{
		{
			name: "first confident tier wins",
			tiers: []*fakeEstimator{
				{name: "a", res: Result{Frequency: 440, Confidence: 0.9}},
				{name: "b", res: Result{Frequency: 220, Confidence: 0.9}},
			},
			source: "a",
			freq:   440,
		},
		{
			name: "low confidence falls through",
			tiers: []*fakeEstimator{
				{name: "a", res: Result{Frequency: 440, Confidence: 0.05}},
				{name: "b", res: Result{Frequency: 220, Confidence: 0.5}},
			},
			source: "b",
			freq:   220,
		},
		{
			name: "unvoiced falls through",
			tiers: []*fakeEstimator{
				{name: "a", res: Result{Confidence: 0.9}},
				{name: "b", res: Result{Frequency: 330, Confidence: 0.3}},
			},
			source: "b",
			freq:   330,
		},
		{
			name: "last tier is always accepted",
			tiers: []*fakeEstimator{
				{name: "a", res: Result{Frequency: 440, Confidence: 0.01}},
				{name: "b", res: Result{Frequency: 110, Confidence: 0}},
			},
			source: "b",
			freq:   110,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tiers := make([]Estimator, len(tt.tiers))
			for i, f := range tt.tiers {
				tiers[i] = f
			}
			chain := NewChain(DefaultParams(22050), tiers...)

			res := chain.Predict(frame)
			assert.Equal(t, tt.source, res.Source)
			assert.Equal(t, tt.freq, res.Frequency)
		})
	}
}

func TestChainLogsTierFailureOnce(t *testing.T) {
	mem := useMemoryLogger(t)

	broken := &fakeEstimator{name: "broken", err: errors.New("session lost")}
	backup := &fakeEstimator{name: "backup", res: Result{Frequency: 196, Confidence: 0.8}}
	chain := NewChain(DefaultParams(22050), broken, backup)

	frame := make([]float64, 2048)
	for range 3 {
		res := chain.Predict(frame)
		assert.Equal(t, "backup", res.Source)
	}

	assert.Equal(t, 3, broken.calls)
	assert.Equal(t, 1, mem.Count("Pitch estimator failed, falling back"))
}

func TestDefaultChainWithoutModels(t *testing.T) {
	mem := useMemoryLogger(t)

	params := DefaultParams(22050)
	params.RMVPEModel = "testdata/missing.onnx"
	params.CREPEModel = "testdata/missing"

	chain := NewDefaultChain(params)
	defer chain.Close()

	caps := chain.Capabilities()
	assert.False(t, caps.Available("rmvpe"))
	assert.False(t, caps.Available("crepe"))
	assert.True(t, caps.Available("yinfft"))
	assert.True(t, caps.Available("yin"))
	assert.Equal(t, []string{"yinfft", "yin"}, caps.Active())
	assert.Equal(t, "-rmvpe -crepe +yinfft +yin", caps.String())
	assert.Equal(t, 2, mem.Count("Pitch estimator unavailable, falling back"))

	res := chain.Predict(sine(220, 22050, 2048, 0.5))
	assert.Contains(t, []string{"yinfft", "yin"}, res.Source)
	assert.True(t, res.Voiced())
}

func TestDecodeSalience(t *testing.T) {
	t.Run("one hot", func(t *testing.T) {
		probs := make([]float64, NumSalienceBins)
		probs[60] = 0.9
		freq, conf := decodeSalience(probs, &rmvpeCents, 0.1)
		assert.InDelta(t, 62.2254, freq, 1e-3)
		assert.Equal(t, 0.9, conf)
	})

	t.Run("symmetric neighbours keep the peak", func(t *testing.T) {
		probs := make([]float64, NumSalienceBins)
		probs[59], probs[60], probs[61] = 0.4, 0.8, 0.4
		freq, _ := decodeSalience(probs, &crepeCents, 0)
		assert.InDelta(t, centsToHz(crepeCents[60]), freq, 1e-6)
		assert.InDelta(t, 63.40, freq, 1e-2)
	})

	t.Run("centroid leans toward the heavier side", func(t *testing.T) {
		probs := make([]float64, NumSalienceBins)
		probs[60], probs[61] = 0.8, 0.8
		freq, _ := decodeSalience(probs, &crepeCents, 0)
		assert.InDelta(t, centsToHz(crepeCents[60]+10), freq, 1e-6)
	})

	t.Run("below floor", func(t *testing.T) {
		probs := make([]float64, NumSalienceBins)
		probs[100] = 0.05
		freq, conf := decodeSalience(probs, &rmvpeCents, 0.1)
		assert.Zero(t, freq)
		assert.Equal(t, 0.05, conf)
	})

	t.Run("edge bin", func(t *testing.T) {
		probs := make([]float64, NumSalienceBins)
		probs[NumSalienceBins-1] = 1
		freq, _ := decodeSalience(probs, &rmvpeCents, 0)
		assert.InDelta(t, centsToHz(rmvpeCents[NumSalienceBins-1]), freq, 1e-6)
	})

	t.Run("empty", func(t *testing.T) {
		freq, conf := decodeSalience(nil, &rmvpeCents, 0)
		assert.Zero(t, freq)
		assert.Zero(t, conf)
	})
}

type fakeSalienceRunner struct {
	bin    int
	conf   float32
	err    error
	mels   int
	frames int
	inputs int
	closed bool
}

func (f *fakeSalienceRunner) Run(input []float32, mels, frames int) ([][]float32, error) {
	f.mels, f.frames, f.inputs = mels, frames, len(input)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, frames)
	for i := range out {
		out[i] = make([]float32, NumSalienceBins)
		out[i][f.bin] = f.conf
	}
	return out, nil
}

func (f *fakeSalienceRunner) Close() error {
	f.closed = true
	return nil
}

func TestRMVPEPredict(t *testing.T) {
	runner := &fakeSalienceRunner{bin: 120, conf: 0.9}
	r := newRMVPEWithRunner(DefaultParams(22050), runner)

	require.NoError(t, r.Warmup())

	res, err := r.Predict(sine(124.45, 22050, 1103, 0.5))
	require.NoError(t, err)
	assert.Equal(t, "rmvpe", res.Source)
	assert.InDelta(t, 124.45, res.Frequency, 0.01)
	assert.InDelta(t, 0.9, res.Confidence, 1e-6)

	assert.Equal(t, rmvpeMels, runner.mels)
	assert.Zero(t, runner.frames%rmvpeTimeAlign)
	assert.Equal(t, runner.mels*runner.frames, runner.inputs)

	require.NoError(t, r.Close())
	assert.True(t, runner.closed)
}

func TestRMVPEFeaturesPadTime(t *testing.T) {
	r := newRMVPEWithRunner(DefaultParams(22050), &fakeSalienceRunner{})

	input, mels, frames, valid := r.Features(sine(220, 22050, 1103, 0.5), 22050)
	assert.Equal(t, rmvpeMels, mels)
	assert.Positive(t, valid)
	assert.LessOrEqual(t, valid, frames)
	assert.Zero(t, frames%rmvpeTimeAlign)
	assert.Len(t, input, mels*frames)

	_, _, _, valid = r.Features(nil, 22050)
	assert.Zero(t, valid)
}

func TestRMVPEInferenceError(t *testing.T) {
	r := newRMVPEWithRunner(DefaultParams(22050), &fakeSalienceRunner{err: errors.New("bad shape")})

	_, err := r.Predict(sine(220, 22050, 1103, 0.5))
	assert.ErrorIs(t, err, ErrInference)
}

type fakeActivationRunner struct {
	rows   [][]float32
	frames [][]float32
}

func (f *fakeActivationRunner) Run(frames [][]float32) ([][]float32, error) {
	f.frames = frames
	return f.rows, nil
}

func (f *fakeActivationRunner) Close() error { return nil }

func TestCREPEPicksMostConfidentFrame(t *testing.T) {
	first := make([]float32, NumSalienceBins)
	first[60] = 0.5
	second := make([]float32, NumSalienceBins)
	second[120] = 0.8

	runner := &fakeActivationRunner{rows: [][]float32{first, second}}
	c := newCREPEWithRunner(DefaultParams(22050), runner)

	res, err := c.Predict(sine(126.8, 22050, 1103, 0.5))
	require.NoError(t, err)
	assert.Equal(t, "crepe", res.Source)
	assert.InDelta(t, centsToHz(crepeCents[120]), res.Frequency, 1e-6)
	assert.InDelta(t, 126.80, res.Frequency, 0.02)
	assert.InDelta(t, 0.8, res.Confidence, 1e-6)

	require.Len(t, runner.frames, 2)
	for _, f := range runner.frames {
		assert.Len(t, f, crepeFrameSize)
	}
}

func TestNormalizeFrame(t *testing.T) {
	out := normalizeFrame([]float64{1, 2, 3, 4})
	mean, sq := 0.0, 0.0
	for _, v := range out {
		mean += float64(v)
		sq += float64(v) * float64(v)
	}
	assert.InDelta(t, 0, mean/4, 1e-6)
	assert.InDelta(t, 1, sq/4, 1e-5)

	flat := normalizeFrame([]float64{0.5, 0.5})
	assert.Equal(t, []float32{0, 0}, flat)
}

func TestHarmonicity(t *testing.T) {
	assert.Equal(t, 0.5, Harmonicity([]float64{1}))
	assert.InDelta(t, 0, Harmonicity([]float64{1, 0, 0, 0}), 1e-9)

	h := Harmonicity(sine(220, 22050, 2048, 0.5))
	assert.Greater(t, h, 0.8)
	assert.LessOrEqual(t, h, 1.0)
}

func TestNoteNames(t *testing.T) {
	tests := []struct {
		freq float64
		name string
		midi int
	}{
		{440, "A4", 69},
		{261.63, "C4", 60},
		{82.41, "E2", 40},
		{369.99, "F#4", 66},
		{27.5, "A0", 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := NoteFromFrequency(tt.freq)
			require.True(t, ok)
			assert.Equal(t, tt.name, n.Name)
			assert.Equal(t, tt.midi, n.MIDI)
			assert.InDelta(t, 0, n.Cents, 1)
		})
	}

	_, ok := NoteFromFrequency(0)
	assert.False(t, ok)

	name, cents := NoteName(440)
	assert.Equal(t, "A4", name)
	assert.InDelta(t, 0, cents, 1e-9)

	name, _ = NoteName(-1)
	assert.Empty(t, name)
}

func TestSemitoneError(t *testing.T) {
	assert.InDelta(t, 1.0, SemitoneError(MIDIToFrequency(70), 440), 1e-9)
	assert.InDelta(t, 12.0, SemitoneError(220, 440), 1e-9)
	assert.True(t, math.IsInf(SemitoneError(0, 440), 1))
	assert.InDelta(t, 440.0, MIDIToFrequency(69), 1e-9)
}
