package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/vg"

	"github.com/RyanBlaney/sonido-follow/algorithms/chroma"
	"github.com/RyanBlaney/sonido-follow/engine"
	"github.com/RyanBlaney/sonido-follow/practice"
)

var pngMagic = []byte("\x89PNG")

func testHistory() []engine.TickResult {
	return []engine.TickResult{
		{Tick: 0, Time: 0, ScoreTime: 0, Chroma: chroma.FromF0(440, 1)},
		{Tick: 1, Time: 0.033, ScoreTime: 0.1, Chroma: chroma.FromF0(440, 1),
			Outcomes: []practice.Outcome{{Type: practice.OutcomeHit, NoteID: "n1"}}},
		{Tick: 2, Time: 0.066, ScoreTime: 0.2, Silent: true},
		{Tick: 3, Time: 0.1, ScoreTime: 1.3, Chroma: chroma.FromF0(330, 1),
			Outcomes: []practice.Outcome{{Type: practice.OutcomeMiss, NoteID: "n2"}}},
	}
}

func TestPlotsRejectEmptyHistory(t *testing.T) {
	_, err := PlotAlignment(nil, "empty")
	assert.ErrorIs(t, err, ErrEmptyHistory)

	_, err = PlotChromagram(nil, "empty")
	assert.ErrorIs(t, err, ErrEmptyHistory)
}

func TestPlotAlignment(t *testing.T) {
	p, err := PlotAlignment(testHistory(), "riff")
	require.NoError(t, err)
	assert.Equal(t, "riff", p.Title.Text)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(p, &buf, 4*vg.Inch, 3*vg.Inch))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestPlotChromagram(t *testing.T) {
	p, err := PlotChromagram(testHistory(), "chroma")
	require.NoError(t, err)

	ticks := p.Y.Tick.Marker.Ticks(0, 11)
	require.Len(t, ticks, chroma.NumBins)
	assert.Equal(t, "C", ticks[0].Label)
	assert.Equal(t, "A", ticks[9].Label)

	path := filepath.Join(t.TempDir(), "chroma.png")
	require.NoError(t, SavePNG(p, path, 6*vg.Inch, 3*vg.Inch))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic))
}

func TestChromaGrid(t *testing.T) {
	g := chromaGrid{history: testHistory()}
	c, r := g.Dims()
	assert.Equal(t, 4, c)
	assert.Equal(t, chroma.NumBins, r)
	assert.Equal(t, 1.0, g.Z(0, 9))
	assert.Equal(t, 0.0, g.Z(2, 9))
	assert.Equal(t, 0.066, g.X(2))
	assert.Equal(t, 4.0, g.Y(4))
}
