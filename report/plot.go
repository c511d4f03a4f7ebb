// Package report renders diagnostics for a finished practice run.
package report

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/RyanBlaney/sonido-follow/algorithms/chroma"
	"github.com/RyanBlaney/sonido-follow/engine"
	"github.com/RyanBlaney/sonido-follow/practice"
)

// ErrEmptyHistory is returned when there is nothing to plot
var ErrEmptyHistory = errors.New("report: empty history")

var (
	hitColor  = color.RGBA{R: 0x2e, G: 0x9e, B: 0x44, A: 0xff}
	missColor = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
)

// PlotAlignment plots the aligned score position against clock time, with
// hits and misses marked where they were judged
func PlotAlignment(history []engine.TickResult, title string) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	path := make(plotter.XYs, len(history))
	var hits, misses plotter.XYs
	for i, r := range history {
		path[i].X = r.Time
		path[i].Y = r.ScoreTime
		for _, out := range r.Outcomes {
			pt := plotter.XY{X: r.Time, Y: r.ScoreTime}
			if out.Type == practice.OutcomeHit {
				hits = append(hits, pt)
			} else {
				misses = append(misses, pt)
			}
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Score position (s)"
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(path)
	if err != nil {
		return nil, fmt.Errorf("failed to build alignment line: %w", err)
	}
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("alignment", line)

	for _, series := range []struct {
		name  string
		pts   plotter.XYs
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"hit", hits, hitColor, draw.CircleGlyph{}},
		{"miss", misses, missColor, draw.CrossGlyph{}},
	} {
		if len(series.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(series.pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s markers: %w", series.name, err)
		}
		sc.GlyphStyle.Color = series.color
		sc.GlyphStyle.Shape = series.shape
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(series.name, sc)
	}

	p.Legend.Top = true
	p.Legend.Left = true
	return p, nil
}

// chromaGrid adapts tick chroma vectors to plotter.GridXYZ
type chromaGrid struct {
	history []engine.TickResult
}

func (g chromaGrid) Dims() (c, r int)   { return len(g.history), chroma.NumBins }
func (g chromaGrid) Z(c, r int) float64 { return g.history[c].Chroma[r] }
func (g chromaGrid) X(c int) float64    { return g.history[c].Time }
func (g chromaGrid) Y(r int) float64    { return float64(r) }

// PlotChromagram draws the live chroma of every tick as a heat map with
// pitch-class labels
func PlotChromagram(history []engine.TickResult, title string) (*plot.Plot, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}

	pal := moreland.SmoothBlueRed().Palette(32)
	h := plotter.NewHeatMap(chromaGrid{history: history}, pal)
	h.Rasterized = true
	h.Min, h.Max = 0, 1

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time (s)"
	p.X.Padding = 0
	p.Y.Padding = 0
	p.Add(h)

	p.Y.Tick.Marker = plot.TickerFunc(func(_, _ float64) []plot.Tick {
		ticks := make([]plot.Tick, chroma.NumBins)
		for i, label := range chroma.Labels() {
			ticks[i] = plot.Tick{Label: label, Value: float64(i)}
		}
		return ticks
	})

	return p, nil
}

// WritePNG renders p as a PNG of the given size
func WritePNG(p *plot.Plot, w io.Writer, width, height vg.Length) error {
	img := vgimg.New(width, height)
	p.Draw(draw.New(img))

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write png: %w", err)
	}
	return nil
}

// SavePNG renders p to a PNG file
func SavePNG(p *plot.Plot, path string, width, height vg.Length) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WritePNG(p, f, width, height); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
