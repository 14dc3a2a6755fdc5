package plot

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ErrRenderFailure indicates the figure could not be drawn or written.
var ErrRenderFailure = errors.New("render failure")

// Options controls figure geometry and the title drawn above the panels.
type Options struct {
	Title       string
	Width       int
	PanelHeight int
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "SCReAM v2 Performance Analysis"
	}
	if o.Width <= 0 {
		o.Width = 1400
	}
	if o.PanelHeight <= 0 {
		o.PanelHeight = 320
	}
	return o
}

// pointStyle returns a style that renders points only (no connecting line).
func pointStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 0,
		DotWidth:    5,
		DotColor:    col,
	}
}

const titleBandHeight = 36

// Render draws the panels stacked vertically over a shared time axis, with
// loss-event markers on the overlay panel, and writes one PNG to outPath.
// The file is written via a temp file and rename so a failed render never
// leaves a partial artifact behind.
func Render(panels []Panel, events []LossEvent, outPath string, opts Options) error {
	opts = opts.withDefaults()
	if len(panels) == 0 {
		return fmt.Errorf("%w: no panels to draw", ErrRenderFailure)
	}

	minT, maxT := timeSpan(panels)
	if !maxT.After(minT) {
		// go-chart needs a non-zero X range
		maxT = minT.Add(1 * time.Second)
	}

	imgs := make([]image.Image, 0, len(panels))
	for i, p := range panels {
		bottom := i == len(panels)-1
		img, err := renderPanel(p, events, minT, maxT, bottom, opts)
		if err != nil {
			return err
		}
		imgs = append(imgs, img)
	}

	fig := composeFigure(imgs, opts)
	return writePNG(fig, outPath)
}

func renderPanel(p Panel, events []LossEvent, minT, maxT time.Time, bottom bool, opts Options) (image.Image, error) {
	series := make([]chart.Series, 0, len(p.Series)+2)
	minY, maxY := p.Series[0].Values[0], p.Series[0].Values[0]
	observe := func(vs []float64) {
		for _, v := range vs {
			if v < minY {
				minY = v
			}
			if v > maxY {
				maxY = v
			}
		}
	}

	for _, s := range p.Series {
		observe(s.Values)
		xs, ys := padSeries(s.Times, s.Values)
		series = append(series, chart.TimeSeries{Name: s.Name, XValues: xs, YValues: ys, Style: s.Style})
	}
	if p.RefLine != nil {
		observe([]float64{p.RefLine.Value})
		series = append(series, chart.TimeSeries{
			Name:    fmt.Sprintf("%s (%g ms)", p.RefLine.Name, p.RefLine.Value),
			XValues: []time.Time{minT, maxT},
			YValues: []float64{p.RefLine.Value, p.RefLine.Value},
			Style:   p.RefLine.Style,
		})
	}
	if p.LossOverlay && len(events) > 0 {
		xs := make([]time.Time, len(events))
		ys := make([]float64, len(events))
		for i, e := range events {
			xs[i] = e.Time
			ys[i] = e.BitrateKbps
		}
		observe(ys)
		if len(xs) == 1 {
			// duplicate the point in place; two coincident dots draw as one
			xs = append(xs, xs[0])
			ys = append(ys, ys[0])
		}
		series = append(series, chart.TimeSeries{
			Name:    "Packet Loss Event",
			XValues: xs,
			YValues: ys,
			Style:   pointStyle(chart.ColorRed),
		})
	}

	padBottom := 18
	if bottom {
		padBottom = 32
	}
	ch := chart.Chart{
		Title:      p.Title,
		Width:      opts.Width,
		Height:     opts.PanelHeight,
		Background: chart.Style{Padding: chart.Box{Top: 14, Left: 16, Right: 12, Bottom: padBottom}},
		XAxis: chart.XAxis{
			Ticks: timeTicks(minT, maxT, bottom),
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(minT),
				Max: chart.TimeToFloat64(maxT),
			},
		},
		YAxis:  chart.YAxis{Name: p.YLabel, Range: yRange(minY, maxY)},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("%w: panel %q: %v", ErrRenderFailure, p.Title, err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("%w: panel %q: %v", ErrRenderFailure, p.Title, err)
	}
	return img, nil
}

// timeSpan returns the min and max time across all panel series.
func timeSpan(panels []Panel) (time.Time, time.Time) {
	var minT, maxT time.Time
	first := true
	for _, p := range panels {
		for _, s := range p.Series {
			for _, t := range s.Times {
				if first {
					minT, maxT = t, t
					first = false
					continue
				}
				if t.Before(minT) {
					minT = t
				}
				if t.After(maxT) {
					maxT = t
				}
			}
		}
	}
	return minT, maxT
}

// padSeries guarantees at least two X values, which go-chart requires.
func padSeries(ts []time.Time, vs []float64) ([]time.Time, []float64) {
	if len(ts) != 1 {
		return ts, vs
	}
	return []time.Time{ts[0], ts[0].Add(1 * time.Second)}, []float64{vs[0], vs[0]}
}

// yRange widens degenerate value ranges and adds a small margin so lines
// don't hug the panel edges.
func yRange(minY, maxY float64) *chart.ContinuousRange {
	if maxY <= minY {
		return &chart.ContinuousRange{Min: minY - 1, Max: maxY + 1}
	}
	pad := (maxY - minY) * 0.05
	lo := minY - pad
	if minY >= 0 && lo < 0 {
		lo = 0
	}
	return &chart.ContinuousRange{Min: lo, Max: maxY + pad}
}

// timeTicks builds evenly stepped ticks across [minT, maxT]. The bottom
// panel labels them hour:minute:second; upper panels keep the tick marks but
// drop the labels, mirroring a shared x-axis.
func timeTicks(minT, maxT time.Time, labeled bool) []chart.Tick {
	span := maxT.Sub(minT)
	step := pickTimeStep(span)

	// align the first tick down to a step boundary (UTC avoids DST jumps)
	st := int64(step.Seconds())
	if st <= 0 {
		st = 1
	}
	aligned := time.Unix((minT.UTC().Unix()/st)*st, 0).UTC()

	var ticks []chart.Tick
	for t := aligned; !t.After(maxT.UTC().Add(step)); t = t.Add(step) {
		label := ""
		if labeled {
			label = t.Local().Format("15:04:05")
		}
		ticks = append(ticks, chart.Tick{Value: chart.TimeToFloat64(t), Label: label})
		if len(ticks) > 20 { // keep it readable
			break
		}
	}
	return ticks
}

func pickTimeStep(span time.Duration) time.Duration {
	switch {
	case span <= 30*time.Second:
		return 5 * time.Second
	case span <= 2*time.Minute:
		return 10 * time.Second
	case span <= 10*time.Minute:
		return 1 * time.Minute
	case span <= 30*time.Minute:
		return 5 * time.Minute
	case span <= 2*time.Hour:
		return 10 * time.Minute
	case span <= 6*time.Hour:
		return 30 * time.Minute
	default:
		return 1 * time.Hour
	}
}

// composeFigure stacks the panel images under a title band.
func composeFigure(imgs []image.Image, opts Options) *image.RGBA {
	h := titleBandHeight
	for _, img := range imgs {
		h += img.Bounds().Dy()
	}
	fig := image.NewRGBA(image.Rect(0, 0, opts.Width, h))
	draw.Draw(fig, fig.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	drawTitle(fig, opts.Title, opts.Width)

	y := titleBandHeight
	for _, img := range imgs {
		b := img.Bounds()
		draw.Draw(fig, image.Rect(0, y, b.Dx(), y+b.Dy()), img, b.Min, draw.Src)
		y += b.Dy()
	}
	return fig
}

// drawTitle centers the figure title in the top band.
func drawTitle(dst *image.RGBA, text string, width int) {
	face := basicfont.Face7x13
	dr := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{R: 40, G: 40, B: 40, A: 255}),
		Face: face,
	}
	tw := dr.MeasureString(text).Ceil()
	x := (width - tw) / 2
	if x < 8 {
		x = 8
	}
	y := (titleBandHeight + face.Metrics().Ascent.Ceil()) / 2
	dr.Dot = fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)}
	dr.DrawString(text)
}

// writePNG encodes the figure to a temp file in the target directory and
// renames it into place, so outPath either holds a complete image or is
// untouched.
func writePNG(img image.Image, outPath string) error {
	dir := filepath.Dir(outPath)
	tmp, err := os.CreateTemp(dir, ".screamplot-*.png")
	if err != nil {
		return fmt.Errorf("%w: creating output file: %v", ErrRenderFailure, err)
	}
	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: encoding png: %v", ErrRenderFailure, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: writing output file: %v", ErrRenderFailure, err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: moving output into place: %v", ErrRenderFailure, err)
	}
	return nil
}
