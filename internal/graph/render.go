package graph

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/i474232898/sensor-assistant/internal/sensor"
)

const (
	maxTickLabels = 8
	dpi           = 96
)

var metricColors = map[sensor.Metric]color.Color{
	sensor.Temperature:    color.RGBA{R: 31, G: 119, B: 180, A: 255},
	sensor.Humidity:       color.RGBA{R: 44, G: 160, B: 44, A: 255},
	sensor.AirQuality:     color.RGBA{R: 214, G: 39, B: 40, A: 255},
	sensor.LightIntensity: color.RGBA{R: 230, G: 171, B: 2, A: 255},
}

func colorOf(m sensor.Metric) color.Color {
	if c, ok := metricColors[m]; ok {
		return c
	}
	return color.Black
}

// Segments splits values at NaN gaps into runs of contiguous points. The
// x coordinate of each point is its index in values.
func Segments(values []float64) []plotter.XYs {
	var (
		out []plotter.XYs
		cur plotter.XYs
	)
	for i, v := range values {
		if math.IsNaN(v) {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, plotter.XY{X: float64(i), Y: v})
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// addSeries draws s onto p, one line per contiguous run. Isolated points
// are drawn as markers so they stay visible.
func addSeries(p *plot.Plot, s sensor.Series) error {
	c := colorOf(s.Metric)
	var legend plot.Thumbnailer

	for _, seg := range Segments(s.Values) {
		if len(seg) == 1 {
			sc, err := plotter.NewScatter(seg)
			if err != nil {
				return fmt.Errorf("scatter %s: %w", s.Metric, err)
			}
			sc.GlyphStyle.Color = c
			sc.GlyphStyle.Shape = draw.CircleGlyph{}
			sc.GlyphStyle.Radius = vg.Points(2)
			p.Add(sc)
			if legend == nil {
				legend = sc
			}
			continue
		}

		l, err := plotter.NewLine(seg)
		if err != nil {
			return fmt.Errorf("line %s: %w", s.Metric, err)
		}
		l.LineStyle.Color = c
		l.LineStyle.Width = vg.Points(1.5)
		p.Add(l)
		if legend == nil {
			legend = l
		}
	}

	if legend != nil {
		p.Legend.Add(s.Metric.Label(), legend)
	}
	return nil
}

// timeTicks places at most maxTickLabels labelled ticks across the samples.
func timeTicks(labels []string, withText bool) plot.ConstantTicks {
	n := len(labels)
	if n == 0 {
		return nil
	}
	step := 1
	if n > maxTickLabels {
		step = int(math.Ceil(float64(n) / maxTickLabels))
	}
	var ticks plot.ConstantTicks
	for i := 0; i < n; i += step {
		t := plot.Tick{Value: float64(i)}
		if withText {
			t.Label = labels[i]
		}
		ticks = append(ticks, t)
	}
	return ticks
}

func newPlot(title string, s sensor.Series, xLabels bool) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = s.Metric.Label()
	p.Y.Label.TextStyle.Color = colorOf(s.Metric)
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	if err := addSeries(p, s); err != nil {
		return nil, err
	}

	p.X.Tick.Marker = timeTicks(s.Labels, xLabels)
	if xLabels {
		p.X.Label.Text = "Time"
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}
	if n := len(s.Values); n > 1 {
		p.X.Min, p.X.Max = 0, float64(n-1)
	}
	return p, nil
}

func writePNG(w io.Writer, img *vgimg.Canvas) error {
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// RenderSingle writes a PNG of one series over time.
func RenderSingle(w io.Writer, s sensor.Series, width, height vg.Length) error {
	p, err := newPlot(s.Metric.Title(), s, true)
	if err != nil {
		return err
	}

	img := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	p.Draw(draw.New(img))
	return writePNG(w, img)
}

// RenderDual writes a PNG with two series stacked over a shared time axis,
// each with its own y axis.
func RenderDual(w io.Writer, left, right sensor.Series, width, height vg.Length) error {
	title := fmt.Sprintf("%s and %s Over Time", left.Metric.Label(), right.Metric.Label())
	top, err := newPlot(title, left, false)
	if err != nil {
		return err
	}
	bottom, err := newPlot("", right, true)
	if err != nil {
		return err
	}

	// Both panels must span the same samples for the time axis to line up.
	if n := max(len(left.Values), len(right.Values)); n > 1 {
		top.X.Min, top.X.Max = 0, float64(n-1)
		bottom.X.Min, bottom.X.Max = 0, float64(n-1)
	}

	img := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
		PadY:      vg.Millimeter * 3,
	}
	canvases := plot.Align([][]*plot.Plot{{top}, {bottom}}, tiles, dc)
	top.Draw(canvases[0][0])
	bottom.Draw(canvases[1][0])
	return writePNG(w, img)
}

// Summary describes a rendered series for text surfaces.
type Summary struct {
	Label  string
	Points int
	Min    float64
	Max    float64
	Last   float64
}

// Summarize computes the summary of s; ok is false when s has no values.
func Summarize(s sensor.Series) (sum Summary, ok bool) {
	sum = Summary{Label: s.Metric.Label(), Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range s.Values {
		if math.IsNaN(v) {
			continue
		}
		sum.Points++
		sum.Min = math.Min(sum.Min, v)
		sum.Max = math.Max(sum.Max, v)
		sum.Last = v
	}
	if sum.Points == 0 {
		return Summary{Label: sum.Label}, false
	}
	return sum, true
}
