package graph

import (
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/i474232898/sensor-assistant/internal/sensor"
)

// chartLabelWidth is the room asciigraph takes left of the plot for the
// y-axis labels.
const chartLabelWidth = 10

var chartColors = map[sensor.Metric]asciigraph.AnsiColor{
	sensor.Temperature:    asciigraph.SteelBlue,
	sensor.Humidity:       asciigraph.Green,
	sensor.AirQuality:     asciigraph.Red,
	sensor.LightIntensity: asciigraph.Goldenrod,
}

// Chart draws each series as a text line chart stacked top to bottom, sized
// to fit width columns and height rows overall. Gaps in a series stay gaps.
func Chart(series []sensor.Series, width, height int) string {
	if len(series) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	// A plot of n rows takes n+1 lines, then a caption and a separator.
	rows := height/len(series) - 3
	if rows < 1 {
		rows = 1
	}
	cols := width - chartLabelWidth
	if cols < 2 {
		cols = 2
	}

	charts := make([]string, 0, len(series))
	for _, s := range series {
		charts = append(charts, chartOne(s, cols, rows))
	}
	return strings.Join(charts, "\n\n")
}

func chartOne(s sensor.Series, cols, rows int) string {
	title := s.Metric.Title()
	if s.Present() == 0 {
		// asciigraph cannot scale a series with no values.
		return title + "\nno readings"
	}

	opts := []asciigraph.Option{
		asciigraph.Height(rows),
		asciigraph.Precision(1),
		asciigraph.Caption(title),
	}
	if c, ok := chartColors[s.Metric]; ok {
		opts = append(opts, asciigraph.SeriesColors(c))
	}
	return asciigraph.Plot(fitColumns(s.Values, cols), opts...)
}

// fitColumns averages values into at most cols buckets. A bucket with no
// values is NaN, so gaps survive and every value lands in some bucket.
func fitColumns(values []float64, cols int) []float64 {
	if len(values) <= cols {
		return values
	}
	out := make([]float64, cols)
	for i := range out {
		lo := i * len(values) / cols
		hi := (i + 1) * len(values) / cols
		var (
			sum float64
			n   int
		)
		for _, v := range values[lo:hi] {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		out[i] = math.NaN()
		if n > 0 {
			out[i] = sum / float64(n)
		}
	}
	return out
}
