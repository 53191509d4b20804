package graph

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/i474232898/sensor-assistant/internal/sensor"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func series(m sensor.Metric, values ...float64) sensor.Series {
	s := sensor.Series{Metric: m, Values: values}
	for i := range values {
		s.Labels = append(s.Labels, "2024-01-01 12:0"+string(rune('0'+i%10)))
	}
	return s
}

func TestSegments(t *testing.T) {
	nan := math.NaN()

	got := Segments([]float64{1, 2, nan, 4, nan, nan, 7, 8, 9})
	want := []plotter.XYs{
		{{X: 0, Y: 1}, {X: 1, Y: 2}},
		{{X: 3, Y: 4}},
		{{X: 6, Y: 7}, {X: 7, Y: 8}, {X: 8, Y: 9}},
	}
	assert.Equal(t, want, got)

	assert.Empty(t, Segments(nil))
	assert.Empty(t, Segments([]float64{nan, nan}))
}

func TestTimeTicksThinsLabels(t *testing.T) {
	labels := make([]string, 20)
	for i := range labels {
		labels[i] = "t"
	}

	ticks := timeTicks(labels, true)
	assert.LessOrEqual(t, len(ticks), maxTickLabels)
	assert.Equal(t, 0.0, ticks[0].Value)
	assert.Equal(t, "t", ticks[0].Label)

	for _, tk := range timeTicks(labels, false) {
		assert.Empty(t, tk.Label)
	}
}

func TestRenderSingleWritesPNG(t *testing.T) {
	tests := []struct {
		name string
		s    sensor.Series
	}{
		{"full", series(sensor.Temperature, 20, 21.5, 22, 21)},
		{"gaps", series(sensor.Humidity, 60, math.NaN(), 62, math.NaN(), 65)},
		{"single point", series(sensor.Temperature, 20)},
		{"no samples", sensor.Series{Metric: sensor.LightIntensity}},
		{"all missing", series(sensor.Temperature, math.NaN(), math.NaN())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, RenderSingle(&buf, tt.s, 10*vg.Centimeter, 6*vg.Centimeter))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}
}

func TestRenderDualWritesPNG(t *testing.T) {
	var buf bytes.Buffer
	left := series(sensor.Temperature, 20, math.NaN(), 22)
	right := series(sensor.Humidity, 55, 60, 58)

	require.NoError(t, RenderDual(&buf, left, right, 10*vg.Centimeter, 8*vg.Centimeter))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestSummarize(t *testing.T) {
	sum, ok := Summarize(series(sensor.Temperature, 21, math.NaN(), 19, 23, math.NaN()))
	require.True(t, ok)
	assert.Equal(t, Summary{Label: sensor.Temperature.Label(), Points: 3, Min: 19, Max: 23, Last: 23}, sum)

	sum, ok = Summarize(series(sensor.Temperature, math.NaN()))
	assert.False(t, ok)
	assert.Equal(t, 0, sum.Points)
}

func TestPanelKeepsOnlyLatestGraph(t *testing.T) {
	dir := t.TempDir()
	p := NewPanel(dir, 8, 6, testLogger())

	_, ok := p.Latest()
	assert.False(t, ok)

	path, err := p.Single(context.Background(), series(sensor.Temperature, 20, 21))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), path)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	path, err = p.Dual(context.Background(),
		series(sensor.Temperature, 20, 21), series(sensor.Humidity, 50, 55))
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, FileName, entries[0].Name())

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, path, latest)
	sums := p.Summaries()
	require.Len(t, sums, 2)
	assert.Equal(t, sensor.Humidity.Label(), sums[1].Label)
	drawn := p.Series()
	require.Len(t, drawn, 2)
	assert.Equal(t, sensor.Humidity, drawn[1].Metric)

	require.NoError(t, p.Clear())
	_, ok = p.Latest()
	assert.False(t, ok)
	assert.Empty(t, p.Series())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestPanelCancelledContext(t *testing.T) {
	p := NewPanel(t.TempDir(), 8, 6, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Single(ctx, series(sensor.Temperature, 1, 2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChartDrawsEverySeries(t *testing.T) {
	out := Chart([]sensor.Series{
		series(sensor.Temperature, 20, 21, math.NaN(), 23),
		series(sensor.Humidity, 50, 55, 60),
	}, 40, 20)

	assert.Contains(t, out, "Temperature Over Time")
	assert.Contains(t, out, "Humidity Over Time")
	assert.Contains(t, out, "┤")
	// The gap ends and restarts the temperature line.
	assert.Contains(t, out, "╴")
	assert.Contains(t, out, "╶")
}

func TestChartWithoutReadings(t *testing.T) {
	out := Chart([]sensor.Series{series(sensor.AirQuality, math.NaN(), math.NaN())}, 40, 10)
	assert.Equal(t, "Air Quality Over Time\nno readings", out)

	assert.Empty(t, Chart(nil, 40, 10))
	assert.Empty(t, Chart([]sensor.Series{series(sensor.Humidity, 1)}, 0, 10))
}

func TestFitColumns(t *testing.T) {
	values := []float64{1, 3, math.NaN(), math.NaN(), 5, math.NaN()}
	out := fitColumns(values, 3)
	require.Len(t, out, 3)
	assert.Equal(t, 2.0, out[0])
	assert.True(t, math.IsNaN(out[1]))
	assert.Equal(t, 5.0, out[2])

	short := []float64{1, 2}
	assert.Equal(t, short, fitColumns(short, 10))
}
