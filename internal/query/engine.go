package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/i474232898/sensor-assistant/internal/assistant"
	"github.com/i474232898/sensor-assistant/internal/sensor"
)

const graphPrompt = "Please specify what to graph (temperature, humidity, air quality, light intensity)"

var errNoRenderer = errors.New("no graph panel available")

// Renderer draws graphs and returns where the image ended up.
type Renderer interface {
	Single(ctx context.Context, s sensor.Series) (string, error)
	Dual(ctx context.Context, left, right sensor.Series) (string, error)
}

// Snapshot is the loaded store data every query in a session is answered
// from until the next reload.
type Snapshot struct {
	Dates    []string
	Samples  []sensor.Sample
	Averages sensor.Averages
	LoadedAt time.Time
}

// NewSnapshot flattens and aggregates doc.
func NewSnapshot(doc sensor.Document, loadedAt time.Time) *Snapshot {
	samples := doc.Samples()
	return &Snapshot{
		Dates:    doc.Dates(),
		Samples:  samples,
		Averages: sensor.ComputeAverages(samples),
		LoadedAt: loadedAt,
	}
}

// Context is the model context for this snapshot.
func (s *Snapshot) Context() Context {
	return Context{Dates: s.Dates, Averages: s.Averages}
}

// Response is the answer to one query.
type Response struct {
	Text string `json:"response"`
	// GraphPath is set when a graph was rendered.
	GraphPath string `json:"graph,omitempty"`
	Intent    Intent `json:"-"`
}

// Engine answers queries against a Snapshot.
type Engine struct {
	model    assistant.Model
	renderer Renderer
	logger   *slog.Logger
}

// NewEngine builds an engine. model may be nil, in which case open-ended
// questions get the fallback answer; renderer may be nil when no graph
// surface exists.
func NewEngine(model assistant.Model, renderer Renderer, logger *slog.Logger) *Engine {
	return &Engine{model: model, renderer: renderer, logger: logger}
}

// Answer classifies q and produces the response. It never fails: every
// error becomes text for the user.
func (e *Engine) Answer(ctx context.Context, snap *Snapshot, q string) Response {
	if snap == nil {
		snap = NewSnapshot(sensor.Document{}, time.Now())
	}

	intent := Classify(q)
	e.logger.Debug("classified query", "kind", intent.Kind.String(), "topic", intent.Topic.String(), "metrics", intent.Metrics)

	var resp Response
	switch intent.Kind {
	case KindGraph:
		resp = e.graph(ctx, snap, intent)
	case KindStatistic:
		resp = Response{Text: statistic(snap, intent.Metrics[0])}
	default:
		resp = Response{Text: e.openEnded(ctx, snap, intent.Topic, q)}
	}
	resp.Intent = intent
	return resp
}

func (e *Engine) graph(ctx context.Context, snap *Snapshot, intent Intent) Response {
	if len(intent.Metrics) == 0 {
		return Response{Text: graphPrompt}
	}
	if e.renderer == nil {
		return Response{Text: fmt.Sprintf("Error: could not render graph (%v)", errNoRenderer)}
	}

	var (
		path string
		err  error
		text string
	)
	if len(intent.Metrics) == 2 {
		left := sensor.BuildSeries(snap.Samples, intent.Metrics[0])
		right := sensor.BuildSeries(snap.Samples, intent.Metrics[1])
		path, err = e.renderer.Dual(ctx, left, right)
		text = fmt.Sprintf("%s and %s graph generated!", intent.Metrics[0].Label(), intent.Metrics[1].Label())
	} else {
		m := intent.Metrics[0]
		path, err = e.renderer.Single(ctx, sensor.BuildSeries(snap.Samples, m))
		text = m.Title() + " graph generated!"
	}
	if err != nil {
		e.logger.Error("render graph failed", "metrics", intent.Metrics, "error", err)
		return Response{Text: fmt.Sprintf("Error: could not render graph (%v)", err)}
	}
	return Response{Text: text, GraphPath: path}
}

func statistic(snap *Snapshot, m sensor.Metric) string {
	avg := snap.Averages.Of(m)
	if avg == nil {
		return fmt.Sprintf("No valid %s data", m.Noun())
	}
	switch m {
	case sensor.Temperature:
		return fmt.Sprintf("The average temperature is %.1f°C", *avg)
	case sensor.Humidity:
		return fmt.Sprintf("The average humidity is %.1f%%", *avg)
	case sensor.AirQuality:
		return fmt.Sprintf("The average air quality (PM2.5) is %.1f µg/m³", *avg)
	default:
		return fmt.Sprintf("The average light intensity is %.1f lux", *avg)
	}
}

func (e *Engine) openEnded(ctx context.Context, snap *Snapshot, topic Topic, q string) string {
	c := snap.Context()
	fallback := Fallback(topic, c)
	if e.model == nil {
		return fallback
	}

	answer, err := e.model.Complete(ctx, SystemPrompt(e.model.Name(), c), UserPrompt(topic, q, c))
	if err != nil {
		e.logger.Warn("model call failed, using fallback", "model", e.model.Name(), "topic", topic.String(), "error", err)
		return fmt.Sprintf("Error: Could not process with %s API (%v). Using fallback:\n%s", e.model.Name(), err, fallback)
	}
	return answer
}
