package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot/vg"

	"github.com/i474232898/sensor-assistant/internal/sensor"
)

// FileName is the image every render replaces.
const FileName = "graph.png"

// Panel renders graphs into a directory that only ever holds the latest one.
type Panel struct {
	dir    string
	width  vg.Length
	height vg.Length
	logger *slog.Logger

	mu        sync.Mutex
	latest    string
	series    []sensor.Series
	summaries []Summary
}

// NewPanel creates a panel writing to dir with the given size in centimetres.
func NewPanel(dir string, widthCm, heightCm float64, logger *slog.Logger) *Panel {
	return &Panel{
		dir:    dir,
		width:  vg.Length(widthCm) * vg.Centimeter,
		height: vg.Length(heightCm) * vg.Centimeter,
		logger: logger,
	}
}

// Single renders one series.
func (p *Panel) Single(ctx context.Context, s sensor.Series) (string, error) {
	return p.render(ctx, []sensor.Series{s}, func(w io.Writer) error {
		return RenderSingle(w, s, p.width, p.height)
	})
}

// Dual renders two series over a shared time axis.
func (p *Panel) Dual(ctx context.Context, left, right sensor.Series) (string, error) {
	return p.render(ctx, []sensor.Series{left, right}, func(w io.Writer) error {
		return RenderDual(w, left, right, p.width, p.height)
	})
}

// Latest returns the path of the current graph, if any.
func (p *Panel) Latest() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.latest != ""
}

// Summaries describes the series in the current graph.
func (p *Panel) Summaries() []Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Summary(nil), p.summaries...)
}

// Series returns the data of the current graph, for drawing it elsewhere.
func (p *Panel) Series() []sensor.Series {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sensor.Series(nil), p.series...)
}

// Clear removes the current graph.
func (p *Panel) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clearLocked()
}

func (p *Panel) clearLocked() error {
	p.latest = ""
	p.series = nil
	p.summaries = nil
	err := os.Remove(filepath.Join(p.dir, FileName))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove previous graph: %w", err)
	}
	return nil
}

func (p *Panel) render(ctx context.Context, series []sensor.Series, draw func(io.Writer) error) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return "", fmt.Errorf("create graph dir: %w", err)
	}
	if err := p.clearLocked(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(p.dir, ".graph-*.png")
	if err != nil {
		return "", fmt.Errorf("create graph file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := draw(tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close graph file: %w", err)
	}

	path := filepath.Join(p.dir, FileName)
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("place graph file: %w", err)
	}

	p.latest = path
	p.series = series
	for _, s := range series {
		if sum, ok := Summarize(s); ok {
			p.summaries = append(p.summaries, sum)
		} else {
			p.summaries = append(p.summaries, Summary{Label: sum.Label})
		}
	}
	p.logger.Info("graph rendered", "path", path, "series", len(series))
	return path, nil
}
