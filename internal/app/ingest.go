package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/i474232898/sensor-assistant/internal/config"
	"github.com/i474232898/sensor-assistant/internal/ingest"
	"github.com/i474232898/sensor-assistant/internal/mqtt"
	"github.com/i474232898/sensor-assistant/internal/scheduler"
)

// IngestOptions selects the input of an ingestion run.
type IngestOptions struct {
	Port string
	Baud int
	// From replays a capture file instead of reading the serial port;
	// "-" means stdin.
	From string
}

// RunIngest reads readings until the input ends or ctx is done. Only
// failing to open the input is fatal.
func RunIngest(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger, opts IngestOptions) (ingest.StatsSnapshot, error) {
	backend, err := OpenBackend(ctx, cfg.Store)
	if err != nil {
		return ingest.StatsSnapshot{}, err
	}
	defer backend.Close()

	loopOpts := []ingest.Option{ingest.WithErrorPause(cfg.Ingest.ErrorPause)}
	if cfg.MQTTEnabled() {
		pub := mqtt.NewPublisher(cfg.MQTT, logger)
		defer pub.Disconnect()
		go func() {
			if err := pub.Connect(ctx); err != nil {
				logger.Warn("mqtt mirror not connected", "broker", cfg.MQTT.Broker, "error", err)
			}
		}()
		loopOpts = append(loopOpts, ingest.WithMirror(pub))
	}
	loop := ingest.New(backend.Store, logger, loopOpts...)

	if cfg.Ingest.StatsInterval > 0 {
		sched := scheduler.New(logger)
		if err := sched.Add(scheduler.Job{
			Name:     "ingest-stats",
			Interval: cfg.Ingest.StatsInterval,
			Run:      loop.ReportStats,
		}); err != nil {
			return ingest.StatsSnapshot{}, err
		}
		if err := sched.Start(); err != nil {
			return ingest.StatsSnapshot{}, err
		}
		defer sched.Stop()
	}

	r, closeInput, err := openInput(ctx, opts)
	if err != nil {
		return ingest.StatsSnapshot{}, err
	}
	defer closeInput()

	logger.Info("ingestion started", "driver", cfg.Store.Driver, "source", backend.Source, "input", inputName(opts))
	if err := loop.Run(ctx, r); err != nil {
		return loop.Stats().Snapshot(), err
	}

	stats := loop.Stats().Snapshot()
	if backend.Source == "" {
		doc, _ := backend.Store.Load(ctx)
		logger.Info("dry run finished", "dates", len(doc.Dates()), "readings", doc.Len())
	}
	logger.Info("ingestion stopped", "stats", stats)
	return stats, nil
}

func openInput(ctx context.Context, opts IngestOptions) (io.Reader, func(), error) {
	switch opts.From {
	case "":
		port, err := ingest.OpenSerial(opts.Port, opts.Baud)
		if err != nil {
			return nil, nil, err
		}
		// Closing the port unblocks a pending Read on shutdown.
		stop := context.AfterFunc(ctx, func() { port.Close() })
		return port, func() {
			if stop() {
				port.Close()
			}
		}, nil
	case "-":
		// A terminal read does not return when stdin is closed.
		return &contextReader{ctx: ctx, r: os.Stdin}, func() {}, nil
	default:
		f, err := os.Open(opts.From)
		if err != nil {
			return nil, nil, fmt.Errorf("open capture: %w", err)
		}
		return f, func() { f.Close() }, nil
	}
}

// contextReader stops blocking once ctx is done. A read still pending on the
// underlying reader is abandoned and its data is lost.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

type readResult struct {
	n   int
	err error
}

func (c *contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	buf := make([]byte, len(p))
	done := make(chan readResult, 1)
	go func() {
		n, err := c.r.Read(buf)
		done <- readResult{n: n, err: err}
	}()
	select {
	case res := <-done:
		return copy(p, buf[:res.n]), res.err
	case <-c.ctx.Done():
		return 0, c.ctx.Err()
	}
}

func inputName(opts IngestOptions) string {
	switch opts.From {
	case "":
		return fmt.Sprintf("%s@%d", opts.Port, opts.Baud)
	case "-":
		return "stdin"
	default:
		return opts.From
	}
}
