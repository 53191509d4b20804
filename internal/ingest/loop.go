package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/i474232898/sensor-assistant/internal/sensor"
)

// DefaultMaxLineBytes bounds one device line, newline included.
const DefaultMaxLineBytes = 4096

// ErrLineTooLong is reported for a line longer than the configured limit.
var ErrLineTooLong = errors.New("line too long")

// Mirror receives every reading after it has been stored.
type Mirror interface {
	Publish(ctx context.Context, s sensor.Sample) error
}

// Stats counts what the loop has seen since it started.
type Stats struct {
	received atomic.Int64
	stored   atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Received int64 `json:"received"`
	Stored   int64 `json:"stored"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received: s.received.Load(),
		Stored:   s.stored.Load(),
		Skipped:  s.skipped.Load(),
		Failed:   s.failed.Load(),
	}
}

// Loop turns device lines into stored readings.
type Loop struct {
	store      sensor.Store
	logger     *slog.Logger
	now        func() time.Time
	mirrors    []Mirror
	errorPause time.Duration
	maxLine    int

	stats Stats
}

// Option configures a Loop.
type Option func(*Loop)

// WithClock overrides the wall clock used to derive storage keys.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) { l.now = now }
}

// WithMirror adds a destination that receives every stored reading.
func WithMirror(m Mirror) Option {
	return func(l *Loop) { l.mirrors = append(l.mirrors, m) }
}

// WithErrorPause sets how long Run waits after a read error.
func WithErrorPause(d time.Duration) Option {
	return func(l *Loop) { l.errorPause = d }
}

// WithMaxLineBytes caps the length of one line. Longer lines are dropped.
func WithMaxLineBytes(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.maxLine = n
		}
	}
}

// New creates a Loop that writes into store.
func New(store sensor.Store, logger *slog.Logger, opts ...Option) *Loop {
	l := &Loop{
		store:      store,
		logger:     logger,
		now:        time.Now,
		errorPause: time.Second,
		maxLine:    DefaultMaxLineBytes,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Stats exposes the loop counters.
func (l *Loop) Stats() *Stats { return &l.stats }

// HandleLine processes one raw line. Blank lines are skipped without
// touching the store. A returned error means nothing was stored; mirror
// failures are logged and do not fail the line.
func (l *Loop) HandleLine(ctx context.Context, line []byte) error {
	l.stats.received.Add(1)

	r, err := sensor.ParseLine(line)
	if errors.Is(err, sensor.ErrEmptyLine) {
		l.stats.skipped.Add(1)
		return nil
	}
	if err != nil {
		l.stats.failed.Add(1)
		return fmt.Errorf("parse line: %w", err)
	}

	date, clock := sensor.Keys(l.now())
	if err := l.store.Put(ctx, date, clock, r); err != nil {
		l.stats.failed.Add(1)
		return fmt.Errorf("store reading %s %s: %w", date, clock, err)
	}
	l.stats.stored.Add(1)
	l.logger.Info("stored reading", "date", date, "time", clock, "reading", r.String())

	sample := sensor.Sample{Date: date, Time: clock, Reading: r}
	for _, m := range l.mirrors {
		if err := m.Publish(ctx, sample); err != nil {
			l.logger.Warn("mirror reading failed", "date", date, "time", clock, "error", err)
		}
	}
	return nil
}

// Run reads newline-terminated lines from r until EOF or ctx is done.
// Bad lines, overlong lines and read errors are logged and never stop the
// loop.
func (l *Loop) Run(ctx context.Context, r io.Reader) error {
	reader := bufio.NewReaderSize(r, l.maxLine)
	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := reader.ReadSlice('\n')
		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			l.stats.received.Add(1)
			l.stats.failed.Add(1)
			l.logger.Warn("dropped line", "error", ErrLineTooLong, "limit", l.maxLine, "line", truncate(line, 120))
			err = skipLine(reader)
		case len(line) > 0:
			if herr := l.HandleLine(ctx, line); herr != nil {
				l.logger.Warn("dropped line", "error", herr, "line", truncate(line, 120))
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			l.logger.Info("input closed", "stats", l.stats.Snapshot())
			return nil
		case ctx.Err() != nil:
			return nil
		}

		l.logger.Error("read failed", "error", err, "pause", l.errorPause)
		if !l.pause(ctx) {
			return nil
		}
	}
}

// skipLine discards input up to and including the next newline.
func skipLine(r *bufio.Reader) error {
	for {
		_, err := r.ReadSlice('\n')
		if !errors.Is(err, bufio.ErrBufferFull) {
			return err
		}
	}
}

func (l *Loop) pause(ctx context.Context) bool {
	if l.errorPause <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(l.errorPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// ReportStats logs the counters. It has the shape of a scheduler job.
func (l *Loop) ReportStats(ctx context.Context) error {
	l.logger.Info("ingestion stats", "stats", l.stats.Snapshot())
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
