package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/sensor-assistant/internal/sensor"
	"github.com/i474232898/sensor-assistant/internal/store"
)

// Session owns the loaded data for one interactive user and answers their
// queries one at a time.
type Session struct {
	ID string

	store  sensor.Store
	engine *Engine
	logger *slog.Logger
	name   string
	source string
	now    func() time.Time

	// askMu serialises queries; mu guards the fields below it.
	askMu sync.Mutex

	mu      sync.Mutex
	snap    *Snapshot
	notices []string
	// lastLoadErr remembers the reported load failure so it is shown once.
	lastLoadErr string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithAssistantName sets the name used in the greeting.
func WithAssistantName(name string) SessionOption {
	return func(s *Session) { s.name = name }
}

// WithSource names the store location in load error notices.
func WithSource(source string) SessionOption {
	return func(s *Session) { s.source = source }
}

// NewSession creates a session with an empty snapshot. Call Reload to load data.
func NewSession(st sensor.Store, engine *Engine, logger *slog.Logger, opts ...SessionOption) *Session {
	s := &Session{
		ID:     uuid.NewString(),
		store:  st,
		engine: engine,
		logger: logger,
		name:   "Assistant",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap = NewSnapshot(sensor.Document{}, s.now())
	s.logger = s.logger.With("session", s.ID)
	return s
}

// Reload replaces the snapshot with the store's current contents. A missing
// or malformed store leaves the session with an empty data set and queues a
// notice the first time that failure is seen.
func (s *Session) Reload(ctx context.Context) error {
	doc, err := s.store.Load(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		doc = sensor.Document{}
		msg := s.loadErrorNotice(err)
		if msg != s.lastLoadErr {
			s.notices = append(s.notices, msg)
			s.lastLoadErr = msg
		}
		s.logger.Warn("load sensor data failed", "error", err)
	} else {
		s.lastLoadErr = ""
	}

	s.snap = NewSnapshot(doc, s.now())
	s.logger.Info("sensor data loaded", "dates", len(s.snap.Dates), "samples", len(s.snap.Samples))
	return err
}

func (s *Session) loadErrorNotice(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Sprintf("Error: Could not find file at %s", s.source)
	case errors.Is(err, store.ErrEmpty):
		return fmt.Sprintf("Error: No sensor readings stored yet in %s", s.source)
	case errors.Is(err, store.ErrMalformed):
		return "Error: Invalid JSON format in sensor data file"
	default:
		return fmt.Sprintf("Error: Could not load sensor data (%v)", err)
	}
}

// Notify queues a one-time message for the user.
func (s *Session) Notify(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, msg)
}

// Notices returns and clears the pending messages.
func (s *Session) Notices() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

// Snapshot returns the data queries are currently answered from.
func (s *Session) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Name is the assistant's display name.
func (s *Session) Name() string { return s.name }

// Greeting is the first message shown to the user.
func (s *Session) Greeting() string {
	snap := s.Snapshot()
	return fmt.Sprintf("Hello! I'm %s. I can analyze temperature, humidity, air quality, and light intensity data (%s). "+
		"Ask me about climate, crops, air, light, or request graphs!", s.name, DescribeDates(snap.Dates))
}

// Ask answers q. Concurrent callers are served one at a time.
func (s *Session) Ask(ctx context.Context, q string) Response {
	q = strings.TrimSpace(q)
	if q == "" {
		return Response{}
	}

	s.askMu.Lock()
	defer s.askMu.Unlock()

	start := s.now()
	resp := s.engine.Answer(ctx, s.Snapshot(), q)
	s.logger.Info("answered query",
		"kind", resp.Intent.Kind.String(),
		"graph", resp.GraphPath != "",
		"took", s.now().Sub(start),
	)
	return resp
}
