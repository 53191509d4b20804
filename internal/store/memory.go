package store

import (
	"context"
	"sync"

	"github.com/i474232898/sensor-assistant/internal/sensor"
)

// MemoryStore is a concurrency-safe in-memory implementation of sensor.Store.
type MemoryStore struct {
	mu sync.RWMutex

	// nil until the first Put, so Load can report ErrNotFound like the
	// file store does before its first write.
	doc sensor.Document

	// maxDates caps the number of date keys kept; the oldest dates are
	// dropped first. <= 0 means unlimited.
	maxDates int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore(maxDates int) *MemoryStore {
	return &MemoryStore{maxDates: maxDates}
}

// NewMemoryStoreFrom creates a MemoryStore preloaded with a copy of doc.
func NewMemoryStoreFrom(doc sensor.Document) *MemoryStore {
	return &MemoryStore{doc: doc.Clone()}
}

// Load returns a copy of the stored document.
func (s *MemoryStore) Load(ctx context.Context) (sensor.Document, error) {
	if err := ctx.Err(); err != nil {
		return sensor.Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.doc == nil {
		return sensor.Document{}, ErrNotFound
	}
	return s.doc.Clone(), nil
}

// Put sets the reading at [date][clock] and enforces retention.
func (s *MemoryStore) Put(ctx context.Context, date, clock string, r sensor.Reading) error {
	if err := sensor.ValidateKeys(date, clock); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		s.doc = sensor.Document{}
	}
	s.doc.Put(date, clock, r.Clone())

	// Enforce retention by date count.
	if s.maxDates > 0 && len(s.doc) > s.maxDates {
		dates := s.doc.Dates()
		for _, d := range dates[:len(dates)-s.maxDates] {
			delete(s.doc, d)
		}
	}
	return nil
}
