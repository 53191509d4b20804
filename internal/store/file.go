package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/i474232898/sensor-assistant/internal/sensor"
)

var (
	// ErrNotFound is returned when the store has never been written.
	ErrNotFound = errors.New("sensor data not found")
	// ErrMalformed is returned when the stored document cannot be decoded.
	ErrMalformed = errors.New("sensor data is malformed")
	// ErrEmpty is returned when the store exists but holds no readings.
	ErrEmpty = errors.New("sensor data is empty")
)

// legacyTable is the table name of the older single-record layout:
// {"_default": {"1": {date: {time: reading}}}}.
const legacyTable = "_default"

// FileStore keeps the whole document in one JSON file. Every Put rewrites
// the file through a temp file and rename, so readers never observe a
// partially written document.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store backed by the JSON file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string { return s.path }

// Load reads the document. A missing file yields ErrNotFound and an
// undecodable one ErrMalformed; both come with an empty document.
func (s *FileStore) Load(ctx context.Context) (sensor.Document, error) {
	if err := ctx.Err(); err != nil {
		return sensor.Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Put merges r into the stored document at [date][clock] and persists the
// full document. A malformed file is left untouched.
func (s *FileStore) Put(ctx context.Context, date, clock string, r sensor.Reading) error {
	if err := sensor.ValidateKeys(date, clock); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	doc.Put(date, clock, r)
	return s.write(doc)
}

func (s *FileStore) load() (sensor.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return sensor.Document{}, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return sensor.Document{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return sensor.Document{}, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
	}
	return doc, nil
}

func (s *FileStore) write(doc sensor.Document) error {
	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

// decodeDocument accepts the plain layout and the legacy table layout.
func decodeDocument(data []byte) (sensor.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty file")
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, err
	}
	if top == nil {
		return nil, errors.New("expected an object")
	}

	if table, ok := top[legacyTable]; ok && len(top) == 1 {
		return decodeLegacy(table)
	}

	doc := sensor.Document{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeLegacy(table json.RawMessage) (sensor.Document, error) {
	var records map[string]sensor.Document
	if err := json.Unmarshal(table, &records); err != nil {
		return nil, fmt.Errorf("legacy table: %w", err)
	}
	if len(records) == 0 {
		return sensor.Document{}, nil
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})

	doc := records[ids[0]]
	if doc == nil {
		doc = sensor.Document{}
	}
	return doc, nil
}
