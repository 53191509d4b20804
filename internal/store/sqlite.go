package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/i474232898/sensor-assistant/internal/sensor"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS readings (
	date_key        TEXT NOT NULL,
	time_key        TEXT NOT NULL,
	temperature     REAL,
	humidity        REAL,
	air_quality     REAL,
	light_intensity REAL,
	null_fields     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (date_key, time_key)
);`

const sqliteUpsert = `
INSERT INTO readings (date_key, time_key, temperature, humidity, air_quality, light_intensity, null_fields)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(date_key, time_key) DO UPDATE SET
	temperature = excluded.temperature,
	humidity = excluded.humidity,
	air_quality = excluded.air_quality,
	light_intensity = excluded.light_intensity,
	null_fields = excluded.null_fields`

// SQLiteStore keeps one row per reading in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// The ingester and the assistant may be separate processes.
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := addNullFields(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Load rebuilds the whole document from the table. An empty table yields
// ErrEmpty. A NULL column is a missing key unless null_fields marks it as an
// explicit null.
func (s *SQLiteStore) Load(ctx context.Context) (sensor.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT date_key, time_key, temperature, humidity, air_quality, light_intensity, null_fields
FROM readings ORDER BY date_key, time_key`)
	if err != nil {
		return sensor.Document{}, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	doc := sensor.Document{}
	for rows.Next() {
		var (
			date, clock          string
			temp, hum, aq, light sql.NullFloat64
			nulls                int64
		)
		if err := rows.Scan(&date, &clock, &temp, &hum, &aq, &light, &nulls); err != nil {
			return sensor.Document{}, fmt.Errorf("scan reading: %w", err)
		}
		doc.Put(date, clock, sensor.Reading{
			Temperature:    fromNull(temp),
			Humidity:       fromNull(hum),
			AirQuality:     fromNull(aq),
			LightIntensity: fromNull(light),
			Null:           sensor.FieldSet(nulls),
		})
	}
	if err := rows.Err(); err != nil {
		return sensor.Document{}, fmt.Errorf("iterate readings: %w", err)
	}
	if len(doc) == 0 {
		return doc, fmt.Errorf("%w: %s", ErrEmpty, s.path)
	}
	return doc, nil
}

// Put upserts the reading at (date, clock).
func (s *SQLiteStore) Put(ctx context.Context, date, clock string, r sensor.Reading) error {
	if err := sensor.ValidateKeys(date, clock); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, sqliteUpsert,
		date, clock,
		toNull(r.Temperature), toNull(r.Humidity), toNull(r.AirQuality), toNull(r.LightIntensity),
		int64(r.Null),
	)
	if err != nil {
		return fmt.Errorf("upsert reading %s %s: %w", date, clock, err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// addNullFields upgrades a table created before null_fields existed.
func addNullFields(ctx context.Context, db *sql.DB) error {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('readings') WHERE name = 'null_fields'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, `ALTER TABLE readings ADD COLUMN null_fields INTEGER NOT NULL DEFAULT 0`); err != nil {
		return fmt.Errorf("add null_fields: %w", err)
	}
	return nil
}

func toNull(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
