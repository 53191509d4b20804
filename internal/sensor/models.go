package sensor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	// DateLayout is the layout of a date key, e.g. 2025-03-20.
	DateLayout = "2006-01-02"
	// TimeLayout is the layout of a time key, e.g. 10:30:15.
	TimeLayout = "15:04:05"
)

// Reading is one sample from the field device. A nil field is either a key
// the stored record never had, or a key stored as an explicit null; Null
// tells the two apart.
type Reading struct {
	Temperature    *float64
	Humidity       *float64
	AirQuality     *float64
	LightIntensity *float64

	// Null marks keys that were present with a null value.
	Null FieldSet
}

// FieldSet is a set of metrics.
type FieldSet uint8

func fieldBit(m Metric) FieldSet {
	for i, x := range Metrics {
		if x == m {
			return 1 << i
		}
	}
	return 0
}

// Has reports whether m is in the set.
func (s FieldSet) Has(m Metric) bool {
	b := fieldBit(m)
	return b != 0 && s&b != 0
}

// With returns the set with m added.
func (s FieldSet) With(m Metric) FieldSet {
	return s | fieldBit(m)
}

func (r *Reading) field(m Metric) **float64 {
	switch m {
	case Temperature:
		return &r.Temperature
	case Humidity:
		return &r.Humidity
	case AirQuality:
		return &r.AirQuality
	case LightIntensity:
		return &r.LightIntensity
	default:
		return nil
	}
}

// MarshalJSON writes the keys in metric order. Explicit nulls are written
// as null and missing keys are left out.
func (r Reading) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, m := range Metrics {
		v := *r.field(m)
		if v == nil && !r.Null.Has(m) {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		fmt.Fprintf(&buf, "%q:", string(m))
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", m, err)
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a stored reading. Unknown keys are ignored.
func (r *Reading) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out Reading
	if err := out.setFields(raw); err != nil {
		return err
	}
	*r = out
	return nil
}

// setFields fills r from the metric keys of raw.
func (r *Reading) setFields(raw map[string]json.RawMessage) error {
	for _, m := range Metrics {
		msg, ok := raw[string(m)]
		if !ok {
			continue
		}
		var v *float64
		if err := json.Unmarshal(msg, &v); err != nil {
			return fmt.Errorf("field %q: %w", m, err)
		}
		*r.field(m) = v
		if v == nil {
			r.Null = r.Null.With(m)
		}
	}
	return nil
}

// String renders the reading the way the ingestion log prints it.
func (r Reading) String() string {
	return fmt.Sprintf("Temp=%s°C, Hum=%s%%, AirQ=%s, Light=%s",
		formatOptional(r.Temperature),
		formatOptional(r.Humidity),
		formatOptional(r.AirQuality),
		formatOptional(r.LightIntensity),
	)
}

func formatOptional(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g", *v)
}

// Keys derives the date and time keys for a reading received at t.
// The wall clock of the ingesting process is used, never the device clock.
func Keys(t time.Time) (date, clock string) {
	return t.Format(DateLayout), t.Format(TimeLayout)
}

// ValidateKeys reports whether date and clock are well-formed keys. Both
// must be zero-padded, so they sort lexically in time order.
func ValidateKeys(date, clock string) error {
	if err := validateKey(DateLayout, date); err != nil {
		return fmt.Errorf("invalid date key %q: %w", date, err)
	}
	if err := validateKey(TimeLayout, clock); err != nil {
		return fmt.Errorf("invalid time key %q: %w", clock, err)
	}
	return nil
}

func validateKey(layout, key string) error {
	t, err := time.Parse(layout, key)
	if err != nil {
		return err
	}
	if len(key) != len(layout) || t.Format(layout) != key {
		return fmt.Errorf("want layout %s", layout)
	}
	return nil
}

// Document is the whole store: date key -> time key -> reading.
type Document map[string]map[string]Reading

// Put sets the reading at [date][clock], replacing any reading already there.
func (d Document) Put(date, clock string, r Reading) {
	day, ok := d[date]
	if !ok {
		day = make(map[string]Reading)
		d[date] = day
	}
	day[clock] = r
}

// Get returns the readings stored under a date key.
func (d Document) Get(date string) (map[string]Reading, bool) {
	day, ok := d[date]
	return day, ok
}

// Len returns the total number of readings across all dates.
func (d Document) Len() int {
	n := 0
	for _, day := range d {
		n += len(day)
	}
	return n
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for date, day := range d {
		cp := make(map[string]Reading, len(day))
		for clock, r := range day {
			cp[clock] = r.Clone()
		}
		out[date] = cp
	}
	return out
}

// Clone returns a copy of r that shares no pointers with it.
func (r Reading) Clone() Reading {
	return Reading{
		Temperature:    clonePtr(r.Temperature),
		Humidity:       clonePtr(r.Humidity),
		AirQuality:     clonePtr(r.AirQuality),
		LightIntensity: clonePtr(r.LightIntensity),
		Null:           r.Null,
	}
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// Dates returns the date keys in ascending order.
func (d Document) Dates() []string {
	dates := make([]string, 0, len(d))
	for date := range d {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// Sample is a reading together with the keys it is stored under.
type Sample struct {
	Date string
	Time string
	Reading
}

// Label is the x-axis label of the sample.
func (s Sample) Label() string {
	return s.Date + " " + s.Time
}

// Samples flattens every date into one chronological collection. Both key
// layouts sort lexically in time order, which matches ingestion order.
func (d Document) Samples() []Sample {
	out := make([]Sample, 0, d.Len())
	for _, date := range d.Dates() {
		day := d[date]
		clocks := make([]string, 0, len(day))
		for clock := range day {
			clocks = append(clocks, clock)
		}
		sort.Strings(clocks)
		for _, clock := range clocks {
			out = append(out, Sample{Date: date, Time: clock, Reading: day[clock]})
		}
	}
	return out
}
