package sensor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

var (
	// ErrEmptyLine is returned for a line with nothing to parse.
	ErrEmptyLine = errors.New("empty line")
	// ErrInvalidUTF8 is returned when a line is not valid UTF-8 text.
	ErrInvalidUTF8 = errors.New("line is not valid utf-8")
	// ErrMissingField is returned when one of the required keys is absent.
	ErrMissingField = errors.New("missing required field")
)

// ParseLine decodes one device line into a Reading. All four keys must be
// present; an explicit null is accepted and kept as a null.
func ParseLine(line []byte) (Reading, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Reading{}, ErrEmptyLine
	}
	if !utf8.Valid(line) {
		return Reading{}, ErrInvalidUTF8
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return Reading{}, fmt.Errorf("decode json: %w", err)
	}
	if raw == nil {
		return Reading{}, fmt.Errorf("decode json: expected an object")
	}

	for _, m := range Metrics {
		if _, ok := raw[string(m)]; !ok {
			return Reading{}, fmt.Errorf("%w: %q", ErrMissingField, m)
		}
	}

	var r Reading
	if err := r.setFields(raw); err != nil {
		return Reading{}, err
	}
	return r, nil
}
