// Package assistant defines the external conversational model used for
// open-ended questions about the sensor data.
package assistant

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when no model could be initialised.
var ErrUnavailable = errors.New("assistant unavailable")

// Model answers a user prompt under a system prompt.
type Model interface {
	// Name is the display name used in diagnostics, e.g. "Grok".
	Name() string
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
