package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sensor-assistant/internal/config"
	"github.com/i474232898/sensor-assistant/internal/sensor"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, "sensors/field-1/reading", Topic("sensors", "field-1"))
}

func TestNewMessage_KeepsNullForAbsentValues(t *testing.T) {
	temp := 24.5
	msg := NewMessage("field-1", sensor.Sample{
		Date:    "2025-03-20",
		Time:    "10:30:15",
		Reading: sensor.Reading{Temperature: &temp},
	})

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"device_id": "field-1",
		"date": "2025-03-20",
		"time": "10:30:15",
		"temperature": 24.5,
		"humidity": null,
		"air_quality": null,
		"light_intensity": null
	}`, string(data))
}

func newTestPublisher() *Publisher {
	cfg := config.Defaults().MQTT
	cfg.Broker = "127.0.0.1"
	cfg.Port = 1
	return NewPublisher(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublish_NotConnected(t *testing.T) {
	p := newTestPublisher()
	err := p.Publish(context.Background(), sensor.Sample{Date: "2025-03-20", Time: "10:30:15"})
	assert.ErrorIs(t, err, errNotConnected)
	assert.Equal(t, "sensors/field-1/reading", p.Topic())
}

func TestDisconnect_IdempotentAndStopsConnect(t *testing.T) {
	p := newTestPublisher()
	p.Disconnect()
	p.Disconnect()

	assert.ErrorIs(t, p.Connect(context.Background()), errStopped)
}
