package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/sensor-assistant/internal/config"
)

func TestNew_JSONOutsideDev(t *testing.T) {
	cfg := config.Defaults()
	cfg.AppEnv = "prod"

	var buf bytes.Buffer
	New(cfg, "sensor-assistant", &buf).Info("stored", "date", "2025-03-20")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "stored", line["msg"])
	assert.Equal(t, "sensor-assistant", line["app"])
	assert.Equal(t, "prod", line["env"])
}

func TestNew_DevRespectsLevel(t *testing.T) {
	cfg := config.Defaults()
	cfg.LogLevel = slog.LevelWarn

	var buf bytes.Buffer
	logger := New(cfg, "sensor-assistant", &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "app=sensor-assistant")
}
