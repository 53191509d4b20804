package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, "sensor_data.json", cfg.Store.Path)
	assert.Equal(t, "json", cfg.Store.Driver)
	assert.Equal(t, "gemini", cfg.Assistant.Provider)
	assert.Equal(t, 30*time.Second, cfg.Assistant.Timeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.MQTTEnabled())
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := chdirTemp(t)
	file := filepath.Join(dir, "config.yaml")
	yml := `
log_level: debug
serial:
  port: /dev/ttyACM0
  baud: 9600
store:
  driver: sqlite
  path: data.json
  sqlite_path: data.db
assistant:
  provider: xai
  name: Grok
  timeout: 5s
  temperature: 0.2
mqtt:
  broker: localhost
  port: 1883
  client_id: test
  topic_prefix: farm
  device_id: plot-7
`
	require.NoError(t, os.WriteFile(file, []byte(yml), 0o644))
	t.Setenv("SERIAL_BAUD", "57600")
	t.Setenv("ASSISTANT_NAME", "Grok 3")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "xai", cfg.Assistant.Provider)
	assert.Equal(t, "Grok 3", cfg.Assistant.Name)
	assert.Equal(t, 5*time.Second, cfg.Assistant.Timeout)
	assert.True(t, cfg.MQTTEnabled())
	assert.Equal(t, "plot-7", cfg.MQTT.DeviceID)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown driver", "STORE_DRIVER", "postgres"},
		{"unknown provider", "ASSISTANT_PROVIDER", "openai"},
		{"bad duration", "INGEST_ERROR_PAUSE", "soon"},
		{"bad log level", "LOG_LEVEL", "loud"},
		{"bad temperature", "ASSISTANT_TEMPERATURE", "warm"},
		{"non-numeric port", "PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingYAMLFile(t *testing.T) {
	chdirTemp(t)
	_, err := Load("does-not-exist.yaml")
	assert.Error(t, err)
}
