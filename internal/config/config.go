package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type AppConfig struct {
	AppEnv   string     `yaml:"app_env" validate:"required"`
	LogLevel slog.Level `yaml:"-"`
	LogFile  string     `yaml:"log_file"`

	Serial SerialConfig `yaml:"serial"`
	Store  StoreConfig  `yaml:"store"`
	Ingest IngestConfig `yaml:"ingest"`
	MQTT   MQTTConfig   `yaml:"mqtt"`

	Assistant AssistantConfig `yaml:"assistant"`

	Port           string        `yaml:"port" validate:"required,numeric"`
	GraphDir       string        `yaml:"graph_dir" validate:"required"`
	GraphWidthCm   float64       `yaml:"graph_width_cm" validate:"gt=0"`
	GraphHeightCm  float64       `yaml:"graph_height_cm" validate:"gt=0"`
	ReloadInterval time.Duration `yaml:"reload_interval" validate:"gte=0"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud" validate:"gt=0"`
}

type StoreConfig struct {
	// Driver selects the backend: json (default), sqlite or memory.
	Driver     string `yaml:"driver" validate:"oneof=json sqlite memory"`
	Path       string `yaml:"path" validate:"required"`
	SQLitePath string `yaml:"sqlite_path" validate:"required"`
}

type IngestConfig struct {
	ErrorPause    time.Duration `yaml:"error_pause" validate:"gte=0"`
	StatsInterval time.Duration `yaml:"stats_interval" validate:"gte=0"`
}

// MQTTConfig controls the optional reading mirror. An empty Broker disables it.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	Port        int    `yaml:"port" validate:"gt=0,lte=65535"`
	ClientID    string `yaml:"client_id" validate:"required"`
	TopicPrefix string `yaml:"topic_prefix" validate:"required"`
	DeviceID    string `yaml:"device_id" validate:"required"`
}

type AssistantConfig struct {
	Provider    string        `yaml:"provider" validate:"oneof=gemini xai none"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
	// Name is shown to the user; empty means the provider's own name.
	Name        string        `yaml:"name"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxRetries  int           `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *AppConfig {
	return &AppConfig{
		AppEnv:   "dev",
		LogLevel: slog.LevelInfo,
		Serial: SerialConfig{
			Port: "/dev/ttyUSB0",
			Baud: 115200,
		},
		Store: StoreConfig{
			Driver:     "json",
			Path:       "sensor_data.json",
			SQLitePath: "sensor_data.db",
		},
		Ingest: IngestConfig{
			ErrorPause:    time.Second,
			StatsInterval: time.Minute,
		},
		MQTT: MQTTConfig{
			Port:        1883,
			ClientID:    "sensor-assistant",
			TopicPrefix: "sensors",
			DeviceID:    "field-1",
		},
		Assistant: AssistantConfig{
			Provider:    "gemini",
			Timeout:     30 * time.Second,
			Temperature: 0.7,
			MaxRetries:  1,
		},
		Port:           "8080",
		GraphDir:       "graphs",
		GraphWidthCm:   16,
		GraphHeightCm:  10,
		ReloadInterval: 30 * time.Second,
	}
}

// Load reads configuration with precedence defaults < YAML file < environment.
// file may be empty; CONFIG_FILE is consulted in that case.
func Load(file string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Defaults()

	if file == "" {
		file = os.Getenv("CONFIG_FILE")
	}
	if file != "" {
		if err := cfg.loadYAML(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// yamlLevel carries the log level through the YAML document as text.
type yamlLevel struct {
	LogLevel string `yaml:"log_level"`
}

func (c *AppConfig) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	var lvl yamlLevel
	if err := yaml.Unmarshal(data, &lvl); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if lvl.LogLevel != "" {
		if err := c.setLogLevel(lvl.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

func (c *AppConfig) applyEnv() error {
	c.AppEnv = getenvDefault("APP_ENV", c.AppEnv)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := c.setLogLevel(v); err != nil {
			return err
		}
	}
	c.LogFile = getenvDefault("LOG_FILE", c.LogFile)

	c.Serial.Port = getenvDefault("SERIAL_PORT", c.Serial.Port)
	c.Serial.Baud = getenvInt("SERIAL_BAUD", c.Serial.Baud)

	c.Store.Driver = strings.ToLower(getenvDefault("STORE_DRIVER", c.Store.Driver))
	c.Store.Path = getenvDefault("SENSOR_DATA_PATH", c.Store.Path)
	c.Store.SQLitePath = getenvDefault("SQLITE_PATH", c.Store.SQLitePath)

	var err error
	if c.Ingest.ErrorPause, err = getenvDuration("INGEST_ERROR_PAUSE", c.Ingest.ErrorPause); err != nil {
		return err
	}
	if c.Ingest.StatsInterval, err = getenvDuration("INGEST_STATS_INTERVAL", c.Ingest.StatsInterval); err != nil {
		return err
	}

	c.MQTT.Broker = getenvDefault("MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.Port = getenvInt("MQTT_PORT", c.MQTT.Port)
	c.MQTT.ClientID = getenvDefault("MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.TopicPrefix = getenvDefault("MQTT_TOPIC_PREFIX", c.MQTT.TopicPrefix)
	c.MQTT.DeviceID = getenvDefault("DEVICE_ID", c.MQTT.DeviceID)

	c.Assistant.Provider = strings.ToLower(getenvDefault("ASSISTANT_PROVIDER", c.Assistant.Provider))
	c.Assistant.APIKey = getenvDefault("ASSISTANT_API_KEY", c.Assistant.APIKey)
	c.Assistant.Model = getenvDefault("ASSISTANT_MODEL", c.Assistant.Model)
	c.Assistant.BaseURL = getenvDefault("ASSISTANT_BASE_URL", c.Assistant.BaseURL)
	c.Assistant.Name = getenvDefault("ASSISTANT_NAME", c.Assistant.Name)
	if c.Assistant.Timeout, err = getenvDuration("ASSISTANT_TIMEOUT", c.Assistant.Timeout); err != nil {
		return err
	}
	if c.Assistant.Temperature, err = getenvFloat("ASSISTANT_TEMPERATURE", c.Assistant.Temperature); err != nil {
		return err
	}
	c.Assistant.MaxRetries = getenvInt("ASSISTANT_MAX_RETRIES", c.Assistant.MaxRetries)

	c.Port = getenvDefault("PORT", c.Port)
	c.GraphDir = getenvDefault("GRAPH_DIR", c.GraphDir)
	if c.GraphWidthCm, err = getenvFloat("GRAPH_WIDTH_CM", c.GraphWidthCm); err != nil {
		return err
	}
	if c.GraphHeightCm, err = getenvFloat("GRAPH_HEIGHT_CM", c.GraphHeightCm); err != nil {
		return err
	}
	if c.ReloadInterval, err = getenvDuration("RELOAD_INTERVAL", c.ReloadInterval); err != nil {
		return err
	}
	return nil
}

func (c *AppConfig) setLogLevel(s string) error {
	lvl, err := parseLogLevel(s)
	if err != nil {
		return err
	}
	c.LogLevel = lvl
	return nil
}

// MQTTEnabled reports whether a broker is configured.
func (c *AppConfig) MQTTEnabled() bool {
	return c.MQTT.Broker != ""
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
