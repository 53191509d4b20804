package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/i474232898/sensor-assistant/internal/config"
	"github.com/i474232898/sensor-assistant/internal/sensor"
)

const publishTimeout = 5 * time.Second

var (
	errStopped      = errors.New("mqtt publisher stopped")
	errNotConnected = errors.New("mqtt publisher not connected")
)

// Message is the JSON payload published for every stored reading.
type Message struct {
	DeviceID       string   `json:"device_id"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	AirQuality     *float64 `json:"air_quality"`
	LightIntensity *float64 `json:"light_intensity"`
}

// Publisher mirrors stored readings to an MQTT broker.
type Publisher struct {
	client   paho.Client
	cfg      config.MQTTConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewPublisher builds a publisher for the configured broker. It does not
// connect; call Connect.
func NewPublisher(cfg config.MQTTConfig, logger *slog.Logger) *Publisher {
	p := &Publisher{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ paho.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker, "port", cfg.Port)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	p.client = paho.NewClient(opts)
	return p
}

// Connect waits for the initial connection, respecting ctx and Disconnect.
func (p *Publisher) Connect(ctx context.Context) error {
	select {
	case <-p.stopCh:
		return errStopped
	default:
	}
	if p.client.IsConnected() {
		return nil
	}

	token := p.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.stopCh:
			return errStopped
		default:
		}
	}
}

// Topic is where readings for this device are published.
func (p *Publisher) Topic() string {
	return Topic(p.cfg.TopicPrefix, p.cfg.DeviceID)
}

// Topic builds <prefix>/<device>/reading.
func Topic(prefix, deviceID string) string {
	return fmt.Sprintf("%s/%s/reading", prefix, deviceID)
}

// NewMessage builds the payload for a stored sample.
func NewMessage(deviceID string, s sensor.Sample) Message {
	return Message{
		DeviceID:       deviceID,
		Date:           s.Date,
		Time:           s.Time,
		Temperature:    s.Temperature,
		Humidity:       s.Humidity,
		AirQuality:     s.AirQuality,
		LightIntensity: s.LightIntensity,
	}
}

// Publish sends the sample at QoS 1.
func (p *Publisher) Publish(ctx context.Context, s sensor.Sample) error {
	if !p.client.IsConnected() {
		return errNotConnected
	}

	data, err := json.Marshal(NewMessage(p.cfg.DeviceID, s))
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	topic := p.Topic()
	token := p.client.Publish(topic, 1, false, data)

	timeout := publishTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish reading: %w", err)
	}

	p.logger.Debug("published reading", "topic", topic, "date", s.Date, "time", s.Time)
	return nil
}

// Disconnect stops the publisher. Safe to call more than once.
func (p *Publisher) Disconnect() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
		p.client.Disconnect(250)
		p.logger.Info("mqtt disconnected")
	})
}
