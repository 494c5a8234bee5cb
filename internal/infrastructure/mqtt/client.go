// Package mqtt wraps the Paho client for the upstream side channel.
//
// The connection is advisory: the daemon starts and controls hardware with
// or without a broker, and reconnection is delegated to Paho's auto
// reconnect. A last-will message flips the retained status topic to
// "offline" if the daemon dies uncleanly.
package mqtt

import (
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/spriggler/sprig-core/internal/infrastructure/config"
)

// maxPayloadSize caps published payloads. Anything bigger than this is a
// bug upstream of the transport, not traffic.
const maxPayloadSize = 1024 * 1024

// Logger is the minimal logging interface the client depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Client wraps the Paho MQTT client with connection management and the
// sprig topic layout.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig
	topics Topics
	logger Logger
}

// New creates a Client. Connect must be called before publishing.
func New(cfg config.MQTTConfig, topics Topics, logger Logger) *Client {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Client{cfg: cfg, topics: topics, logger: logger}
}

// Connect establishes the broker connection with last-will registration
// and publishes the retained "online" status.
func (c *Client) Connect(timeout time.Duration) error {
	opts := c.buildOptions()
	c.client = pahomqtt.NewClient(opts)

	token := c.client.Connect()
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: timeout after %s", ErrConnectFailed, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}

	c.logger.Info("mqtt connected",
		"broker", fmt.Sprintf("%s:%d", c.cfg.Broker.Host, c.cfg.Broker.Port),
		"client_id", c.cfg.Broker.ClientID)

	return c.PublishRetained(c.topics.Status(), []byte("online"))
}

func (c *Client) buildOptions() *pahomqtt.ClientOptions {
	scheme := "tcp"
	if c.cfg.Broker.TLS {
		scheme = "ssl"
	}
	broker := fmt.Sprintf("%s://%s:%d", scheme, c.cfg.Broker.Host, c.cfg.Broker.Port)

	opts := pahomqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(c.cfg.Broker.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetMaxReconnectInterval(time.Duration(c.cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectRetryInterval(time.Duration(c.cfg.Reconnect.InitialDelay) * time.Second).
		SetOrderMatters(false).
		SetCleanSession(true).
		SetWill(c.topics.Status(), "offline", byte(c.cfg.QoS), true)

	if c.cfg.Auth.Username != "" {
		opts.SetUsername(c.cfg.Auth.Username)
		opts.SetPassword(c.cfg.Auth.Password)
	}

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.logger.Info("mqtt reconnected")
	})

	return opts
}

// Connected reports whether the broker connection is up.
func (c *Client) Connected() bool {
	return c.client != nil && c.client.IsConnectionOpen()
}

// Publish sends a payload at the configured QoS, not retained.
func (c *Client) Publish(topic string, payload []byte) error {
	return c.publish(topic, payload, false)
}

// PublishRetained sends a payload at the configured QoS, retained.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.publish(topic, payload, true)
}

func (c *Client) publish(topic string, payload []byte, retained bool) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d bytes on %s", ErrPayloadTooLarge, len(payload), topic)
	}

	token := c.client.Publish(topic, byte(c.cfg.QoS), retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("%w: timeout on %s", ErrPublishFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

// Disconnect publishes the retained "offline" status and closes the
// connection gracefully.
func (c *Client) Disconnect() {
	if c.client == nil {
		return
	}
	if c.Connected() {
		if err := c.PublishRetained(c.topics.Status(), []byte("offline")); err != nil {
			c.logger.Warn("offline status publish failed", "error", err)
		}
	}
	c.client.Disconnect(250)
	c.logger.Info("mqtt disconnected")
}
