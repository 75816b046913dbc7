// Package mqtt publishes alert events to an MQTT broker for downstream
// site dashboards and automations.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/site360/site360-go/internal/conf"
	"github.com/site360/site360-go/internal/logger"
	"github.com/site360/site360-go/internal/observability"
)

// reconnectCooldown bounds how often a failed client may retry the broker.
const reconnectCooldown = 5 * time.Second

// Client is a managed MQTT connection.
type Client interface {
	// Connect establishes the broker connection. Rapid reconnect attempts
	// within the cooldown window are rejected.
	Connect(ctx context.Context) error
	// Publish sends payload to topic at QoS 1.
	Publish(ctx context.Context, topic, payload string) error
	// PublishWithRetain sends payload to topic, optionally retained.
	PublishWithRetain(ctx context.Context, topic, payload string, retain bool) error
	IsConnected() bool
	Disconnect()
}

type client struct {
	settings *conf.MQTTSettings
	metrics  *observability.Metrics
	log      logger.Logger

	mu          sync.Mutex
	paho        paho.Client
	lastAttempt time.Time
}

// NewClient creates an MQTT client from settings. The connection is not
// opened until Connect.
func NewClient(settings *conf.MQTTSettings, metrics *observability.Metrics, log logger.Logger) (Client, error) {
	if settings.Broker == "" {
		return nil, errors.New("mqtt broker address is empty")
	}
	return &client{
		settings: settings,
		metrics:  metrics,
		log:      log,
	}, nil
}

func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if since := time.Since(c.lastAttempt); since < reconnectCooldown {
		return fmt.Errorf("connection attempt too recent, retry in %s", reconnectCooldown-since)
	}
	c.lastAttempt = time.Now()

	opts := paho.NewClientOptions()
	opts.AddBroker(c.settings.Broker)
	opts.SetClientID(c.settings.ClientID)
	if c.settings.Username != "" {
		opts.SetUsername(c.settings.Username)
		opts.SetPassword(c.settings.Password)
	}
	timeout := c.settings.ConnectTimeout.Std()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		c.metrics.MQTTErrors.Inc()
		c.log.Warn("mqtt connection lost", logger.Error(err))
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		c.log.Info("mqtt connected", logger.String("broker", c.settings.Broker))
	})

	p := paho.NewClient(opts)
	token := p.Connect()
	if !waitToken(ctx, token, timeout) {
		c.metrics.MQTTErrors.Inc()
		return fmt.Errorf("failed to connect to mqtt broker %s: timeout", c.settings.Broker)
	}
	if err := token.Error(); err != nil {
		c.metrics.MQTTErrors.Inc()
		return fmt.Errorf("failed to connect to mqtt broker %s: %w", c.settings.Broker, err)
	}

	c.paho = p
	return nil
}

func (c *client) Publish(ctx context.Context, topic, payload string) error {
	return c.PublishWithRetain(ctx, topic, payload, false)
}

func (c *client) PublishWithRetain(ctx context.Context, topic, payload string, retain bool) error {
	c.mu.Lock()
	p := c.paho
	c.mu.Unlock()

	if p == nil || !p.IsConnected() {
		return errors.New("mqtt client is not connected")
	}

	token := p.Publish(topic, 1, retain, payload)
	if !waitToken(ctx, token, 10*time.Second) {
		c.metrics.MQTTErrors.Inc()
		return fmt.Errorf("failed to publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		c.metrics.MQTTErrors.Inc()
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	c.metrics.MQTTMessagesPublished.Inc()
	return nil
}

func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paho != nil && c.paho.IsConnected()
}

func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paho != nil {
		c.paho.Disconnect(250)
		c.paho = nil
	}
}

// waitToken waits for a paho token honoring both the context and a hard
// timeout. Returns false when neither completed in time.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) bool {
	done := make(chan bool, 1)
	go func() { done <- token.WaitTimeout(timeout) }()
	select {
	case completed := <-done:
		return completed
	case <-ctx.Done():
		return false
	}
}
