// Package mqtt publishes accepted sensor readings to an MQTT broker.
package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/terraguard/terraguard-go/internal/conf"
	"github.com/terraguard/terraguard-go/internal/errors"
	"github.com/terraguard/terraguard-go/internal/logging"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Publish sends a message to the specified topic on the MQTT broker.
	Publish(ctx context.Context, topic, payload string) error

	// IsConnected returns true while a broker connection is up.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string
	Retain            bool
	ReconnectCooldown time.Duration
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values.
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// client implements the Client interface on top of paho.
type client struct {
	config          Config
	internalClient  pahomqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
}

// NewClient creates a new MQTT client from the application settings.
func NewClient(settings *conf.Settings) Client {
	cfg := DefaultConfig()
	cfg.Broker = settings.Realtime.MQTT.Broker
	cfg.ClientID = settings.Main.Name
	cfg.Username = settings.Realtime.MQTT.Username
	cfg.Password = settings.Realtime.MQTT.Password
	cfg.Topic = settings.Realtime.MQTT.Topic
	cfg.Retain = settings.Realtime.MQTT.Retain
	return &client{config: cfg}
}

// Connect attempts to establish a connection to the MQTT broker. The
// broker hostname is resolved first so misconfiguration surfaces as a
// DNS error rather than a paho timeout.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastConnAttempt) < c.config.ReconnectCooldown {
		return errors.Newf("connection attempt too recent, last attempt was %v ago", time.Since(c.lastConnAttempt)).
			Component("mqtt").
			Category(errors.CategoryMQTTConn).
			Build()
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return errors.Newf("invalid broker URL %q: %v", c.config.Broker, err).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return errors.New(err).
				Component("mqtt").
				Category(errors.CategoryMQTTConn).
				Context("broker", c.config.Broker).
				Build()
		}
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		logging.Info("connected to MQTT broker", "broker", c.config.Broker)
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logging.Warn("MQTT connection lost", "broker", c.config.Broker, "error", err)
	})

	c.internalClient = pahomqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(c.config.ConnectTimeout) {
		return errors.Newf("connection to %s timed out", c.config.Broker).
			Component("mqtt").
			Category(errors.CategoryMQTTConn).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConn).
			Context("broker", c.config.Broker).
			Build()
	}
	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient == nil || !c.internalClient.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}

	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	if !token.WaitTimeout(c.config.PublishTimeout) {
		return errors.Newf("publish to %s timed out", topic).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Build()
	}
	if err := token.Error(); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}
	return nil
}

// IsConnected returns true while a broker connection is up.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	if c.internalClient != nil {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	}
}
