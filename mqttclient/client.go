// Package mqttclient is a small MQTT client for the bridge topics, used by
// the command line tools and end to end tests.
package mqttclient

import (
	"fmt"
	"runtime/debug"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultOperationTimeout  = 5 * time.Second
	defaultDisconnectQuiesce = 250 // milliseconds
	defaultKeepAlive         = 30 * time.Second
	maxQoS                   = 2
	subackFailure            = 0x80
)

type Config struct {
	// Broker is the broker url, e.g. tcp://127.0.0.1:1883 or ws://host/mqtt.
	Broker   string
	ClientID string
	Realm    string
	Username string
	// Token is the signed access token sent as the connect password.
	Token          string
	ConnectTimeout time.Duration
}

// MessageHandler receives messages on the topic they were published on.
type MessageHandler func(topic string, payload []byte)

type Client struct {
	client pahomqtt.Client
	cfg    Config
	log    *zap.Logger
}

func buildClientOptions(cfg Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)

	username := cfg.Realm
	if cfg.Username != "" {
		username += ":" + cfg.Username
	}
	opts.SetUsername(username)
	if cfg.Token != "" {
		opts.SetPassword(cfg.Token)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	return opts
}

// Connect dials the broker and waits for the connection to be accepted.
func Connect(cfg Config, log *zap.Logger) (*Client, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}

	c := &Client{cfg: cfg, log: log.Named("mqttclient")}
	opts := buildClientOptions(cfg)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.log.Warn("connection lost", zap.String("client_id", cfg.ClientID), zap.Error(err))
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, cfg.ConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

func (c *Client) Topics() Topics {
	return Topics{Realm: c.cfg.Realm, ClientID: c.cfg.ClientID}
}

// Subscribe registers handler for filter. It fails with
// ErrSubscriptionRefused when the broker does not grant the subscription.
func (c *Client) Subscribe(filter string, qos byte, handler MessageHandler) error {
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	token := c.client.Subscribe(filter, qos, c.wrapHandler(handler))
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, filter)
	}
	if st, ok := token.(*pahomqtt.SubscribeToken); ok {
		if granted, ok := st.Result()[filter]; ok && granted >= subackFailure {
			return fmt.Errorf("%w: %s", ErrSubscriptionRefused, filter)
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

func (c *Client) Unsubscribe(filters ...string) error {
	token := c.client.Unsubscribe(filters...)
	if !token.WaitTimeout(defaultOperationTimeout) {
		return ErrTimeout
	}
	return token.Error()
}

func (c *Client) Publish(topic string, qos byte, payload []byte) error {
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	token := c.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(defaultOperationTimeout) {
		return fmt.Errorf("%w: %s", ErrTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

func (c *Client) Close() {
	c.client.Disconnect(defaultDisconnectQuiesce)
}

func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("panic in message handler", zap.String("topic", msg.Topic()), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			}
		}()
		handler(msg.Topic(), msg.Payload())
	}
}
