// Package mqtt implements the MQTT transport for jukebox.
//
// MQTT is well-suited for home-automation hubs that already publish to a
// broker. This transport subscribes to a command topic, dispatches each JSON
// envelope and publishes the result to a reply topic.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/nadzzz/jukebox/internal/message"
	"github.com/nadzzz/jukebox/internal/transport"
)

// Config configures the MQTT transport.
type Config struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topic      string
	ReplyTopic string
	QoS        byte
	Timeout    time.Duration
}

// Transport implements transport.Transport over MQTT.
type Transport struct {
	cfg Config

	mu     sync.Mutex
	client paho.Client
}

// New creates a new MQTT transport.
func New(cfg Config) *Transport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "jukebox"
	}
	return &Transport{cfg: cfg}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "mqtt" }

// Listen connects to the broker, subscribes to the command topic and blocks
// until ctx is cancelled.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	if err := t.Start(ctx, handler); err != nil {
		return err
	}
	<-ctx.Done()
	slog.Info("mqtt transport shutting down")
	return t.Close()
}

// Start connects and subscribes, then returns. Messages are dispatched in the
// background until Close.
func (t *Transport) Start(ctx context.Context, handler transport.Handler) error {
	onMessage := t.onMessage(ctx, handler)

	opts := paho.NewClientOptions().AddBroker(t.cfg.Broker)
	opts.SetClientID(t.cfg.ClientID)
	opts.SetConnectTimeout(t.cfg.Timeout)
	opts.SetAutoReconnect(true)
	// Handlers publish replies; they must not block the paho router.
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(func(c paho.Client) {
		token := c.Subscribe(t.cfg.Topic, t.cfg.QoS, onMessage)
		if token.WaitTimeout(t.cfg.Timeout) && token.Error() != nil {
			slog.Error("mqtt subscribe failed", "topic", t.cfg.Topic, "error", token.Error())
		}
	})
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
		opts.SetPassword(t.cfg.Password)
	}

	client := paho.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect %s: %w", t.cfg.Broker, token.Error())
	}
	// The on-connect handler subscribes asynchronously; subscribe here too so
	// Start returns only once messages can be received.
	if token := client.Subscribe(t.cfg.Topic, t.cfg.QoS, onMessage); token.Wait() && token.Error() != nil {
		client.Disconnect(250)
		return fmt.Errorf("mqtt subscribe %s: %w", t.cfg.Topic, token.Error())
	}

	t.mu.Lock()
	t.client = client
	t.mu.Unlock()

	slog.Info("mqtt transport listening", "broker", t.cfg.Broker, "topic", t.cfg.Topic)
	return nil
}

func (t *Transport) onMessage(ctx context.Context, handler transport.Handler) paho.MessageHandler {
	return func(c paho.Client, msg paho.Message) {
		logger := slog.With("transport", "mqtt", "topic", msg.Topic())
		result := &message.Result{}

		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic while handling mqtt message", "panic", r)
				result = &message.Result{Error: "internal error"}
			}
			t.reply(c, result, logger)
		}()

		env, err := message.DecodeEnvelope(msg.Payload())
		if err != nil {
			logger.Warn("rejecting message", "error", err)
			result.Error = err.Error()
			return
		}
		env.Source = "mqtt:" + msg.Topic()

		res, err := handler(ctx, env)
		if res != nil {
			result = res
		} else {
			result.RequestID = env.ID
		}
		if err != nil {
			logger.Warn("dispatch failed", "error", err)
			if result.Error == "" {
				result.Error = err.Error()
			}
		}
	}
}

func (t *Transport) reply(c paho.Client, result *message.Result, logger *slog.Logger) {
	if t.cfg.ReplyTopic == "" {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		logger.Error("encoding reply", "error", err)
		return
	}
	token := c.Publish(t.cfg.ReplyTopic, t.cfg.QoS, false, payload)
	if !token.WaitTimeout(t.cfg.Timeout) {
		logger.Warn("reply publish timed out", "reply_topic", t.cfg.ReplyTopic)
		return
	}
	if err := token.Error(); err != nil {
		logger.Warn("reply publish failed", "reply_topic", t.cfg.ReplyTopic, "error", err)
	}
}

// Close disconnects from the MQTT broker.
func (t *Transport) Close() error {
	t.mu.Lock()
	client := t.client
	t.client = nil
	t.mu.Unlock()
	if client != nil && client.IsConnected() {
		client.Unsubscribe(t.cfg.Topic).WaitTimeout(t.cfg.Timeout)
		client.Disconnect(250)
	}
	return nil
}
