// Package broker runs an optional embedded MQTT broker so a single jukebox
// process can accept MQTT triggers without an external Mosquitto.
package broker

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mqtt "github.com/mochi-mqtt/server/v2"
	"github.com/mochi-mqtt/server/v2/hooks/auth"
	"github.com/mochi-mqtt/server/v2/listeners"
)

// DefaultListen is the address used when none is configured.
const DefaultListen = "127.0.0.1:1883"

// Config configures the embedded broker.
type Config struct {
	Listen         string
	AllowAnonymous bool
	Username       string
	Password       string
}

// Broker wraps a mochi-mqtt server with a single TCP listener.
type Broker struct {
	server *mqtt.Server
	cfg    Config
}

// New creates a broker. Either AllowAnonymous or Username must be set.
func New(cfg Config, logger *slog.Logger) (*Broker, error) {
	if strings.TrimSpace(cfg.Listen) == "" {
		cfg.Listen = DefaultListen
	}
	if logger == nil {
		logger = slog.Default()
	}

	server := mqtt.New(&mqtt.Options{InlineClient: true, Logger: logger.With("component", "broker")})

	switch {
	case cfg.AllowAnonymous:
		if err := server.AddHook(new(auth.AllowHook), nil); err != nil {
			return nil, fmt.Errorf("broker auth: %w", err)
		}
	case cfg.Username != "":
		ledger := &auth.Ledger{
			Auth: auth.AuthRules{{Username: auth.RString(cfg.Username), Password: auth.RString(cfg.Password), Allow: true}},
			ACL:  auth.ACLRules{{Username: auth.RString(cfg.Username), Filters: auth.Filters{auth.RString("#"): auth.ReadWrite}}},
		}
		if err := server.AddHook(new(auth.Hook), &auth.Options{Ledger: ledger}); err != nil {
			return nil, fmt.Errorf("broker auth: %w", err)
		}
	default:
		return nil, errors.New("embedded broker requires allow_anonymous or username")
	}

	return &Broker{server: server, cfg: cfg}, nil
}

// URL returns the client URL for a broker listening on listen.
func URL(listen string) string {
	if strings.TrimSpace(listen) == "" {
		listen = DefaultListen
	}
	return "tcp://" + listen
}

// Start binds the listener and begins serving in the background.
func (b *Broker) Start() error {
	tcp := listeners.NewTCP(listeners.Config{ID: "jukebox-tcp", Address: b.cfg.Listen})
	if err := b.server.AddListener(tcp); err != nil {
		return fmt.Errorf("broker listen %s: %w", b.cfg.Listen, err)
	}
	go func() {
		if err := b.server.Serve(); err != nil {
			slog.Error("embedded broker stopped", "error", err)
		}
	}()
	slog.Info("embedded broker listening", "addr", b.cfg.Listen)
	return nil
}

// Close stops the broker and disconnects all clients.
func (b *Broker) Close() error {
	return b.server.Close()
}
