// Package transport defines the interface for pluggable request transports.
//
// Each transport (trigger TCP, HTTP, gRPC, MQTT) implements this interface
// and feeds decoded envelopes to the dispatcher. The dispatcher doesn't care
// how requests arrive; it only works with the Transport contract.
package transport

import (
	"context"

	"github.com/nadzzz/jukebox/internal/message"
)

// Handler processes an incoming envelope and returns a result.
// The dispatcher provides this handler to each transport.
type Handler func(ctx context.Context, env *message.Envelope) (*message.Result, error)

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "trigger", "http", "mqtt").
	Name() string

	// Listen starts accepting requests and dispatches them to the handler.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
