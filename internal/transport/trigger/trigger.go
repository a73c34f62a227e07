// Package trigger implements the raw TCP trigger transport.
//
// Home-automation hubs fire a bare HTTP-ish POST at the daemon: a request
// line and headers, a blank line, then a small JSON body. The transport does
// not speak HTTP. It reads at most two chunks, takes everything after the
// first blank line as the envelope and answers with a single status line
// before closing the connection. Connections are handled one at a time.
package trigger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nadzzz/jukebox/internal/message"
	"github.com/nadzzz/jukebox/internal/transport"
)

// Status lines written back to the caller. The reason phrase is "OK" for both.
const (
	StatusOK     = "HTTP/1.0 200 OK\r\n"
	StatusFailed = "HTTP/1.0 404 OK\r\n"
)

const (
	readChunk      = 2048
	defaultTimeout = 10 * time.Second

	// Accept retry backoff, doubling between the two bounds.
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

var (
	headerEnd = []byte("\r\n\r\n")

	errNoBody      = errors.New("trigger: no request body")
	errRateLimited = errors.New("trigger: rate limited")
)

// Config configures the trigger listener.
type Config struct {
	Port int

	// ReadTimeout bounds reading the request. Defaults to 10s.
	ReadTimeout time.Duration

	// RateLimit is the sustained number of requests per second accepted.
	// Zero disables limiting.
	RateLimit float64
	Burst     int
}

// Transport implements transport.Transport over raw TCP.
type Transport struct {
	cfg     Config
	limiter *rate.Limiter

	mu sync.Mutex
	ln net.Listener
}

// New creates a trigger transport.
func New(cfg Config) *Transport {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultTimeout
	}
	t := &Transport{cfg: cfg}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return t
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "trigger" }

// Listen binds the configured port and serves until ctx is cancelled.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", t.cfg.Port))
	if err != nil {
		return fmt.Errorf("trigger listen: %w", err)
	}
	slog.Info("trigger transport listening", "port", t.cfg.Port)
	return t.Serve(ctx, ln, handler)
}

// Serve accepts connections on ln until ctx is cancelled or Close is called.
func (t *Transport) Serve(ctx context.Context, ln net.Listener, handler transport.Handler) error {
	t.mu.Lock()
	t.ln = ln
	t.mu.Unlock()

	go func() {
		<-ctx.Done()
		slog.Info("trigger transport shutting down")
		_ = ln.Close()
	}()

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			delay = nextAcceptDelay(delay)
			slog.Warn("trigger accept failed", "error", err, "retry_in", delay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
			continue
		}
		delay = 0
		t.serveConn(ctx, conn, handler)
	}
}

func nextAcceptDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptDelay
	}
	return min(prev*2, maxAcceptDelay)
}

// Close stops accepting connections.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ln == nil {
		return nil
	}
	err := t.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (t *Transport) serveConn(ctx context.Context, conn net.Conn, handler transport.Handler) {
	remote := conn.RemoteAddr().String()
	logger := slog.With("transport", "trigger", "remote", remote)
	defer conn.Close()

	ok := false
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic while handling trigger", "panic", r)
			ok = false
		}
		writeStatus(conn, ok, logger)
	}()

	if t.limiter != nil && !t.limiter.Allow() {
		logger.Warn("request rejected", "error", errRateLimited)
		return
	}

	_ = conn.SetReadDeadline(time.Now().Add(t.cfg.ReadTimeout))
	body, err := readBody(conn)
	if err != nil {
		logger.Warn("reading request failed", "error", err)
		return
	}

	env, err := message.DecodeEnvelope(body)
	if err != nil {
		logger.Warn("rejecting request", "error", err)
		return
	}
	env.Source = "trigger:" + remote

	if _, err := handler(ctx, env); err != nil {
		logger.Warn("dispatch failed", "error", err)
		return
	}
	ok = true
}

// readBody returns the bytes following the header block. When the first read
// holds only headers, the body is taken from a second read. A first chunk
// with no header block that already looks like JSON is the body itself.
func readBody(r io.Reader) ([]byte, error) {
	buf := make([]byte, readChunk)
	n, err := r.Read(buf)
	if n == 0 {
		if err == nil || err == io.EOF {
			return nil, errNoBody
		}
		return nil, err
	}
	chunk := buf[:n]

	if _, body, found := bytes.Cut(chunk, headerEnd); found {
		if len(bytes.TrimSpace(body)) > 0 {
			return body, nil
		}
	} else if bytes.HasPrefix(bytes.TrimSpace(chunk), []byte("{")) {
		return chunk, nil
	}

	buf = make([]byte, readChunk)
	n, err = r.Read(buf)
	if n == 0 {
		if err == nil || err == io.EOF {
			return nil, errNoBody
		}
		return nil, err
	}
	return buf[:n], nil
}

func writeStatus(conn net.Conn, ok bool, logger *slog.Logger) {
	line := StatusFailed
	if ok {
		line = StatusOK
	}
	_ = conn.SetWriteDeadline(time.Now().Add(defaultTimeout))
	if _, err := io.WriteString(conn, line); err != nil {
		logger.Debug("writing status failed", "error", err)
	}
}
