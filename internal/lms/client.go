// Package lms implements a client for the Logitech Media Server CLI.
//
// The CLI is a line-oriented TCP protocol (port 9090 by default). Every
// command is a single line of the form "<playerid> <verb> <args>\n" and is
// acknowledged immediately with a single reply line; the effect of the
// command (playlist mutation, search) happens asynchronously on the server.
//
// The TCP client opens a fresh connection per command and closes it
// unconditionally once the reply has been read.
package lms

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/nadzzz/jukebox/internal/ack"
)

var (
	// ErrConnect covers dial and connection-level failures.
	ErrConnect = errors.New("lms: connection failed")

	// ErrTimeout is returned when dial, write or read exceeds the command timeout.
	ErrTimeout = errors.New("lms: command timed out")
)

// DefaultTimeout bounds one command round trip when none is configured.
const DefaultTimeout = 5 * time.Second

const maxReplyBytes = 64 << 10

// Client sends one CLI command and returns the decoded acknowledgement.
// Implementations never fail: an unreachable server yields an empty map.
type Client interface {
	Send(ctx context.Context, command string) ack.Map
}

// TCP is a Client that dials the server for every command.
type TCP struct {
	addr    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewTCP creates a client for the CLI listening on addr (host:port).
func NewTCP(addr string, timeout time.Duration, logger *slog.Logger) *TCP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TCP{addr: addr, timeout: timeout, logger: logger}
}

// Addr returns the server address.
func (c *TCP) Addr() string { return c.addr }

// Send delivers command and decodes the reply. Failures are logged and
// reported as an empty map.
func (c *TCP) Send(ctx context.Context, command string) ack.Map {
	reply, err := c.SendRaw(ctx, command)
	if err != nil {
		c.logger.Error("lms command failed",
			"addr", c.addr,
			"command", strings.TrimSpace(command),
			"error", err)
		return ack.Map{}
	}
	return ack.Decode(reply)
}

// SendRaw delivers command and returns the undecoded reply line.
// Errors wrap ErrConnect or ErrTimeout.
func (c *TCP) SendRaw(ctx context.Context, command string) (string, error) {
	if !strings.HasSuffix(command, "\n") {
		command += "\n"
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.logger.Debug("lms connecting", "addr", c.addr)
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", classify("dial", err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)

	c.logger.Debug("lms sending", "command", strings.TrimSpace(command))
	if _, err := io.WriteString(conn, command); err != nil {
		return "", classify("write", err)
	}

	reply, err := bufio.NewReader(io.LimitReader(conn, maxReplyBytes)).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && reply != "") {
		return "", classify("read", err)
	}
	c.logger.Debug("lms reply", "reply", strings.TrimSpace(reply))
	return reply, nil
}

func classify(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrConnect, op, err)
	}
}
