// Package dispatch implements the core request routing engine.
//
// The dispatcher receives decoded envelopes from transports, resolves the
// target player and playback command (directly for the legacy "play", "next"
// and "stop" commands, through the interpreter for "jukebox"), then hands the
// request to the playback controller. Requests are handled one at a time,
// whichever transport delivered them.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nadzzz/jukebox/internal/interpreter"
	"github.com/nadzzz/jukebox/internal/message"
	"github.com/nadzzz/jukebox/internal/playback"
)

// ErrMissingParameter is returned when "play" or "jukebox" arrives without a parameter.
var ErrMissingParameter = fmt.Errorf("%w: missing parameter", message.ErrMalformedEnvelope)

// ErrInvalidParameter is returned when a "play" parameter contains a line
// terminator, which would end the LMS command early.
var ErrInvalidParameter = fmt.Errorf("%w: parameter contains a line break", message.ErrMalformedEnvelope)

// Player executes a resolved request against the LMS.
type Player interface {
	Execute(ctx context.Context, req message.Request) (playback.Report, error)
}

// Dispatcher is the central routing engine.
type Dispatcher struct {
	interpreter   interpreter.Interpreter
	player        Player
	defaultDevice string

	mu  sync.Mutex
	seq atomic.Uint64
}

// New creates a Dispatcher. defaultDevice is the player addressed by the
// legacy commands and by utterances that name no registered player.
func New(interp interpreter.Interpreter, player Player, defaultDevice string) *Dispatcher {
	return &Dispatcher{
		interpreter:   interp,
		player:        player,
		defaultDevice: defaultDevice,
	}
}

// Handle processes a single envelope through the full pipeline.
// This function is passed as the transport.Handler to each transport.
//
// An unrecognized command is logged and returns a Result with Handled=false
// and a nil error. LMS failures are absorbed by the controller; the error is
// non-nil when the request could not be understood or ctx was cancelled.
func (d *Dispatcher) Handle(ctx context.Context, env *message.Envelope) (*message.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if env.ID == "" {
		env.ID = d.nextID()
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}

	start := time.Now()
	logger := slog.With("request_id", env.ID, "source", env.Source)
	logger.Info("dispatch started", "command", env.Command, "parameter", env.Parameter)

	result := &message.Result{RequestID: env.ID}

	req, ok, err := d.resolve(ctx, env)
	if err != nil {
		result.Error = err.Error()
		logger.Error("request rejected", "error", err)
		return result, err
	}
	if !ok {
		logger.Warn("unrecognized command", "command", env.Command)
		return result, nil
	}

	result.Handled = true
	result.DeviceID = req.DeviceID
	result.Command = &req.Command
	logger = logger.With("device_id", req.DeviceID, "verb", req.Command.Verb)

	rep, err := d.player.Execute(ctx, req)
	if req.Command.Verb == message.VerbPlay {
		tracks := rep.Tracks
		result.Tracks = &tracks
	}
	if err != nil {
		result.Error = fmt.Sprintf("executing %s: %v", req.Command, err)
		logger.Error("playback failed", "error", err)
		return result, err
	}

	logger.Info("dispatch complete", "duration", time.Since(start), "command", req.Command.String())
	return result, nil
}

// resolve maps an envelope to a request. ok is false for unrecognized commands.
func (d *Dispatcher) resolve(ctx context.Context, env *message.Envelope) (message.Request, bool, error) {
	switch env.Command {
	case message.EnvelopePlay:
		if env.Parameter == "" {
			return message.Request{}, false, ErrMissingParameter
		}
		if strings.ContainsAny(env.Parameter, "\r\n") {
			return message.Request{}, false, ErrInvalidParameter
		}
		return message.Request{
			DeviceID: d.defaultDevice,
			Command:  message.Command{Verb: message.VerbPlay, SearchTerm: env.Parameter},
		}, true, nil

	case message.EnvelopeNext:
		return message.Request{DeviceID: d.defaultDevice, Command: message.Command{Verb: message.VerbNext}}, true, nil

	case message.EnvelopeStop:
		return message.Request{DeviceID: d.defaultDevice, Command: message.Command{Verb: message.VerbStop}}, true, nil

	case message.EnvelopeJukebox:
		if env.Parameter == "" {
			return message.Request{}, false, ErrMissingParameter
		}
		req, err := d.interpreter.Interpret(ctx, env.Parameter)
		if err != nil {
			return message.Request{}, false, fmt.Errorf("interpreting %q: %w", env.Parameter, err)
		}
		return req, true, nil

	default:
		return message.Request{}, false, nil
	}
}

func (d *Dispatcher) nextID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + "-" + strconv.FormatUint(d.seq.Add(1), 10)
}

// IsClientError reports whether err means the request could not be understood,
// as opposed to a failure while executing it.
func IsClientError(err error) bool {
	return errors.Is(err, message.ErrMalformedEnvelope) || errors.Is(err, interpreter.ErrEmptyUtterance)
}
