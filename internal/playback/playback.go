// Package playback sequences LMS commands into playback operations.
//
// The LMS CLI acknowledges every command immediately but applies playlist
// changes asynchronously, so a search-and-play runs as a small linear state
// machine that polls the player status between steps:
//
//	Idle -> Clearing -> WaitEmpty -> Searching -> WaitResults -> Playing -> Idle
//
// Every wait is bounded by retry.Poll. A failed or empty acknowledgement never
// aborts the sequence; a search that finds nothing still ends with "play",
// which is a no-op on an empty playlist.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/jukebox/internal/ack"
	"github.com/nadzzz/jukebox/internal/lms"
	"github.com/nadzzz/jukebox/internal/message"
	"github.com/nadzzz/jukebox/internal/retry"
)

// State is a step of the search-and-play sequence.
type State int

const (
	StateIdle State = iota
	StateClearing
	StateWaitEmpty
	StateSearching
	StateWaitResults
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateClearing:
		return "clearing"
	case StateWaitEmpty:
		return "wait_empty"
	case StateSearching:
		return "searching"
	case StateWaitResults:
		return "wait_results"
	case StatePlaying:
		return "playing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config bounds the polling steps.
type Config struct {
	// PollInterval is the pause between status polls.
	PollInterval time.Duration

	// ClearAttempts caps the status polls waiting for the playlist to empty.
	ClearAttempts int

	// ResultAttempts caps the status polls waiting for search results.
	ResultAttempts int

	// WaitDeadline optionally bounds each wait step in wall-clock time.
	WaitDeadline time.Duration
}

// DefaultConfig polls once a second, up to 30 times for the clear and 19
// times for search results.
func DefaultConfig() Config {
	return Config{
		PollInterval:   time.Second,
		ClearAttempts:  30,
		ResultAttempts: 19,
	}
}

// Report describes the outcome of a search-and-play.
type Report struct {
	DeviceID   string `json:"device_id"`
	SearchTerm string `json:"search_term"`

	// Cleared is true when the playlist was observed empty before searching.
	Cleared       bool `json:"cleared"`
	ClearAttempts int  `json:"clear_attempts"`

	// ResultAttempts is the number of status polls made after searching.
	ResultAttempts int `json:"result_attempts"`

	// Tracks is the last observed playlist length, ack.UnknownTracks if never read.
	Tracks int `json:"tracks"`
}

// Found reports whether the search put anything on the playlist.
func (r Report) Found() bool { return r.Tracks > 0 }

// Option customises a Controller.
type Option func(*Controller)

// WithTransitionHook registers fn to be called on every state change.
func WithTransitionHook(fn func(deviceID string, from, to State)) Option {
	return func(c *Controller) { c.onTransition = fn }
}

// WithLogger sets the controller's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// Controller drives playback on LMS players. It keeps no per-request state;
// the target player is passed to every call.
type Controller struct {
	client       lms.Client
	cfg          Config
	logger       *slog.Logger
	onTransition func(deviceID string, from, to State)
}

// New creates a Controller sending commands through client.
func New(client lms.Client, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		client: client,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs req.Command on req.DeviceID. The Report is only populated for
// VerbPlay.
func (c *Controller) Execute(ctx context.Context, req message.Request) (Report, error) {
	switch req.Command.Verb {
	case message.VerbPlay:
		return c.Play(ctx, req.DeviceID, req.Command.SearchTerm)
	case message.VerbNext:
		c.Next(ctx, req.DeviceID)
	case message.VerbPause:
		c.Pause(ctx, req.DeviceID)
	case message.VerbResume:
		c.Resume(ctx, req.DeviceID)
	case message.VerbStop:
		c.Stop(ctx, req.DeviceID)
	default:
		return Report{}, fmt.Errorf("unsupported verb %q", req.Command.Verb)
	}
	return Report{DeviceID: req.DeviceID, Tracks: ack.UnknownTracks}, nil
}

// Play clears the playlist of deviceID, searches track titles, album titles
// and contributor names for term, waits for results and starts playback.
// The only error is cancellation of ctx.
func (c *Controller) Play(ctx context.Context, deviceID, term string) (Report, error) {
	rep := Report{DeviceID: deviceID, SearchTerm: term, Tracks: ack.UnknownTracks}
	logger := c.logger.With("device_id", deviceID, "search_term", term)

	c.transition(deviceID, StateIdle, StateClearing)
	if m := c.client.Send(ctx, lms.ClearPlaylist(deviceID)); len(m) == 0 {
		logger.Debug("clear not acknowledged, continuing")
	}

	c.transition(deviceID, StateClearing, StateWaitEmpty)
	attempts, err := retry.Poll(ctx, c.waitConfig(c.cfg.ClearAttempts), func(int) bool {
		rep.Tracks = c.TrackCount(ctx, deviceID)
		return rep.Tracks == 0
	})
	rep.ClearAttempts = attempts
	switch {
	case err == nil:
		rep.Cleared = true
	case errors.Is(err, retry.ErrExhausted):
		logger.Warn("playlist did not clear, searching anyway", "attempts", attempts, "tracks", rep.Tracks)
	default:
		return rep, err
	}

	c.transition(deviceID, StateWaitEmpty, StateSearching)
	for _, field := range lms.SearchFields {
		c.client.Send(ctx, lms.AddTracks(deviceID, field, term))
	}

	c.transition(deviceID, StateSearching, StateWaitResults)
	attempts, err = retry.Poll(ctx, c.waitConfig(c.cfg.ResultAttempts), func(int) bool {
		rep.Tracks = c.TrackCount(ctx, deviceID)
		return rep.Tracks > 0
	})
	rep.ResultAttempts = attempts
	if err != nil && !errors.Is(err, retry.ErrExhausted) {
		return rep, err
	}
	if !rep.Found() {
		logger.Info("search found nothing", "attempts", attempts)
	}

	c.transition(deviceID, StateWaitResults, StatePlaying)
	c.client.Send(ctx, lms.Play(deviceID))
	c.transition(deviceID, StatePlaying, StateIdle)

	logger.Info("play complete", "tracks", rep.Tracks)
	return rep, nil
}

// Next skips to the next track.
func (c *Controller) Next(ctx context.Context, deviceID string) {
	c.client.Send(ctx, lms.Next(deviceID))
}

// Pause pauses output.
func (c *Controller) Pause(ctx context.Context, deviceID string) {
	c.client.Send(ctx, lms.Pause(deviceID))
}

// Resume continues output after a pause.
func (c *Controller) Resume(ctx context.Context, deviceID string) {
	c.client.Send(ctx, lms.Resume(deviceID))
}

// Stop stops playback.
func (c *Controller) Stop(ctx context.Context, deviceID string) {
	c.client.Send(ctx, lms.Stop(deviceID))
}

// TrackCount polls the player status once and returns the playlist length,
// ack.UnknownTracks when the player did not report it.
func (c *Controller) TrackCount(ctx context.Context, deviceID string) int {
	return ack.TrackCount(c.client.Send(ctx, lms.Status(deviceID)))
}

func (c *Controller) waitConfig(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts: attempts,
		Interval:    c.cfg.PollInterval,
		Deadline:    c.cfg.WaitDeadline,
	}
}

func (c *Controller) transition(deviceID string, from, to State) {
	c.logger.Debug("playback state", "device_id", deviceID, "from", from.String(), "to", to.String())
	if c.onTransition != nil {
		c.onTransition(deviceID, from, to)
	}
}
