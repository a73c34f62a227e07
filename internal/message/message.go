// Package message defines the core data types flowing through the jukebox pipeline.
package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrMalformedEnvelope is returned when an inbound body cannot be decoded
// into an Envelope.
var ErrMalformedEnvelope = errors.New("malformed envelope")

// Top-level envelope commands accepted by the dispatcher.
const (
	EnvelopePlay    = "play"
	EnvelopeNext    = "next"
	EnvelopeStop    = "stop"
	EnvelopeJukebox = "jukebox"
)

// Envelope is the decoded body of an inbound trigger, whichever transport
// delivered it.
type Envelope struct {
	// ID is a unique identifier assigned on receipt (used for log correlation).
	ID string `json:"id,omitempty"`

	// Source identifies the transport that received the request (e.g., "trigger", "mqtt").
	Source string `json:"source,omitempty"`

	// Command is the top-level command: "play", "next", "stop" or "jukebox".
	Command string `json:"command"`

	// Parameter is a search term for "play" and a raw utterance for "jukebox".
	Parameter string `json:"parameter,omitempty"`

	// Timestamp is when the request was received.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// DecodeEnvelope parses the JSON body of an inbound request.
// An empty body or invalid JSON yields ErrMalformedEnvelope.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedEnvelope)
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return &env, nil
}

// Verb is a classified playback action.
type Verb string

const (
	VerbNext   Verb = "next"
	VerbPause  Verb = "pause"
	VerbResume Verb = "resume"
	VerbStop   Verb = "stop"
	VerbPlay   Verb = "play"
)

// Command is a verb plus, for VerbPlay, the free-text search term.
type Command struct {
	Verb Verb `json:"verb"`

	// SearchTerm is only meaningful for VerbPlay. It may be empty.
	SearchTerm string `json:"search_term,omitempty"`
}

func (c Command) String() string {
	if c.Verb == VerbPlay {
		return fmt.Sprintf("play(%q)", c.SearchTerm)
	}
	return string(c.Verb)
}

// Request is the result of resolving one utterance: which player, and what to do.
// It is built fresh per utterance and never mutated.
type Request struct {
	DeviceID string  `json:"device_id"`
	Command  Command `json:"command"`
}

// Device is one addressable player known to the registry.
type Device struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	ID   string `json:"id" yaml:"id" mapstructure:"id"`
}

// Result is the outcome of handling one envelope.
type Result struct {
	// RequestID is the envelope ID.
	RequestID string `json:"request_id"`

	// Handled is false when the envelope command was not recognized.
	Handled bool `json:"handled"`

	// DeviceID is the player the command was sent to.
	DeviceID string `json:"device_id,omitempty"`

	// Command is the resolved playback command.
	Command *Command `json:"command,omitempty"`

	// Tracks is the playlist length observed after a search, -1 if unknown.
	Tracks *int `json:"tracks,omitempty"`

	// Error is set if handling failed.
	Error string `json:"error,omitempty"`
}
