// Package interpreter defines the interface for turning an utterance into a
// playback request.
//
// An interpreter takes the raw text of a voice trigger ("play the beatles in
// the kitchen") and produces a message.Request: the player to address and the
// command to run on it. Jukebox ships with a rule-based backend (rules).
package interpreter

import (
	"context"
	"errors"

	"github.com/nadzzz/jukebox/internal/message"
)

// ErrEmptyUtterance is returned when an utterance contains no words.
var ErrEmptyUtterance = errors.New("empty utterance")

// Resolver looks up a player id by its display name.
type Resolver interface {
	Resolve(name string) (string, bool)
}

// Interpreter is the interface for utterance classification.
type Interpreter interface {
	// Name returns the backend identifier (e.g., "rules").
	Name() string

	// Interpret resolves the target player and playback command for utterance.
	Interpret(ctx context.Context, utterance string) (message.Request, error)
}
