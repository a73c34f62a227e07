// Package rules implements the Interpreter interface with a fixed,
// word-position grammar.
//
// An utterance may end in a player clause: "in <player>", "on <player>",
// "in the <player>" or "on the <player>". Only the outermost trailing clause
// is considered and player names are single words. Whatever remains is
// classified by its first word:
//
//	next | skip             -> next
//	next track | skip track -> next
//	pause | stop            -> pause
//	continue | resume       -> resume
//	play                    -> resume
//	play <words...>         -> play(<words...>)
//	<anything else>         -> play(<whole utterance>)
package rules

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nadzzz/jukebox/internal/interpreter"
	"github.com/nadzzz/jukebox/internal/message"
)

// Interpreter classifies utterances against a player registry.
type Interpreter struct {
	players       interpreter.Resolver
	defaultPlayer string
}

// New creates a rule-based interpreter. defaultPlayer is used whenever the
// utterance does not name a registered player.
func New(players interpreter.Resolver, defaultPlayer string) *Interpreter {
	return &Interpreter{players: players, defaultPlayer: defaultPlayer}
}

// Name returns the backend identifier.
func (i *Interpreter) Name() string { return "rules" }

// Interpret splits utterance on whitespace and parses it.
func (i *Interpreter) Interpret(_ context.Context, utterance string) (message.Request, error) {
	req, err := Parse(strings.Fields(utterance), i.players, i.defaultPlayer)
	if err != nil {
		return message.Request{}, err
	}
	slog.Debug("utterance interpreted",
		"utterance", utterance,
		"device_id", req.DeviceID,
		"command", req.Command.String())
	return req, nil
}

// Parse resolves the player and command for an already tokenised utterance.
// tokens is not modified.
func Parse(tokens []string, players interpreter.Resolver, defaultPlayer string) (message.Request, error) {
	if len(tokens) == 0 {
		return message.Request{}, interpreter.ErrEmptyUtterance
	}

	deviceID, words := stripPlayer(tokens, players)
	if deviceID == "" {
		deviceID = defaultPlayer
	}

	return message.Request{
		DeviceID: deviceID,
		Command:  classify(words),
	}, nil
}

// stripPlayer removes a trailing "in|on [the] <player>" clause naming a
// registered player and returns that player's id. When there is no such
// clause it returns "" and tokens unchanged.
func stripPlayer(tokens []string, players interpreter.Resolver) (string, []string) {
	n := len(tokens)
	if n <= 3 || players == nil {
		return "", tokens
	}

	id, ok := players.Resolve(tokens[n-1])
	if !ok {
		return "", tokens
	}

	switch {
	case isPreposition(tokens[n-2]):
		return id, tokens[:n-2]
	case tokens[n-2] == "the" && isPreposition(tokens[n-3]):
		return id, tokens[:n-3]
	}
	return "", tokens
}

func isPreposition(word string) bool {
	return word == "in" || word == "on"
}

func classify(words []string) message.Command {
	first := words[0]
	single := len(words) == 1

	switch {
	case single && (first == "next" || first == "skip"):
		return message.Command{Verb: message.VerbNext}
	case len(words) == 2 && (first == "next" || first == "skip") && words[1] == "track":
		return message.Command{Verb: message.VerbNext}
	case single && (first == "pause" || first == "stop"):
		return message.Command{Verb: message.VerbPause}
	case single && (first == "continue" || first == "resume"):
		return message.Command{Verb: message.VerbResume}
	case single && first == "play":
		return message.Command{Verb: message.VerbResume}
	case first == "play":
		return message.Command{Verb: message.VerbPlay, SearchTerm: strings.Join(words[1:], " ")}
	default:
		return message.Command{Verb: message.VerbPlay, SearchTerm: strings.Join(words, " ")}
	}
}
