package message

import (
	"errors"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"command":"jukebox","parameter":"play some jazz on kitchen"}` + "\r\n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Command != EnvelopeJukebox {
		t.Fatalf("command = %q", env.Command)
	}
	if env.Parameter != "play some jazz on kitchen" {
		t.Fatalf("parameter = %q", env.Parameter)
	}
}

func TestDecodeEnvelopeWithoutCommand(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"parameter":"x"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Command != "" {
		t.Fatalf("expected empty command, got %q", env.Command)
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	for _, body := range []string{"", "   ", "not json", `{"command":`} {
		if _, err := DecodeEnvelope([]byte(body)); !errors.Is(err, ErrMalformedEnvelope) {
			t.Fatalf("body %q: expected ErrMalformedEnvelope, got %v", body, err)
		}
	}
}

func TestCommandString(t *testing.T) {
	if got := (Command{Verb: VerbPlay, SearchTerm: "the beatles"}).String(); got != `play("the beatles")` {
		t.Fatalf("got %s", got)
	}
	if got := (Command{Verb: VerbPause}).String(); got != "pause" {
		t.Fatalf("got %s", got)
	}
}
