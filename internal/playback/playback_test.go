package playback

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nadzzz/jukebox/internal/ack"
	"github.com/nadzzz/jukebox/internal/message"
)

const player = "cc:cc:5c:56:cb:58"

// scriptedClient records commands and answers status polls from a script.
// The last scripted count repeats; a negative count yields an empty ack.
type scriptedClient struct {
	mu       sync.Mutex
	commands []string
	statuses []int
}

func (s *scriptedClient) Send(_ context.Context, command string) ack.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	command = strings.TrimSuffix(command, "\n")
	s.commands = append(s.commands, command)

	if !strings.HasSuffix(command, " status 0 19") {
		return ack.Decode(command + " ok%3A1")
	}
	n := -1
	if len(s.statuses) > 0 {
		n = s.statuses[0]
		if len(s.statuses) > 1 {
			s.statuses = s.statuses[1:]
		}
	}
	if n < 0 {
		return ack.Map{}
	}
	return ack.Map{"playlist_tracks": strconv.Itoa(n)}
}

func (s *scriptedClient) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func testConfig() Config {
	return Config{PollInterval: time.Millisecond, ClearAttempts: 5, ResultAttempts: 4}
}

func newController(client *scriptedClient, opts ...Option) *Controller {
	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(client, testConfig(), opts...)
}

func status() string { return player + " status 0 19" }

func TestPlaySequence(t *testing.T) {
	client := &scriptedClient{statuses: []int{3, 0, 0, 5}}
	c := newController(client)

	rep, err := c.Play(context.Background(), player, "some jazz")
	if err != nil {
		t.Fatalf("play: %v", err)
	}

	want := []string{
		player + " playlist clear",
		status(),
		status(),
		player + " playlist addtracks track.titlesearch%3Dsome%20jazz",
		player + " playlist addtracks album.titlesearch%3Dsome%20jazz",
		player + " playlist addtracks contributor.namesearch%3Dsome%20jazz",
		status(),
		status(),
		player + " play",
	}
	if got := client.Commands(); !reflect.DeepEqual(got, want) {
		t.Fatalf("commands:\n got %q\nwant %q", got, want)
	}
	if !rep.Cleared || rep.ClearAttempts != 2 || rep.ResultAttempts != 2 || rep.Tracks != 5 || !rep.Found() {
		t.Fatalf("unexpected report %+v", rep)
	}
}

func TestPlayWaitResultsIsBounded(t *testing.T) {
	client := &scriptedClient{statuses: []int{0}}
	c := newController(client)

	rep, err := c.Play(context.Background(), player, "nothing matches")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if rep.ResultAttempts != testConfig().ResultAttempts {
		t.Fatalf("result attempts = %d, want %d", rep.ResultAttempts, testConfig().ResultAttempts)
	}
	if rep.Found() {
		t.Fatalf("expected no results")
	}
	cmds := client.Commands()
	if cmds[len(cmds)-1] != player+" play" {
		t.Fatalf("play not issued after exhausted wait: %q", cmds)
	}
}

func TestPlayWaitEmptyIsBounded(t *testing.T) {
	client := &scriptedClient{statuses: []int{8}}
	c := newController(client)

	rep, err := c.Play(context.Background(), player, "jazz")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if rep.Cleared {
		t.Fatalf("playlist should not be reported cleared")
	}
	if rep.ClearAttempts != testConfig().ClearAttempts {
		t.Fatalf("clear attempts = %d", rep.ClearAttempts)
	}

	var adds int
	for _, cmd := range client.Commands() {
		if strings.Contains(cmd, "playlist addtracks") {
			adds++
		}
	}
	if adds != 3 {
		t.Fatalf("expected 3 searches, got %d", adds)
	}
}

func TestPlayUnreachablePlayer(t *testing.T) {
	client := &scriptedClient{statuses: []int{-1}}
	c := newController(client)

	rep, err := c.Play(context.Background(), player, "jazz")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if rep.Tracks != ack.UnknownTracks {
		t.Fatalf("tracks = %d, want unknown", rep.Tracks)
	}
	cmds := client.Commands()
	if cmds[len(cmds)-1] != player+" play" {
		t.Fatalf("play not issued: %q", cmds)
	}
}

func TestPlayTransitions(t *testing.T) {
	client := &scriptedClient{statuses: []int{0, 1}}
	var seen []State
	c := newController(client, WithTransitionHook(func(deviceID string, _, to State) {
		if deviceID != player {
			t.Errorf("hook device = %q", deviceID)
		}
		seen = append(seen, to)
	}))

	if _, err := c.Play(context.Background(), player, "x"); err != nil {
		t.Fatalf("play: %v", err)
	}
	want := []State{StateClearing, StateWaitEmpty, StateSearching, StateWaitResults, StatePlaying, StateIdle}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
}

func TestPlayCancelled(t *testing.T) {
	client := &scriptedClient{statuses: []int{4}}
	c := New(client, Config{PollInterval: time.Hour, ClearAttempts: 10, ResultAttempts: 10},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Play(ctx, player, "x")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSingleCommandVerbs(t *testing.T) {
	tests := []struct {
		verb message.Verb
		want string
	}{
		{message.VerbNext, player + " playlist index +1"},
		{message.VerbPause, player + " pause 1"},
		{message.VerbResume, player + " pause 0"},
		{message.VerbStop, player + " stop"},
	}
	for _, tt := range tests {
		client := &scriptedClient{}
		c := newController(client)
		rep, err := c.Execute(context.Background(), message.Request{DeviceID: player, Command: message.Command{Verb: tt.verb}})
		if err != nil {
			t.Fatalf("%s: %v", tt.verb, err)
		}
		if rep.DeviceID != player {
			t.Fatalf("%s: report device %q", tt.verb, rep.DeviceID)
		}
		if got := client.Commands(); len(got) != 1 || got[0] != tt.want {
			t.Fatalf("%s: commands %q, want [%q]", tt.verb, got, tt.want)
		}
	}
}

func TestPauseTwiceIsIndependent(t *testing.T) {
	client := &scriptedClient{}
	c := newController(client)
	req := message.Request{DeviceID: player, Command: message.Command{Verb: message.VerbPause}}

	for i := 0; i < 2; i++ {
		if _, err := c.Execute(context.Background(), req); err != nil {
			t.Fatalf("execute: %v", err)
		}
	}
	want := []string{player + " pause 1", player + " pause 1"}
	if got := client.Commands(); !reflect.DeepEqual(got, want) {
		t.Fatalf("commands = %q, want %q", got, want)
	}
}

func TestExecuteUnknownVerb(t *testing.T) {
	c := newController(&scriptedClient{})
	if _, err := c.Execute(context.Background(), message.Request{DeviceID: player, Command: message.Command{Verb: "rewind"}}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestStateString(t *testing.T) {
	if StateWaitResults.String() != "wait_results" {
		t.Fatalf("got %s", StateWaitResults)
	}
	if State(42).String() != "state(42)" {
		t.Fatalf("got %s", State(42))
	}
}
