package lms_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/nadzzz/jukebox/internal/lms"
	"github.com/nadzzz/jukebox/internal/lms/lmstest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendDecodesStatus(t *testing.T) {
	srv := lmstest.NewServer(t)
	srv.SetTracks(7)

	c := lms.NewTCP(srv.Addr(), time.Second, quietLogger())
	m := c.Send(context.Background(), lms.Status("cc:cc:5c:56:cb:58"))

	if got := m["playlist_tracks"]; got != "7" {
		t.Fatalf("playlist_tracks = %q, want 7", got)
	}
	cmds := srv.Commands()
	if len(cmds) != 1 || cmds[0] != "cc:cc:5c:56:cb:58 status 0 19" {
		t.Fatalf("unexpected commands %v", cmds)
	}
}

func TestSendAppendsTerminator(t *testing.T) {
	srv := lmstest.NewServer(t)
	c := lms.NewTCP(srv.Addr(), time.Second, quietLogger())

	if _, err := c.SendRaw(context.Background(), "aa play"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if cmds := srv.Commands(); len(cmds) != 1 || cmds[0] != "aa play" {
		t.Fatalf("unexpected commands %v", cmds)
	}
}

func TestSendConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := lms.NewTCP(addr, time.Second, quietLogger())
	if _, err := c.SendRaw(context.Background(), lms.Play("aa")); !errors.Is(err, lms.ErrConnect) {
		t.Fatalf("expected ErrConnect, got %v", err)
	}
	if m := c.Send(context.Background(), lms.Play("aa")); len(m) != 0 {
		t.Fatalf("expected empty map, got %v", m)
	}
}

func TestSendReadTimeout(t *testing.T) {
	srv := lmstest.NewServer(t)
	srv.SetSilent(true)

	c := lms.NewTCP(srv.Addr(), 100*time.Millisecond, quietLogger())
	start := time.Now()
	_, err := c.SendRaw(context.Background(), lms.Status("aa"))
	if !errors.Is(err, lms.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("read was not bounded: %v", elapsed)
	}
	if m := c.Send(context.Background(), lms.Status("aa")); len(m) != 0 {
		t.Fatalf("expected empty map on timeout, got %v", m)
	}
}

func TestCommandLines(t *testing.T) {
	id := "cc:cc:5c:56:cb:58"
	tests := []struct {
		got, want string
	}{
		{lms.ClearPlaylist(id), id + " playlist clear\n"},
		{lms.AddTracks(id, lms.FieldTrackTitle, "some jazz"), id + " playlist addtracks track.titlesearch%3Dsome%20jazz\n"},
		{lms.AddTracks(id, lms.FieldAlbumTitle, "blue"), id + " playlist addtracks album.titlesearch%3Dblue\n"},
		{lms.AddTracks(id, lms.FieldContributor, "miles davis"), id + " playlist addtracks contributor.namesearch%3Dmiles%20davis\n"},
		{lms.Play(id), id + " play\n"},
		{lms.Pause(id), id + " pause 1\n"},
		{lms.Resume(id), id + " pause 0\n"},
		{lms.Next(id), id + " playlist index +1\n"},
		{lms.Stop(id), id + " stop\n"},
		{lms.Status(id), id + " status 0 19\n"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Fatalf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestEncodeTermLeavesReservedCharacters(t *testing.T) {
	if got := lms.EncodeTerm("rock & roll 100%"); got != "rock%20&%20roll%20100%" {
		t.Fatalf("got %q", got)
	}
}
