// Package lmstest provides an in-process LMS CLI server for tests.
//
// The fake keeps a single playlist length and models the asynchronous
// behaviour of the real server: a clear only takes effect after a
// configurable number of status polls, and every addtracks search appends a
// configurable number of tracks.
package lmstest

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
)

// Server is a fake LMS CLI endpoint.
type Server struct {
	ln net.Listener

	mu           sync.Mutex
	commands     []string
	tracks       int
	clearDelay   int
	pendingClear int
	perSearch    int
	silent       bool
	wg           sync.WaitGroup
}

// NewServer starts a fake server on a loopback port. It is closed when the
// test finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("lmstest: listen: %v", err)
	}
	s := &Server{ln: ln}
	s.wg.Add(1)
	go s.serve()
	t.Cleanup(s.Close)
	return s
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Close stops accepting connections.
func (s *Server) Close() {
	_ = s.ln.Close()
	s.wg.Wait()
}

// SetTracks sets the current playlist length.
func (s *Server) SetTracks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = n
}

// SetClearDelay sets how many status polls observe the old playlist length
// after a clear.
func (s *Server) SetClearDelay(polls int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearDelay = polls
}

// SetResultsPerSearch sets how many tracks each addtracks appends.
func (s *Server) SetResultsPerSearch(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.perSearch = n
}

// SetSilent makes the server read commands without ever replying.
func (s *Server) SetSilent(silent bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.silent = silent
}

// Commands returns every command line received, without the terminator.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// Tracks returns the current playlist length.
func (s *Server) Tracks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracks
}

func (s *Server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	line = strings.TrimRight(line, "\r\n")

	reply, silent := s.apply(line)
	if silent {
		// Hold the connection open until the client gives up.
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
		return
	}
	_, _ = fmt.Fprintf(conn, "%s\n", reply)
}

func (s *Server) apply(line string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, line)
	if s.silent {
		return "", true
	}

	player, verb, _ := strings.Cut(line, " ")
	switch {
	case verb == "playlist clear":
		if s.clearDelay == 0 {
			s.tracks = 0
		} else {
			s.pendingClear = s.clearDelay
		}
	case strings.HasPrefix(verb, "playlist addtracks "):
		s.tracks += s.perSearch
	case verb == "status 0 19":
		tracks := s.tracks
		if s.pendingClear > 0 {
			s.pendingClear--
			if s.pendingClear == 0 {
				s.tracks = 0
			}
		}
		return fmt.Sprintf("%s status 0 19 player_connected%%3A1 playlist_tracks%%3A%d",
			strings.ReplaceAll(player, ":", "%3A"), tracks), false
	}
	return line, false
}
