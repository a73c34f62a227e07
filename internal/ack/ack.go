// Package ack decodes acknowledgement lines returned by the LMS CLI.
//
// A reply is one line of space-separated tokens. Tagged fields are encoded as
// name%3Avalue, with spaces inside values escaped as %20, so every field stays
// a single whitespace-delimited token:
//
//	00:04:20:12:34:56 status 0 19 mode%3Aplay playlist_tracks%3A5 playlist_name%3Amy%20list
//
// Decoding is a heuristic. A value that itself carries an encoded colon (a
// player MAC address, for example) is split at its first %3A and comes out
// wrong, and a key containing a literal %3A cannot be told apart from the
// separator. Callers must not depend on decoded address-shaped fields.
package ack

import (
	"strconv"
	"strings"
)

// Separator is the percent-encoded colon between a field name and its value.
const Separator = "%3A"

// KeyPlaylistTracks is the status field holding the current playlist length.
const KeyPlaylistTracks = "playlist_tracks"

// UnknownTracks is returned by TrackCount when the playlist length is not known.
const UnknownTracks = -1

// Map holds the tagged fields of one acknowledgement line.
// A nil or empty Map is a valid result.
type Map map[string]string

// Decode splits line on whitespace and keeps every token that carries a
// Separator. Later duplicate keys overwrite earlier ones; plain words are
// dropped. Decode never fails.
func Decode(line string) Map {
	m := Map{}
	for _, word := range strings.Fields(line) {
		if !strings.Contains(word, Separator) {
			continue
		}
		word = strings.ReplaceAll(word, "%20", " ")
		key, value, _ := strings.Cut(word, Separator)
		m[key] = value
	}
	return m
}

// Get returns the value stored under key.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// TrackCount returns the playlist length reported in m, or UnknownTracks
// when the field is absent or not an integer.
func TrackCount(m Map) int {
	v, ok := m.Get(KeyPlaylistTracks)
	if !ok {
		return UnknownTracks
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return UnknownTracks
	}
	return n
}
