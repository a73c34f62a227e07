package ack

import (
	"reflect"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Map
	}{
		{
			name: "fields with encoded space",
			line: "playlist_tracks%3A5 playlist_name%3Amy%20list",
			want: Map{"playlist_tracks": "5", "playlist_name": "my list"},
		},
		{
			name: "plain words dropped",
			line: "garbage nocolon",
			want: Map{},
		},
		{
			name: "empty line",
			line: "",
			want: Map{},
		},
		{
			name: "later duplicate wins",
			line: "mode%3Astop mode%3Aplay\n",
			want: Map{"mode": "play"},
		},
		{
			name: "split at first separator",
			line: "time%3A1%3A30",
			want: Map{"time": "1%3A30"},
		},
		{
			name: "status reply",
			line: "cc%3Acc%3A5c%3A56%3Acb%3A58 status 0 19 player_name%3AKitchen playlist_tracks%3A0\n",
			want: Map{"cc": "cc%3A5c%3A56%3Acb%3A58", "player_name": "Kitchen", "playlist_tracks": "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Decode(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestTrackCount(t *testing.T) {
	tests := []struct {
		m    Map
		want int
	}{
		{Map{"playlist_tracks": "0"}, 0},
		{Map{"playlist_tracks": "12"}, 12},
		{Map{}, UnknownTracks},
		{nil, UnknownTracks},
		{Map{"playlist_tracks": "many"}, UnknownTracks},
	}
	for _, tt := range tests {
		if got := TrackCount(tt.m); got != tt.want {
			t.Fatalf("TrackCount(%v) = %d, want %d", tt.m, got, tt.want)
		}
	}
}

func TestGet(t *testing.T) {
	m := Decode("mode%3Apause")
	if v, ok := m.Get("mode"); !ok || v != "pause" {
		t.Fatalf("Get(mode) = %q, %v", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatalf("expected miss")
	}
}
