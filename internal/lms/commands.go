package lms

import (
	"fmt"
	"strings"
)

// Search fields accepted by "playlist addtracks".
const (
	FieldTrackTitle  = "track.titlesearch"
	FieldAlbumTitle  = "album.titlesearch"
	FieldContributor = "contributor.namesearch"
)

// SearchFields lists the fields a play request searches, in order.
var SearchFields = []string{FieldTrackTitle, FieldAlbumTitle, FieldContributor}

// EncodeTerm substitutes %20 for spaces so the search term stays one token.
// Other reserved characters (%, &, =) are passed through untouched.
func EncodeTerm(term string) string {
	return strings.ReplaceAll(term, " ", "%20")
}

func line(playerID, verb string) string {
	return playerID + " " + verb + "\n"
}

// ClearPlaylist empties the player's playlist.
func ClearPlaylist(playerID string) string { return line(playerID, "playlist clear") }

// AddTracks appends every track matching term in field to the playlist.
func AddTracks(playerID, field, term string) string {
	return line(playerID, fmt.Sprintf("playlist addtracks %s%%3D%s", field, EncodeTerm(term)))
}

// Play starts playback of the current playlist.
func Play(playerID string) string { return line(playerID, "play") }

// Pause pauses output.
func Pause(playerID string) string { return line(playerID, "pause 1") }

// Resume continues after a pause.
func Resume(playerID string) string { return line(playerID, "pause 0") }

// Next skips to the next playlist entry.
func Next(playerID string) string { return line(playerID, "playlist index +1") }

// Stop stops playback.
func Stop(playerID string) string { return line(playerID, "stop") }

// Status requests player status including playlist_tracks.
func Status(playerID string) string { return line(playerID, "status 0 19") }
