// SPDX-License-Identifier: MIT

// Package protocol classifies the line-oriented status protocol the external
// recorder emits on its standard streams. The marker set is closed; matching
// is substring-based and first-match-wins in a fixed priority order.
package protocol

import "strings"

// Stream identifies which standard stream a line arrived on.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stderr {
		return "stderr"
	}
	return "stdout"
}

// Marker is one recognized protocol event.
type Marker int

const (
	// MarkerNone is the classification for unrecognized lines
	// (heartbeats, SDK chatter, progress output).
	MarkerNone Marker = iota
	MarkerStartingBot
	MarkerAuthSuccess
	MarkerAuthFailed
	MarkerJoinedLive
	MarkerFallbackSimulation
	MarkerJoined
	MarkerRecordingStarted
	MarkerHeartbeat
	MarkerAudioFileCreated
	MarkerRecordingStopped
	MarkerMeetingLeft
)

var markerNames = map[Marker]string{
	MarkerNone:               "none",
	MarkerStartingBot:        "starting_bot",
	MarkerAuthSuccess:        "auth_success",
	MarkerAuthFailed:         "auth_failed",
	MarkerJoinedLive:         "joined_live",
	MarkerFallbackSimulation: "fallback_simulation",
	MarkerJoined:             "joined",
	MarkerRecordingStarted:   "recording_started",
	MarkerHeartbeat:          "heartbeat",
	MarkerAudioFileCreated:   "audio_file_created",
	MarkerRecordingStopped:   "recording_stopped",
	MarkerMeetingLeft:        "meeting_left",
}

func (m Marker) String() string {
	if name, ok := markerNames[m]; ok {
		return name
	}
	return "unknown"
}

// JoinsRecording reports whether the marker transitions a session from
// starting to recording.
func (m Marker) JoinsRecording() bool {
	switch m {
	case MarkerJoinedLive, MarkerFallbackSimulation, MarkerJoined, MarkerRecordingStarted:
		return true
	}
	return false
}

// JoinMessage renders the human-readable start status for a join marker.
func (m Marker) JoinMessage() string {
	switch m {
	case MarkerJoinedLive:
		return "joined live meeting and started recording"
	case MarkerFallbackSimulation:
		return "could not join meeting, using simulation mode"
	case MarkerJoined:
		return "joined meeting in simulation mode"
	default:
		return "recording started"
	}
}

// stdout markers in priority order. MEETING_JOINED_SUCCESSFULLY must be
// probed before MEETING_JOINED: the latter is a substring of the former.
var stdoutMarkers = []struct {
	substr string
	marker Marker
}{
	{"MEETING_JOINED_SUCCESSFULLY", MarkerJoinedLive},
	{"FALLBACK_TO_SIMULATION_MODE", MarkerFallbackSimulation},
	{"MEETING_JOINED", MarkerJoined},
	{"RECORDING_STARTED", MarkerRecordingStarted},
	{"AUDIO_FILE_CREATED:", MarkerAudioFileCreated},
	{"RECORDING_HEARTBEAT", MarkerHeartbeat},
	{"RECORDING_STOPPED", MarkerRecordingStopped},
	{"MEETING_LEFT", MarkerMeetingLeft},
	{"AUTHENTICATION_SUCCESS", MarkerAuthSuccess},
	{"STARTING_BOT", MarkerStartingBot},
}

// Event is a classified protocol line.
type Event struct {
	Marker Marker
	Stream Stream
	// Line is the raw line the marker was found on.
	Line string
	// Path carries the artifact path for MarkerAudioFileCreated.
	Path string
}

// Classify maps one output line to a protocol event. Callers must classify
// every line of a burst independently, never just the first.
func Classify(stream Stream, line string) Event {
	if stream == Stderr {
		if strings.Contains(line, "AUTHENTICATION_FAILED") {
			return Event{Marker: MarkerAuthFailed, Stream: stream, Line: line}
		}
		return Event{Marker: MarkerNone, Stream: stream, Line: line}
	}

	for _, entry := range stdoutMarkers {
		if !strings.Contains(line, entry.substr) {
			continue
		}
		ev := Event{Marker: entry.marker, Stream: stream, Line: line}
		if entry.marker == MarkerAudioFileCreated {
			if idx := strings.Index(line, "AUDIO_FILE_CREATED:"); idx >= 0 {
				ev.Path = strings.TrimSpace(line[idx+len("AUDIO_FILE_CREATED:"):])
			}
		}
		return ev
	}
	return Event{Marker: MarkerNone, Stream: stream, Line: line}
}
