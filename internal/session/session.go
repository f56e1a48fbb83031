// SPDX-License-Identifier: MIT

// Package session holds the recording-session record and the in-memory
// registry the orchestrator owns.
package session

import (
	"time"

	"github.com/voicepick/recorderd/internal/sdkauth"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusStarting  Status = "starting"
	StatusRecording Status = "recording"
	StatusStopping  Status = "stopping"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"

	// StatusNotFound is the sentinel returned by status reads for ids
	// absent from the registry.
	StatusNotFound Status = "not_found"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Config is the serialized contract handed to the external recorder.
// Written once before process start, read once by the recorder, never
// mutated after write.
type Config struct {
	MeetingNumber  string             `json:"meetingNumber"`
	Password       string             `json:"password"`
	UserName       string             `json:"userName"`
	OutputPath     string             `json:"outputPath"`
	AudioFile      string             `json:"audioFile"`
	VideoFile      string             `json:"videoFile"`
	SessionID      string             `json:"sessionId"`
	UploadedFileID string             `json:"uploadedFileId"`
	Auth           sdkauth.AuthConfig `json:"auth"`
}

// Record is the unit of work: one recording engagement with one external
// recorder process. All fields except Status are immutable after creation;
// Status is mutated only by the orchestrator.
type Record struct {
	SessionID string
	Config    Config
	Status    Status
	StartTime time.Time
}

// Summary is the read-only view returned by list operations.
type Summary struct {
	SessionID     string    `json:"sessionId"`
	Status        Status    `json:"status"`
	StartTime     time.Time `json:"startTime"`
	MeetingNumber string    `json:"meetingNumber"`
}

// Snapshot is the read-only view returned by status reads.
type Snapshot struct {
	SessionID string    `json:"sessionId"`
	Status    Status    `json:"status"`
	StartTime time.Time `json:"startTime,omitzero"`
	Config    *Config   `json:"config,omitempty"`
}
