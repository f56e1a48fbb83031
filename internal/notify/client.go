// SPDX-License-Identifier: MIT

// Package notify talks to the downstream system of record. Completion
// notifications are strictly best-effort: one attempt, no retry, failures
// are logged by the caller and never surfaced to the stop path.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/voicepick/recorderd/internal/log"
)

// Recorder-completion and file-provisioning endpoints of the system of record.
const (
	recordingCompletedPath = "/voice_picker/api/meetings/recording-completed/"
	createUploadedFilePath = "/voice_picker/api/meetings/create-uploaded-file/"
)

// CompletionPayload reports a finished recording.
type CompletionPayload struct {
	SessionID      string `json:"sessionId"`
	UploadedFileID string `json:"uploadedFileId"`
	AudioFile      string `json:"audioFile"`
	MeetingNumber  string `json:"meetingNumber"`
	// Duration is the elapsed recording time in whole seconds.
	Duration int64 `json:"duration"`
}

// UploadedFile is the record provisioned for recordings started without a
// valid file id.
type UploadedFile struct {
	ID string `json:"id"`
}

// Client is a thin system-of-record API client. The zero value is not
// usable; construct with New.
type Client struct {
	http    *resty.Client
	baseURL string
}

// New returns a client for the given base URL and bearer token. An empty
// base URL yields a disabled client: Enabled reports false and calls fail.
func New(baseURL, token string) *Client {
	c := resty.New().
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c, baseURL: baseURL}
}

// Enabled reports whether a system of record is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// RecordingCompleted posts a completion notification. Single attempt.
func (c *Client) RecordingCompleted(ctx context.Context, payload CompletionPayload) error {
	if !c.Enabled() {
		return fmt.Errorf("system of record not configured")
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.baseURL + recordingCompletedPath)
	if err != nil {
		return fmt.Errorf("notify recording completed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify recording completed: status %d", resp.StatusCode())
	}

	logger := log.WithComponentFromContext(ctx, "notify")
	logger.Info().
		Str(log.FieldSessionID, payload.SessionID).
		Str(log.FieldFileID, payload.UploadedFileID).
		Int64("duration_s", payload.Duration).
		Msg("recording completion reported")
	return nil
}

// CreateUploadedFile provisions a file record for a session started without
// a syntactically valid file id.
func (c *Client) CreateUploadedFile(ctx context.Context, meetingURL, meetingNumber, sessionID string) (UploadedFile, error) {
	if !c.Enabled() {
		return UploadedFile{}, fmt.Errorf("system of record not configured")
	}

	var file UploadedFile
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"meetingUrl":    meetingURL,
			"meetingNumber": meetingNumber,
			"sessionId":     sessionID,
		}).
		SetResult(&file).
		Post(c.baseURL + createUploadedFilePath)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("create uploaded file: %w", err)
	}
	if resp.IsError() {
		return UploadedFile{}, fmt.Errorf("create uploaded file: status %d", resp.StatusCode())
	}
	if file.ID == "" {
		return UploadedFile{}, fmt.Errorf("create uploaded file: empty id in response")
	}
	return file, nil
}
