package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Disabled(t *testing.T) {
	c := New("", "")
	assert.False(t, c.Enabled())

	err := c.RecordingCompleted(context.Background(), CompletionPayload{})
	assert.Error(t, err)

	_, err = c.CreateUploadedFile(context.Background(), "https://zoom.us/j/1", "1", "s")
	assert.Error(t, err)
}

func TestClient_RecordingCompleted(t *testing.T) {
	var got CompletionPayload
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/voice_picker/api/meetings/recording-completed/", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL, "token-123")
	require.True(t, c.Enabled())

	err := c.RecordingCompleted(context.Background(), CompletionPayload{
		SessionID:      "sess-1",
		UploadedFileID: "file-1",
		AudioFile:      "/tmp/recordings/sess-1/audio.wav",
		MeetingNumber:  "123456789",
		Duration:       42,
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer token-123", auth)
	assert.Equal(t, "sess-1", got.SessionID)
	assert.Equal(t, "file-1", got.UploadedFileID)
	assert.EqualValues(t, 42, got.Duration)
}

func TestClient_RecordingCompletedServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL, "").RecordingCompleted(context.Background(), CompletionPayload{SessionID: "s"})
	assert.ErrorContains(t, err, "status 500")
}

func TestClient_CreateUploadedFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/voice_picker/api/meetings/create-uploaded-file/", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://zoom.us/j/123456789", body["meetingUrl"])
		assert.Equal(t, "123456789", body["meetingNumber"])
		assert.Equal(t, "sess-1", body["sessionId"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"new-file-id"}`))
	}))
	defer srv.Close()

	file, err := New(srv.URL, "").CreateUploadedFile(context.Background(), "https://zoom.us/j/123456789", "123456789", "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "new-file-id", file.ID)
}

func TestClient_CreateUploadedFileEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").CreateUploadedFile(context.Background(), "u", "m", "s")
	assert.ErrorContains(t, err, "empty id")
}
