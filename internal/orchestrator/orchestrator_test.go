package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voicepick/recorderd/internal/config"
	"github.com/voicepick/recorderd/internal/meeting"
	"github.com/voicepick/recorderd/internal/notify"
	"github.com/voicepick/recorderd/internal/session"
	"github.com/voicepick/recorderd/internal/wav"
)

const (
	testMeetingURL = "https://zoom.us/j/123456789"
	testFileID     = "f47ac10b-58cc-4372-a567-0e02b2c3d479"
)

// cooperativeRecorder joins immediately and exits 0 on SIGTERM, like the
// real recorder on a healthy run.
const cooperativeRecorder = `#!/bin/sh
trap 'echo RECORDING_STOPPED; echo MEETING_LEFT; exit 0' TERM INT
echo STARTING_BOT
echo MEETING_JOINED_SUCCESSFULLY
echo RECORDING_STARTED
while true; do sleep 0.1; done
`

func writeRecorderScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recorder.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func newTestOrchestrator(t *testing.T, script string, notifier *notify.Client, mutate func(*config.Config)) (*Orchestrator, config.Config) {
	t.Helper()
	cfg := config.Config{
		ListenAddr:    ":0",
		RecordingsDir: t.TempDir(),
		RecorderPath:  script,
		StartTimeout:  5 * time.Second,
		StopTimeout:   2 * time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	if notifier == nil {
		notifier = notify.New("", "")
	}
	return New(cfg, notifier), cfg
}

// writeArtifact lays down a finalized audio artifact where the session will
// look for it. Shell fakes cannot produce a well-formed header themselves.
func writeArtifact(t *testing.T, cfg config.Config, sessionID string) string {
	t.Helper()
	dir := filepath.Join(cfg.RecordingsDir, sessionID)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	path := filepath.Join(dir, "audio.wav")
	w, err := wav.Create(path)
	require.NoError(t, err)
	_, err = w.Write(make([]byte, 3200))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

// notifyCollector is a fake system of record that counts completion posts.
func notifyCollector(t *testing.T, status int) (*httptest.Server, *atomic.Int64, *atomic.Value) {
	t.Helper()
	var completions atomic.Int64
	var lastPayload atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/recording-completed/") {
			var payload notify.CompletionPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			lastPayload.Store(payload)
			completions.Add(1)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &completions, &lastPayload
}

func TestStartStop_FullLifecycle(t *testing.T) {
	srv, completions, lastPayload := notifyCollector(t, http.StatusOK)

	script := writeRecorderScript(t, cooperativeRecorder)
	o, cfg := newTestOrchestrator(t, script, notify.New(srv.URL, "token"), nil)

	audioFile := writeArtifact(t, cfg, "lifecycle-1")

	res, err := o.Start(context.Background(), StartRequest{
		MeetingRef:     testMeetingURL,
		UserName:       "Test Bot",
		UploadedFileID: testFileID,
		SessionID:      "lifecycle-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "lifecycle-1", res.SessionID)
	assert.Equal(t, "123456789", res.MeetingNumber)
	assert.Equal(t, testFileID, res.UploadedFileID)
	assert.Equal(t, "joined live meeting and started recording", res.Message)

	snap := o.Status("lifecycle-1")
	assert.Equal(t, session.StatusRecording, snap.Status)
	require.NotNil(t, snap.Config)
	assert.Empty(t, snap.Config.Auth.JWT, "status must not expose credentials")

	// The recorder configuration was written atomically before launch.
	var written session.Config
	raw, err := os.ReadFile(filepath.Join(cfg.RecordingsDir, "lifecycle-1", "config.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &written))
	assert.Equal(t, "123456789", written.MeetingNumber)
	assert.Equal(t, "Test Bot", written.UserName)
	assert.Equal(t, audioFile, written.AudioFile)
	assert.Equal(t, testFileID, written.UploadedFileID)

	stop, err := o.Stop(context.Background(), "lifecycle-1")
	require.NoError(t, err)
	assert.Equal(t, audioFile, stop.AudioFile)
	assert.GreaterOrEqual(t, stop.Duration, time.Duration(0))

	assert.Equal(t, session.StatusNotFound, o.Status("lifecycle-1").Status)
	assert.Empty(t, o.ListActive())

	assert.EqualValues(t, 1, completions.Load(), "exactly one completion notification")
	payload := lastPayload.Load().(notify.CompletionPayload)
	assert.Equal(t, "lifecycle-1", payload.SessionID)
	assert.Equal(t, testFileID, payload.UploadedFileID)
	assert.Equal(t, audioFile, payload.AudioFile)
	assert.Equal(t, "123456789", payload.MeetingNumber)
}

func TestStart_InvalidReference(t *testing.T) {
	script := writeRecorderScript(t, cooperativeRecorder)
	o, _ := newTestOrchestrator(t, script, nil, nil)

	_, err := o.Start(context.Background(), StartRequest{MeetingRef: "not a meeting"})
	assert.ErrorIs(t, err, meeting.ErrInvalidReference)
	assert.Empty(t, o.ListActive())
}

func TestStart_AuthenticationFailed(t *testing.T) {
	srv, completions, _ := notifyCollector(t, http.StatusOK)

	script := writeRecorderScript(t, `#!/bin/sh
echo "FATAL: AUTHENTICATION_FAILED" >&2
sleep 5
`)
	o, _ := newTestOrchestrator(t, script, notify.New(srv.URL, ""), nil)

	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef:     testMeetingURL,
		UploadedFileID: testFileID,
		SessionID:      "auth-fail",
	})
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	// The session is torn down, not left in failed state.
	assert.Equal(t, session.StatusNotFound, o.Status("auth-fail").Status)
	assert.Empty(t, o.ListActive())
	assert.EqualValues(t, 0, completions.Load())
}

func TestStart_Timeout(t *testing.T) {
	script := writeRecorderScript(t, `#!/bin/sh
sleep 30
`)
	o, _ := newTestOrchestrator(t, script, nil, func(cfg *config.Config) {
		cfg.StartTimeout = 200 * time.Millisecond
	})

	begin := time.Now()
	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef: testMeetingURL,
		SessionID:  "timeout-1",
	})
	assert.ErrorIs(t, err, ErrStartTimeout)
	assert.Less(t, time.Since(begin), 5*time.Second, "timeout must not wait for the process")
	assert.Empty(t, o.ListActive())
}

func TestStart_EarlyExit(t *testing.T) {
	script := writeRecorderScript(t, `#!/bin/sh
echo "sdk init failed"
exit 7
`)
	o, _ := newTestOrchestrator(t, script, nil, nil)

	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef: testMeetingURL,
		SessionID:  "early-exit",
	})
	var exitErr *ProcessExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 7, exitErr.Code)
	assert.Empty(t, o.ListActive())
}

func TestStart_DuplicateSessionRejected(t *testing.T) {
	script := writeRecorderScript(t, cooperativeRecorder)
	o, cfg := newTestOrchestrator(t, script, nil, nil)
	writeArtifact(t, cfg, "dup-1")

	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef: testMeetingURL,
		SessionID:  "dup-1",
	})
	require.NoError(t, err)

	_, err = o.Start(context.Background(), StartRequest{
		MeetingRef: testMeetingURL,
		SessionID:  "dup-1",
	})
	assert.ErrorIs(t, err, ErrSessionExists)
	assert.Len(t, o.ListActive(), 1, "the live session must survive the rejected duplicate")

	_, err = o.Stop(context.Background(), "dup-1")
	require.NoError(t, err)
}

func TestStop_UnknownSession(t *testing.T) {
	script := writeRecorderScript(t, cooperativeRecorder)
	o, _ := newTestOrchestrator(t, script, nil, nil)

	_, err := o.Stop(context.Background(), "never-started")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStop_MissingArtifact(t *testing.T) {
	srv, completions, _ := notifyCollector(t, http.StatusOK)

	script := writeRecorderScript(t, cooperativeRecorder)
	o, _ := newTestOrchestrator(t, script, notify.New(srv.URL, ""), nil)

	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef:     testMeetingURL,
		UploadedFileID: testFileID,
		SessionID:      "no-artifact",
	})
	require.NoError(t, err)

	_, err = o.Stop(context.Background(), "no-artifact")
	assert.ErrorIs(t, err, ErrArtifactMissing)
	assert.Empty(t, o.ListActive())
	assert.EqualValues(t, 0, completions.Load(), "failed sessions are never reported complete")
}

func TestStop_EscalatesToKill(t *testing.T) {
	// Ignores SIGTERM; only SIGKILL removes it.
	script := writeRecorderScript(t, `#!/bin/sh
trap '' TERM
echo MEETING_JOINED
while true; do sleep 0.1; done
`)
	o, cfg := newTestOrchestrator(t, script, nil, func(cfg *config.Config) {
		cfg.StopTimeout = 300 * time.Millisecond
	})
	audioFile := writeArtifact(t, cfg, "stubborn")

	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef: testMeetingURL,
		SessionID:  "stubborn",
	})
	require.NoError(t, err)

	stop, err := o.Stop(context.Background(), "stubborn")
	require.NoError(t, err, "a forced kill still resolves the stop")
	assert.Equal(t, audioFile, stop.AudioFile)
	assert.Empty(t, o.ListActive())
}

func TestNaturalCompletion(t *testing.T) {
	srv, completions, _ := notifyCollector(t, http.StatusOK)

	script := writeRecorderScript(t, `#!/bin/sh
echo MEETING_JOINED
sleep 0.2
echo RECORDING_STOPPED
echo MEETING_LEFT
exit 0
`)
	o, cfg := newTestOrchestrator(t, script, notify.New(srv.URL, ""), nil)
	writeArtifact(t, cfg, "natural")

	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef:     testMeetingURL,
		UploadedFileID: testFileID,
		SessionID:      "natural",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(o.ListActive()) == 0
	}, 5*time.Second, 50*time.Millisecond, "session should finalize after clean exit")

	assert.EqualValues(t, 1, completions.Load())
}

func TestCrashWhileRecording(t *testing.T) {
	srv, completions, _ := notifyCollector(t, http.StatusOK)

	script := writeRecorderScript(t, `#!/bin/sh
echo MEETING_JOINED
sleep 0.2
exit 2
`)
	o, cfg := newTestOrchestrator(t, script, notify.New(srv.URL, ""), nil)
	writeArtifact(t, cfg, "crash")

	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef:     testMeetingURL,
		UploadedFileID: testFileID,
		SessionID:      "crash",
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(o.ListActive()) == 0
	}, 5*time.Second, 50*time.Millisecond)

	assert.EqualValues(t, 0, completions.Load(), "crashes must not be reported complete")
}

func TestNotificationFailureDoesNotFailStop(t *testing.T) {
	srv, completions, _ := notifyCollector(t, http.StatusInternalServerError)

	script := writeRecorderScript(t, cooperativeRecorder)
	o, cfg := newTestOrchestrator(t, script, notify.New(srv.URL, ""), nil)
	writeArtifact(t, cfg, "notify-fail")

	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef:     testMeetingURL,
		UploadedFileID: testFileID,
		SessionID:      "notify-fail",
	})
	require.NoError(t, err)

	_, err = o.Stop(context.Background(), "notify-fail")
	require.NoError(t, err, "notification is best-effort and never fails the stop")
	assert.EqualValues(t, 1, completions.Load(), "single attempt, no retry")
}

func TestStart_ProvisionsFileID(t *testing.T) {
	var created atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/create-uploaded-file/") {
			created.Add(1)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"provisioned-id"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	script := writeRecorderScript(t, cooperativeRecorder)
	o, cfg := newTestOrchestrator(t, script, notify.New(srv.URL, ""), nil)
	writeArtifact(t, cfg, "provision")

	res, err := o.Start(context.Background(), StartRequest{
		MeetingRef:     testMeetingURL,
		UploadedFileID: "not-a-uuid",
		SessionID:      "provision",
	})
	require.NoError(t, err)
	assert.Equal(t, "provisioned-id", res.UploadedFileID)
	assert.EqualValues(t, 1, created.Load())

	_, err = o.Stop(context.Background(), "provision")
	require.NoError(t, err)
}

func TestShutdown_StopsAllSessions(t *testing.T) {
	script := writeRecorderScript(t, cooperativeRecorder)
	o, cfg := newTestOrchestrator(t, script, nil, nil)

	for _, id := range []string{"shutdown-a", "shutdown-b"} {
		writeArtifact(t, cfg, id)
		_, err := o.Start(context.Background(), StartRequest{
			MeetingRef: testMeetingURL,
			SessionID:  id,
		})
		require.NoError(t, err)
	}
	require.Len(t, o.ListActive(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	o.Shutdown(ctx)

	assert.Empty(t, o.ListActive())
}

func TestStart_FailedLaunchRollsBack(t *testing.T) {
	script := filepath.Join(t.TempDir(), "does-not-exist")
	o, _ := newTestOrchestrator(t, script, nil, nil)

	_, err := o.Start(context.Background(), StartRequest{
		MeetingRef: testMeetingURL,
		SessionID:  "no-exec",
	})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSessionExists))

	// The id must be reusable after a failed launch.
	assert.Equal(t, session.StatusNotFound, o.Status("no-exec").Status)
	assert.Empty(t, o.ListActive())
}
