// SPDX-License-Identifier: MIT

// Package orchestrator coordinates recording sessions: it builds the session
// record, generates credentials, writes the recorder configuration, launches
// the supervised recorder process, reconciles its textual protocol into the
// session state machine, enforces lifecycle timeouts, and reports completion
// to the system of record.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voicepick/recorderd/internal/config"
	"github.com/voicepick/recorderd/internal/log"
	"github.com/voicepick/recorderd/internal/meeting"
	"github.com/voicepick/recorderd/internal/notify"
	"github.com/voicepick/recorderd/internal/recorder"
	"github.com/voicepick/recorderd/internal/sdkauth"
	"github.com/voicepick/recorderd/internal/session"
)

// Launcher starts a recorder process. Swappable for tests.
type Launcher func(recorder.Spec) (*recorder.Handle, error)

// Orchestrator owns the session registry and every live recorder process.
// Operations on distinct session ids proceed concurrently; operations on the
// same id are serialized by the per-session run loop.
type Orchestrator struct {
	registry *session.Registry
	auth     *sdkauth.Generator
	notifier *notify.Client
	launch   Launcher

	recordingsDir string
	recorderPath  string
	sdkKey        string
	sdkSecret     string
	startTimeout  time.Duration
	stopTimeout   time.Duration

	// active holds the per-session runtime alongside the registry record.
	// Registry membership and active membership change together.
	mu     sync.Mutex
	active map[string]*activeSession
}

// New builds an Orchestrator from the daemon configuration.
func New(cfg config.Config, notifier *notify.Client) *Orchestrator {
	o := &Orchestrator{
		registry:      session.NewRegistry(),
		auth:          sdkauth.New(cfg.SDKKey, cfg.SDKSecret),
		notifier:      notifier,
		launch:        recorder.Start,
		recordingsDir: cfg.RecordingsDir,
		recorderPath:  cfg.RecorderPath,
		sdkKey:        cfg.SDKKey,
		sdkSecret:     cfg.SDKSecret,
		startTimeout:  cfg.StartTimeout,
		stopTimeout:   cfg.StopTimeout,
		active:        make(map[string]*activeSession),
	}
	return o
}

// SetLauncher overrides the recorder launcher (tests).
func (o *Orchestrator) SetLauncher(l Launcher) { o.launch = l }

// Registry exposes the session registry for read-only API handlers.
func (o *Orchestrator) Registry() *session.Registry { return o.registry }

// StartRequest describes a session start.
type StartRequest struct {
	// MeetingRef is a join URL or bare meeting number.
	MeetingRef string
	// UserName is the display name the recorder presents. Defaults to
	// "Recording Bot".
	UserName string
	// UploadedFileID correlates to the system of record. When absent or
	// not a valid UUID, a record is provisioned via the creation endpoint.
	UploadedFileID string
	// SessionID is optional; generated when empty.
	SessionID string
}

// StartResult reports a successful session start.
type StartResult struct {
	SessionID      string
	MeetingNumber  string
	UploadedFileID string
	Message        string
}

// StopResult reports a completed stop.
type StopResult struct {
	SessionID string
	AudioFile string
	Duration  time.Duration
}

type startOutcome struct {
	message string
	err     error
}

type stopOutcome struct {
	audioFile string
	duration  time.Duration
	err       error
}

type activeSession struct {
	rec    *session.Record
	handle *recorder.Handle

	startCh chan startOutcome
	stopReq chan chan stopOutcome
	done    chan struct{}
}

// Start parses the meeting reference, prepares the session working
// directory, credentials and recorder configuration, launches the recorder,
// and blocks until the recorder joins, fails authentication, exits, or the
// start window elapses.
func (o *Orchestrator) Start(ctx context.Context, req StartRequest) (StartResult, error) {
	ref, err := meeting.Parse(req.MeetingRef)
	if err != nil {
		startsTotal.WithLabelValues("invalid_reference").Inc()
		return StartResult{}, err
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	ctx = log.ContextWithSessionID(ctx, sessionID)
	logger := log.WithComponentFromContext(ctx, "orchestrator")

	userName := req.UserName
	if userName == "" {
		userName = "Recording Bot"
	}

	fileID, err := o.resolveFileID(ctx, logger, req, ref.MeetingNumber, sessionID)
	if err != nil {
		startsTotal.WithLabelValues("file_id_error").Inc()
		return StartResult{}, err
	}

	sessionDir := filepath.Join(o.recordingsDir, sessionID)
	if err := os.MkdirAll(sessionDir, 0o750); err != nil {
		startsTotal.WithLabelValues("io_error").Inc()
		return StartResult{}, fmt.Errorf("create session directory: %w", err)
	}

	// Credential failure is recoverable: the recorder falls back to an
	// unauthenticated simulation run.
	authCfg, err := o.auth.GenerateAuthConfig(ref.MeetingNumber, ref.Password, userName)
	if err != nil {
		if !errors.Is(err, sdkauth.ErrCredentialsUnavailable) {
			startsTotal.WithLabelValues("auth_config_error").Inc()
			return StartResult{}, err
		}
		logger.Warn().Err(err).Msg("no SDK credentials, proceeding in simulation mode")
	}

	cfg := session.Config{
		MeetingNumber:  ref.MeetingNumber,
		Password:       ref.Password,
		UserName:       userName,
		OutputPath:     sessionDir,
		AudioFile:      filepath.Join(sessionDir, "audio.wav"),
		VideoFile:      filepath.Join(sessionDir, "video.mp4"),
		SessionID:      sessionID,
		UploadedFileID: fileID,
		Auth:           authCfg,
	}

	configPath := filepath.Join(sessionDir, "config.json")
	if err := writeConfigFile(configPath, cfg); err != nil {
		startsTotal.WithLabelValues("io_error").Inc()
		return StartResult{}, err
	}

	rec := &session.Record{
		SessionID: sessionID,
		Config:    cfg,
		Status:    session.StatusStarting,
		StartTime: time.Now(),
	}

	o.mu.Lock()
	if _, exists := o.active[sessionID]; exists || !o.registry.Put(rec) {
		o.mu.Unlock()
		startsTotal.WithLabelValues("duplicate").Inc()
		return StartResult{}, fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}

	handle, err := o.launch(recorder.Spec{
		ExecPath:   o.recorderPath,
		ConfigPath: configPath,
		SDKKey:     o.sdkKey,
		SDKSecret:  o.sdkSecret,
	})
	if err != nil {
		o.registry.Delete(sessionID)
		o.mu.Unlock()
		startsTotal.WithLabelValues("spawn_error").Inc()
		return StartResult{}, fmt.Errorf("launch recorder: %w", err)
	}

	rt := &activeSession{
		rec:     rec,
		handle:  handle,
		startCh: make(chan startOutcome, 1),
		stopReq: make(chan chan stopOutcome),
		done:    make(chan struct{}),
	}
	o.active[sessionID] = rt
	activeSessions.Set(float64(o.registry.Len()))
	o.mu.Unlock()

	go o.run(rt)

	select {
	case out := <-rt.startCh:
		if out.err != nil {
			startsTotal.WithLabelValues("failed").Inc()
			return StartResult{}, out.err
		}
		startsTotal.WithLabelValues("ok").Inc()
		logger.Info().
			Str(log.FieldMeeting, ref.MeetingNumber).
			Str(log.FieldFileID, fileID).
			Msg(out.message)
		return StartResult{
			SessionID:      sessionID,
			MeetingNumber:  ref.MeetingNumber,
			UploadedFileID: fileID,
			Message:        out.message,
		}, nil
	case <-ctx.Done():
		// The caller went away; the session keeps running and will be
		// finalized by its run loop.
		return StartResult{}, ctx.Err()
	}
}

// resolveFileID validates the caller-supplied file id or provisions one.
func (o *Orchestrator) resolveFileID(ctx context.Context, logger zerolog.Logger, req StartRequest, meetingNumber, sessionID string) (string, error) {
	if _, err := uuid.Parse(req.UploadedFileID); err == nil {
		return req.UploadedFileID, nil
	}
	if o.notifier == nil || !o.notifier.Enabled() {
		logger.Warn().Msg("no valid file id and no system of record configured, completion will not be reported")
		return "", nil
	}
	file, err := o.notifier.CreateUploadedFile(ctx, req.MeetingRef, meetingNumber, sessionID)
	if err != nil {
		return "", err
	}
	logger.Info().Str(log.FieldFileID, file.ID).Msg("provisioned uploaded file record")
	return file.ID, nil
}

// Stop requests cooperative shutdown of a live session and blocks until the
// recorder exits or the stop window escalates to a kill.
func (o *Orchestrator) Stop(ctx context.Context, sessionID string) (StopResult, error) {
	o.mu.Lock()
	rt, ok := o.active[sessionID]
	o.mu.Unlock()
	if !ok {
		return StopResult{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	reply := make(chan stopOutcome, 1)
	select {
	case rt.stopReq <- reply:
	case <-rt.done:
		// Finalized concurrently; the session is gone.
		return StopResult{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	case <-ctx.Done():
		return StopResult{}, ctx.Err()
	}

	select {
	case out := <-reply:
		if out.err != nil {
			return StopResult{}, out.err
		}
		return StopResult{
			SessionID: sessionID,
			AudioFile: out.audioFile,
			Duration:  out.duration,
		}, nil
	case <-ctx.Done():
		return StopResult{}, ctx.Err()
	}
}

// Status returns a point-in-time view of the session, with a not_found
// sentinel for unknown ids.
func (o *Orchestrator) Status(sessionID string) session.Snapshot {
	return o.registry.Snapshot(sessionID)
}

// ListActive returns summaries of all registered sessions.
func (o *Orchestrator) ListActive() []session.Summary {
	return o.registry.List()
}

// Shutdown stops all live sessions and waits for their run loops to finish,
// bounded by ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.mu.Lock()
	running := make([]*activeSession, 0, len(o.active))
	for _, rt := range o.active {
		running = append(running, rt)
	}
	o.mu.Unlock()

	for _, rt := range running {
		reply := make(chan stopOutcome, 1)
		select {
		case rt.stopReq <- reply:
		case <-rt.done:
		case <-ctx.Done():
			return
		}
	}
	for _, rt := range running {
		select {
		case <-rt.done:
		case <-ctx.Done():
			return
		}
	}
}

func (o *Orchestrator) deregister(sessionID string) {
	o.mu.Lock()
	delete(o.active, sessionID)
	o.registry.Delete(sessionID)
	activeSessions.Set(float64(o.registry.Len()))
	o.mu.Unlock()
}

func (o *Orchestrator) transition(rec *session.Record, to session.Status) {
	from := rec.Status
	o.registry.SetStatus(rec.SessionID, to)
	transitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	logger := log.WithComponent("orchestrator")
	logger.Debug().
		Str(log.FieldSessionID, rec.SessionID).
		Str(log.FieldOldState, string(from)).
		Str(log.FieldNewState, string(to)).
		Msg("session state transition")
}

// writeConfigFile writes the recorder configuration atomically. The recorder
// reads it exactly once at its own start; it must never observe a partial
// document.
func writeConfigFile(path string, cfg session.Config) error {
	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	enc := json.NewEncoder(pending)
	enc.SetIndent("", "  ")
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode recorder config: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace recorder config: %w", err)
	}
	return nil
}
