// SPDX-License-Identifier: MIT

package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/voicepick/recorderd/internal/log"
	"github.com/voicepick/recorderd/internal/notify"
	"github.com/voicepick/recorderd/internal/protocol"
	"github.com/voicepick/recorderd/internal/session"
	"github.com/voicepick/recorderd/internal/wav"
)

// run is the single owner of one session's lifecycle. It serializes protocol
// events, timer expiry, stop requests and process exit into one loop, so no
// other code path mutates the session after registration. Every exit path
// deregisters the session and disarms both timers.
func (o *Orchestrator) run(rt *activeSession) {
	sessionID := rt.rec.SessionID
	l := log.WithComponent("orchestrator").With().
		Str(log.FieldSessionID, sessionID).Logger()

	startTimer := time.NewTimer(o.startTimeout)
	defer startTimer.Stop()
	startTimerC := startTimer.C

	// Armed on the first stop request.
	var stopTimer *time.Timer
	var stopTimerC <-chan time.Time
	defer func() {
		if stopTimer != nil {
			stopTimer.Stop()
		}
	}()

	startResolved := false
	resolveStart := func(msg string, err error) {
		if startResolved {
			return
		}
		startResolved = true
		rt.startCh <- startOutcome{message: msg, err: err}
	}

	var stopReplies []chan stopOutcome
	stopRequested := false
	authFailed := false
	startTimedOut := false
	stopTimedOut := false

	handleEvent := func(ev protocol.Event) {
		if ev.Marker == protocol.MarkerNone {
			l.Debug().Str("stream", ev.Stream.String()).Str("line", ev.Line).Msg("recorder output")
			return
		}
		l.Info().
			Str(log.FieldMarker, ev.Marker.String()).
			Str("stream", ev.Stream.String()).
			Msg("recorder protocol event")

		switch {
		case ev.Marker == protocol.MarkerAuthFailed:
			if rt.rec.Status == session.StatusStarting && !authFailed {
				authFailed = true
				startTimer.Stop()
				startTimerC = nil
				resolveStart("", ErrAuthenticationFailed)
				o.deregister(sessionID)
				rt.handle.Kill()
			}

		case ev.Marker.JoinsRecording():
			if rt.rec.Status == session.StatusStarting {
				startTimer.Stop()
				startTimerC = nil
				o.transition(rt.rec, session.StatusRecording)
				resolveStart(ev.Marker.JoinMessage(), nil)
			}

		case ev.Marker == protocol.MarkerAudioFileCreated:
			l.Info().Str(log.FieldPath, ev.Path).Msg("audio artifact announced")
		}
	}

	lines := rt.handle.Lines()
	exitedCh := rt.handle.Exited()
	exitCode := -1
	exited := false

	for !exited {
		select {
		case line, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			handleEvent(protocol.Classify(line.Stream, line.Text))

		case code := <-exitedCh:
			exitCode = code
			exited = true

		case <-startTimerC:
			startTimerC = nil
			if rt.rec.Status == session.StatusStarting && !startResolved {
				startTimedOut = true
				l.Warn().Dur("timeout", o.startTimeout).Msg("recorder startup timeout, killing process")
				resolveStart("", ErrStartTimeout)
				o.deregister(sessionID)
				rt.handle.Kill()
			}

		case reply := <-rt.stopReq:
			stopReplies = append(stopReplies, reply)
			if !stopRequested {
				stopRequested = true
				o.transition(rt.rec, session.StatusStopping)
				rt.handle.Terminate()
				stopTimer = time.NewTimer(o.stopTimeout)
				stopTimerC = stopTimer.C
			}

		case <-stopTimerC:
			stopTimerC = nil
			stopTimedOut = true
			l.Warn().Dur("timeout", o.stopTimeout).Msg("recorder stop timeout, escalating to kill")
			rt.handle.Kill()
		}
	}

	// The supervisor closes the line channel before reporting the exit
	// code; drain whatever is still buffered so late markers are logged.
	if lines != nil {
		for line := range lines {
			handleEvent(protocol.Classify(line.Stream, line.Text))
		}
	}

	o.finalize(l, rt, finalizeState{
		exitCode:      exitCode,
		authFailed:    authFailed,
		startTimedOut: startTimedOut,
		stopRequested: stopRequested,
		stopTimedOut:  stopTimedOut,
		resolveStart:  resolveStart,
		stopReplies:   stopReplies,
	})
	close(rt.done)
}

type finalizeState struct {
	exitCode      int
	authFailed    bool
	startTimedOut bool
	stopRequested bool
	stopTimedOut  bool
	resolveStart  func(string, error)
	stopReplies   []chan stopOutcome
}

// finalize handles process exit: terminal state, artifact verification,
// completion notification, and registry removal.
func (o *Orchestrator) finalize(l zerolog.Logger, rt *activeSession, st finalizeState) {
	sessionID := rt.rec.SessionID
	l.Info().Int(log.FieldExitCode, st.exitCode).Msg("recorder process exited")

	// A start still pending here (stop before join, crash, clean early
	// exit) is rejected; resolveStart is a no-op once resolved.
	defer st.resolveStart("", &ProcessExitError{Code: st.exitCode})

	failWaiters := func(err error) {
		for _, reply := range st.stopReplies {
			reply <- stopOutcome{err: err}
		}
	}

	switch {
	case st.authFailed:
		// Already deregistered, start already rejected.
		exitsTotal.WithLabelValues("auth_failed").Inc()
		failWaiters(fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID))
		return

	case st.startTimedOut:
		// Already deregistered, start already rejected.
		exitsTotal.WithLabelValues("start_timeout").Inc()
		failWaiters(fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID))
		return

	case rt.rec.Status == session.StatusStarting:
		// Exited before any recognized marker.
		exitsTotal.WithLabelValues("early_exit").Inc()
		o.deregister(sessionID)
		failWaiters(&ProcessExitError{Code: st.exitCode})
		return
	}

	duration := time.Since(rt.rec.StartTime)

	if !st.stopRequested && st.exitCode != 0 {
		// Crash while recording: no artifact handling, no notification.
		exitsTotal.WithLabelValues("crashed").Inc()
		o.transition(rt.rec, session.StatusFailed)
		o.deregister(sessionID)
		failWaiters(&ProcessExitError{Code: st.exitCode})
		return
	}

	reason := "clean"
	if st.stopTimedOut {
		reason = "stop_timeout"
		l.Warn().Err(ErrStopTimeout).Msg("recorder was killed after stop timeout")
	}
	exitsTotal.WithLabelValues(reason).Inc()

	audioFile := rt.rec.Config.AudioFile
	outcome := stopOutcome{audioFile: audioFile, duration: duration}

	if err := verifyArtifact(audioFile); err != nil {
		l.Error().Err(err).Str(log.FieldPath, audioFile).Msg("audio artifact verification failed")
		o.transition(rt.rec, session.StatusFailed)
		o.deregister(sessionID)
		outcome = stopOutcome{err: fmt.Errorf("%w: %s", ErrArtifactMissing, audioFile)}
		for _, reply := range st.stopReplies {
			reply <- outcome
		}
		return
	}

	o.transition(rt.rec, session.StatusCompleted)
	o.deregister(sessionID)
	o.notifyCompletion(rt.rec, duration)

	for _, reply := range st.stopReplies {
		reply <- outcome
	}
}

// verifyArtifact requires the audio file to exist with a well-formed header.
func verifyArtifact(path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return wav.Validate(path)
}

// notifyCompletion makes the single best-effort call to the system of
// record. Failure is logged, never surfaced to the stop caller.
func (o *Orchestrator) notifyCompletion(rec *session.Record, duration time.Duration) {
	if o.notifier == nil || !o.notifier.Enabled() || rec.Config.UploadedFileID == "" {
		notifyTotal.WithLabelValues("skipped").Inc()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	err := o.notifier.RecordingCompleted(ctx, notify.CompletionPayload{
		SessionID:      rec.SessionID,
		UploadedFileID: rec.Config.UploadedFileID,
		AudioFile:      rec.Config.AudioFile,
		MeetingNumber:  rec.Config.MeetingNumber,
		Duration:       int64(duration.Seconds()),
	})
	if err != nil {
		notifyTotal.WithLabelValues("error").Inc()
		logger := log.WithComponent("orchestrator")
		logger.Error().Err(err).
			Str(log.FieldSessionID, rec.SessionID).
			Msg("completion notification failed")
		return
	}
	notifyTotal.WithLabelValues("ok").Inc()
}
