// SPDX-License-Identifier: MIT

package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionExists rejects a start for an id that already has a live
	// session. A live process is never silently replaced.
	ErrSessionExists = errors.New("session already exists")

	// ErrSessionNotFound is returned by stop for unknown session ids.
	ErrSessionNotFound = errors.New("no active recording found for this session")

	// ErrStartTimeout is returned when the recorder emits no recognized
	// marker within the start window.
	ErrStartTimeout = errors.New("recorder startup timeout")

	// ErrAuthenticationFailed is returned when the recorder reports
	// AUTHENTICATION_FAILED on stderr during startup.
	ErrAuthenticationFailed = errors.New("recorder authentication failed")

	// ErrArtifactMissing is returned when the recorder exited but left no
	// audio artifact behind.
	ErrArtifactMissing = errors.New("recording file not found")

	// ErrStopTimeout marks a stop that escalated to a forced kill. The
	// stop operation still resolves.
	ErrStopTimeout = errors.New("recorder stop timeout, killed")
)

// ProcessExitError reports an unexpected recorder exit.
type ProcessExitError struct {
	Code int
}

func (e *ProcessExitError) Error() string {
	return fmt.Sprintf("recorder exited with code %d", e.Code)
}
