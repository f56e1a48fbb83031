// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldFileID    = "file_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldPID       = "pid"
	FieldExitCode  = "exit_code"
	FieldMarker    = "marker"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Meeting fields
	FieldMeeting = "meeting_number"

	// Path fields
	FieldPath = "path"
)
