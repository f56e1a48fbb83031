// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voicepick/recorderd/internal/meeting"
	"github.com/voicepick/recorderd/internal/orchestrator"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeBadRequest writes a 400 response with the given message.
func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

// writeError maps orchestrator and parser errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var exitErr *orchestrator.ProcessExitError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, meeting.ErrInvalidReference),
		errors.Is(err, orchestrator.ErrSessionExists):
		status = http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, orchestrator.ErrStartTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, orchestrator.ErrAuthenticationFailed):
		status = http.StatusUnauthorized
	case errors.Is(err, orchestrator.ErrArtifactMissing),
		errors.As(err, &exitErr):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
