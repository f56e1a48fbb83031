// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/voicepick/recorderd/internal/meeting"
	"github.com/voicepick/recorderd/internal/orchestrator"
	"github.com/voicepick/recorderd/internal/sdkauth"
)

type tokenRequest struct {
	MeetingNumber string `json:"meetingNumber"`
	Role          int    `json:"role"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.MeetingNumber == "" {
		writeBadRequest(w, "meeting number is required")
		return
	}

	token, err := s.auth.GenerateToken(req.MeetingNumber, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"token":         token,
		"meetingNumber": req.MeetingNumber,
		"role":          req.Role,
	})
}

func (s *Server) handleValidateToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	writeJSON(w, http.StatusOK, s.auth.ValidateToken(req.Token))
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MeetingURL string `json:"meetingUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.MeetingURL == "" {
		writeBadRequest(w, "meeting URL is required")
		return
	}

	ref, err := meeting.Parse(req.MeetingURL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"meetingNumber": ref.MeetingNumber,
		"password":      ref.Password,
	})
}

type startRecordingRequest struct {
	MeetingURL     string `json:"meetingUrl"`
	UserName       string `json:"userName"`
	UploadedFileID string `json:"uploadedFileId"`
}

func (s *Server) handleStartRecording(w http.ResponseWriter, r *http.Request) {
	var req startRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.MeetingURL == "" {
		writeBadRequest(w, "meeting URL is required")
		return
	}

	result, err := s.orch.Start(r.Context(), orchestrator.StartRequest{
		MeetingRef:     req.MeetingURL,
		UserName:       req.UserName,
		UploadedFileID: req.UploadedFileID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"sessionId":      result.SessionID,
		"meetingNumber":  result.MeetingNumber,
		"uploadedFileId": result.UploadedFileID,
		"message":        result.Message,
	})
}

func (s *Server) handleStopRecording(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SessionID == "" {
		writeBadRequest(w, "session ID is required")
		return
	}

	result, err := s.orch.Stop(r.Context(), req.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"sessionId": result.SessionID,
		"audioFile": result.AudioFile,
		"duration":  int64(result.Duration.Seconds()),
		"message":   "recording stopped successfully",
	})
}

func (s *Server) handleRecordingStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snap := s.orch.Status(sessionID)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	recordings := s.orch.ListActive()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"recordings": recordings,
		"count":      len(recordings),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "OK",
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"uptime":           time.Since(s.startTime).String(),
		"activeRecordings": len(s.orch.ListActive()),
	})
}

func (s *Server) handleSDKStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "OK",
		"sdk": map[string]any{
			"key":          sdkauth.MaskSecret(s.cfg.SDKKey),
			"secret":       sdkauth.MaskSecret(s.cfg.SDKSecret),
			"keyLength":    len(s.cfg.SDKKey),
			"secretLength": len(s.cfg.SDKSecret),
		},
		"paths": map[string]any{
			"recordings": s.cfg.RecordingsDir,
			"recorder":   s.cfg.RecorderPath,
		},
		"activeRecordings": s.orch.ListActive(),
	})
}
