// SPDX-License-Identifier: MIT

package session

import (
	"sort"
	"sync"

	"github.com/voicepick/recorderd/internal/sdkauth"
)

// Registry maps session ids to live session records. It holds a record if
// and only if the session's process is live or not yet reaped; the
// orchestrator removes entries synchronously with exit handling.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Record)}
}

// Put registers a record under its session id. It reports false without
// storing when the id is already present — a live session must never be
// silently replaced.
func (r *Registry) Put(rec *Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[rec.SessionID]; exists {
		return false
	}
	r.sessions[rec.SessionID] = rec
	return true
}

// Get returns the record for id, or nil.
func (r *Registry) Get(id string) *Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// Delete removes the record for id.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// SetStatus updates the status of the record for id, if present.
func (r *Registry) SetStatus(id string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.sessions[id]; ok {
		rec.Status = status
	}
}

// Snapshot returns a point-in-time view of the session, or a not_found
// sentinel when absent.
func (r *Registry) Snapshot(id string) Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.sessions[id]
	if !ok {
		return Snapshot{SessionID: id, Status: StatusNotFound}
	}
	cfg := rec.Config
	cfg.Auth = sdkauth.AuthConfig{} // credential bundle never leaves the registry
	return Snapshot{
		SessionID: rec.SessionID,
		Status:    rec.Status,
		StartTime: rec.StartTime,
		Config:    &cfg,
	}
}

// List returns summaries of all registered sessions, ordered by id for
// stable output.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Summary, 0, len(r.sessions))
	for _, rec := range r.sessions {
		out = append(out, Summary{
			SessionID:     rec.SessionID,
			Status:        rec.Status,
			StartTime:     rec.StartTime,
			MeetingNumber: rec.Config.MeetingNumber,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
