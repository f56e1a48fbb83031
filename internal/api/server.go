// SPDX-License-Identifier: MIT

// Package api exposes the HTTP control surface for the recording daemon.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicepick/recorderd/internal/config"
	"github.com/voicepick/recorderd/internal/log"
	"github.com/voicepick/recorderd/internal/orchestrator"
	"github.com/voicepick/recorderd/internal/sdkauth"
)

// Server routes control requests to the session orchestrator.
type Server struct {
	orch      *orchestrator.Orchestrator
	auth      *sdkauth.Generator
	cfg       config.Config
	startTime time.Time
}

// New builds the API server.
func New(cfg config.Config, orch *orchestrator.Orchestrator) *Server {
	return &Server{
		orch:      orch,
		auth:      sdkauth.New(cfg.SDKKey, cfg.SDKSecret),
		cfg:       cfg,
		startTime: time.Now(),
	}
}

// Router assembles the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(recoverer)
	r.Use(requestID)
	r.Use(log.Middleware())
	r.Use(rateLimit(120, time.Minute))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/meetings", func(r chi.Router) {
		r.Post("/token", s.handleToken)
		r.Post("/token/validate", s.handleValidateToken)
		r.Post("/parse", s.handleParse)
		r.Get("/sdk-status", s.handleSDKStatus)

		r.Route("/recordings", func(r chi.Router) {
			r.Post("/start", s.handleStartRecording)
			r.Post("/stop", s.handleStopRecording)
			r.Get("/", s.handleListRecordings)
			r.Get("/{sessionID}", s.handleRecordingStatus)
		})
	})

	return r
}
