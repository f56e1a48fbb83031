// SPDX-License-Identifier: MIT

package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	startsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recorderd_session_starts_total",
		Help: "Total session start attempts",
	}, []string{"result"})

	exitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recorderd_recorder_exits_total",
		Help: "Total recorder process exits",
	}, []string{"reason"})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recorderd_session_transitions_total",
		Help: "Session state transitions",
	}, []string{"state_from", "state_to"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recorderd_sessions_active",
		Help: "Currently registered sessions",
	})

	notifyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recorderd_notify_total",
		Help: "Completion notifications to the system of record",
	}, []string{"result"})
)
