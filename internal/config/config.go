// SPDX-License-Identifier: MIT

// Package config loads the daemon configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults for lifecycle timeouts. The start window is deliberately long:
// the native meeting SDK can take tens of seconds to initialise before the
// recorder emits its first marker.
const (
	DefaultStartTimeout = 60 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var errMissingRecordingsDir = errors.New("recordings directory must not be empty")

// Config holds the full daemon configuration.
type Config struct {
	// ListenAddr is the HTTP control surface bind address.
	ListenAddr string

	// RecordingsDir is the root directory for per-session artifacts.
	RecordingsDir string

	// RecorderPath is the external recorder executable.
	RecorderPath string

	// SDKKey and SDKSecret are the shared secret pair for the meeting SDK.
	// Both empty is valid: sessions then run unauthenticated (simulation).
	SDKKey    string
	SDKSecret string

	// NotifyBaseURL and NotifyToken configure the system-of-record client.
	// An empty base URL disables completion notifications.
	NotifyBaseURL string
	NotifyToken   string

	// StartTimeout bounds the wait for the first recorder protocol marker.
	StartTimeout time.Duration
	// StopTimeout bounds the cooperative shutdown before escalating to kill.
	StopTimeout time.Duration

	LogLevel string
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() Config {
	return Config{
		ListenAddr:    ParseString("RECORDERD_LISTEN", ":4000"),
		RecordingsDir: ParseString("RECORDINGS_BASE_PATH", "/tmp/recordings"),
		RecorderPath:  ParseString("RECORDER_BOT_PATH", "/app/meeting_sdk/build/meeting_recorder_bot"),
		SDKKey:        ParseString("MEETING_SDK_KEY", ""),
		SDKSecret:     ParseString("MEETING_SDK_SECRET", ""),
		NotifyBaseURL: ParseString("NOTIFY_API_URL", ""),
		NotifyToken:   ParseString("NOTIFY_API_TOKEN", ""),
		StartTimeout:  ParseDuration("RECORDERD_START_TIMEOUT", DefaultStartTimeout),
		StopTimeout:   ParseDuration("RECORDERD_STOP_TIMEOUT", DefaultStopTimeout),
		LogLevel:      ParseString("LOG_LEVEL", "info"),
	}
}

// Validate checks the configuration for hard errors. A missing SDK secret
// pair is not an error; the credential generator reports it per session.
func (c Config) Validate() error {
	if strings.TrimSpace(c.RecordingsDir) == "" {
		return errMissingRecordingsDir
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("listen address must not be empty")
	}
	if (c.SDKKey == "") != (c.SDKSecret == "") {
		return errors.New("MEETING_SDK_KEY and MEETING_SDK_SECRET must be set together")
	}
	if c.StartTimeout <= 0 {
		return fmt.Errorf("start timeout must be positive, got %s", c.StartTimeout)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop timeout must be positive, got %s", c.StopTimeout)
	}
	return nil
}
