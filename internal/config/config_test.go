package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"RECORDERD_LISTEN", "RECORDINGS_BASE_PATH", "RECORDER_BOT_PATH",
		"MEETING_SDK_KEY", "MEETING_SDK_SECRET", "NOTIFY_API_URL",
		"NOTIFY_API_TOKEN", "RECORDERD_START_TIMEOUT", "RECORDERD_STOP_TIMEOUT",
		"LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":4000", cfg.ListenAddr)
	assert.Equal(t, "/tmp/recordings", cfg.RecordingsDir)
	assert.Equal(t, DefaultStartTimeout, cfg.StartTimeout)
	assert.Equal(t, DefaultStopTimeout, cfg.StopTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.SDKKey)
	assert.Empty(t, cfg.NotifyBaseURL)
	require.NoError(t, cfg.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("RECORDERD_LISTEN", ":9090")
	t.Setenv("RECORDINGS_BASE_PATH", "/srv/recordings")
	t.Setenv("MEETING_SDK_KEY", "key")
	t.Setenv("MEETING_SDK_SECRET", "secret")
	t.Setenv("RECORDERD_START_TIMEOUT", "90s")
	t.Setenv("RECORDERD_STOP_TIMEOUT", "5s")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "/srv/recordings", cfg.RecordingsDir)
	assert.Equal(t, 90*time.Second, cfg.StartTimeout)
	assert.Equal(t, 5*time.Second, cfg.StopTimeout)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := Config{
		ListenAddr:    ":4000",
		RecordingsDir: "/tmp/recordings",
		StartTimeout:  DefaultStartTimeout,
		StopTimeout:   DefaultStopTimeout,
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base.Validate())
	})

	t.Run("missing recordings dir", func(t *testing.T) {
		cfg := base
		cfg.RecordingsDir = "  "
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing listen addr", func(t *testing.T) {
		cfg := base
		cfg.ListenAddr = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("half-configured credentials", func(t *testing.T) {
		cfg := base
		cfg.SDKKey = "key-only"
		assert.Error(t, cfg.Validate())

		cfg = base
		cfg.SDKSecret = "secret-only"
		assert.Error(t, cfg.Validate())

		cfg = base
		cfg.SDKKey, cfg.SDKSecret = "key", "secret"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("non-positive timeouts", func(t *testing.T) {
		cfg := base
		cfg.StartTimeout = 0
		assert.Error(t, cfg.Validate())

		cfg = base
		cfg.StopTimeout = -time.Second
		assert.Error(t, cfg.Validate())
	})
}
