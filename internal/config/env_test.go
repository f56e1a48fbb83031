package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseString(t *testing.T) {
	t.Run("unset returns default", func(t *testing.T) {
		assert.Equal(t, "fallback", ParseString("RECORDERD_TEST_UNSET", "fallback"))
	})

	t.Run("set returns value", func(t *testing.T) {
		t.Setenv("RECORDERD_TEST_STR", "custom")
		assert.Equal(t, "custom", ParseString("RECORDERD_TEST_STR", "fallback"))
	})

	t.Run("empty returns default", func(t *testing.T) {
		t.Setenv("RECORDERD_TEST_STR", "")
		assert.Equal(t, "fallback", ParseString("RECORDERD_TEST_STR", "fallback"))
	})
}

func TestParseInt(t *testing.T) {
	t.Run("unset returns default", func(t *testing.T) {
		assert.Equal(t, 42, ParseInt("RECORDERD_TEST_INT_UNSET", 42))
	})

	t.Run("set returns parsed value", func(t *testing.T) {
		t.Setenv("RECORDERD_TEST_INT", "7")
		assert.Equal(t, 7, ParseInt("RECORDERD_TEST_INT", 42))
	})

	t.Run("malformed returns default", func(t *testing.T) {
		t.Setenv("RECORDERD_TEST_INT", "seven")
		assert.Equal(t, 42, ParseInt("RECORDERD_TEST_INT", 42))
	})
}

func TestParseDuration(t *testing.T) {
	t.Run("unset returns default", func(t *testing.T) {
		assert.Equal(t, time.Minute, ParseDuration("RECORDERD_TEST_DUR_UNSET", time.Minute))
	})

	t.Run("set returns parsed value", func(t *testing.T) {
		t.Setenv("RECORDERD_TEST_DUR", "1500ms")
		assert.Equal(t, 1500*time.Millisecond, ParseDuration("RECORDERD_TEST_DUR", time.Minute))
	})

	t.Run("malformed returns default", func(t *testing.T) {
		t.Setenv("RECORDERD_TEST_DUR", "soon")
		assert.Equal(t, time.Minute, ParseDuration("RECORDERD_TEST_DUR", time.Minute))
	})
}
