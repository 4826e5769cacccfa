package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("STATIC_TOKENS", " abc , ,def")
	t.Setenv("JWT_HMAC_SECRET", "hmac")

	conf, loc, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", conf.Port)
	assert.Equal(t, "scheduler.db", conf.SQLitePath)
	assert.Equal(t, "Europe/Warsaw", loc.String())
	assert.Equal(t, []string{"abc", "def"}, conf.StaticTokens)
	assert.Equal(t, "hmac", conf.OAuthStateSecret)
	assert.Equal(t, 5*time.Second, conf.BusyTimeout)
	assert.Equal(t, time.Minute, conf.BusyCacheTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("timezone", func(t *testing.T) {
		t.Setenv("TIMEZONE", "Mars/Olympus")
		_, _, err := Load()
		assert.ErrorContains(t, err, "TIMEZONE")
	})
	t.Run("duration", func(t *testing.T) {
		t.Setenv("BUSY_TIMEOUT", "soon")
		_, _, err := Load()
		assert.Error(t, err)
	})
	t.Run("sampling ratio", func(t *testing.T) {
		t.Setenv("OTEL_SAMPLING_RATIO", "2")
		_, _, err := Load()
		assert.ErrorContains(t, err, "OTEL_SAMPLING_RATIO")
	})
}
