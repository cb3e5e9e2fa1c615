package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "shifts.db", cfg.Database.Path)
	assert.Equal(t, BackendNone, cfg.Backend.Kind)
	assert.Equal(t, 60*time.Second, cfg.RefreshInterval)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_PATH", ":memory:")
	t.Setenv("BACKEND_KIND", "http")
	t.Setenv("BACKEND_URL", "http://backend.local/weeks")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":memory:", cfg.Database.Path)
	assert.Equal(t, "http://backend.local/weeks", cfg.Backend.URL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestParse_BackendRequirements(t *testing.T) {
	t.Run("http without url", func(t *testing.T) {
		t.Setenv("BACKEND_KIND", "http")
		_, err := Parse()
		assert.ErrorContains(t, err, "BACKEND_URL")
	})

	t.Run("amqp without dsn", func(t *testing.T) {
		t.Setenv("BACKEND_KIND", "amqp")
		_, err := Parse()
		assert.ErrorContains(t, err, "RABBITMQ_DSN")
	})

	t.Run("unknown kind", func(t *testing.T) {
		t.Setenv("BACKEND_KIND", "carrier-pigeon")
		_, err := Parse()
		assert.ErrorContains(t, err, "unknown BACKEND_KIND")
	})
}
