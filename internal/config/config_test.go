package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"APP_PORT", "STORE_DRIVER", "RABBIT_URL", "RATE_LIMIT_PER_MIN", "LOG_DEV", "AUTH_JWKS_URL"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "postgres", cfg.StoreDriver)
	require.Empty(t, cfg.RabbitURL)
	require.Equal(t, "greetings.events", cfg.RabbitExchange)
	require.Equal(t, "greeting.*", cfg.RabbitBindKey)
	require.Equal(t, 60, cfg.RateLimitPerMin)
	require.False(t, cfg.LogDev)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("RATE_LIMIT_PER_MIN", "0")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("RABBIT_CONCURRENCY", "not-a-number")

	cfg := Load()
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "memory", cfg.StoreDriver)
	require.Zero(t, cfg.RateLimitPerMin)
	require.True(t, cfg.LogDev)
	require.Equal(t, 4, cfg.RabbitConcurrency, "unparsable values fall back to the default")
}
