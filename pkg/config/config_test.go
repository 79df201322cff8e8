package config

import (
	"testing"
	"time"

	"github.com/platinummonkey/cove/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("COVE_POSTGRES_URL", "postgres://localhost/cove_test?sslmode=disable")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.Equal(t, "@daily", cfg.Installation.InvitePruneSchedule)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("COVE_POSTGRES_URL", "postgres://localhost/cove?sslmode=disable")
	t.Setenv("COVE_PORT", "9000")
	t.Setenv("COVE_LOG_LEVEL", "debug")
	t.Setenv("COVE_READ_TIMEOUT", "5s")
	t.Setenv("COVE_POSTGRES_MAX_CONNS", "50")
	t.Setenv("COVE_METRICS_ENABLED", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
	assert.False(t, cfg.Observability.MetricsEnabled)
}

func TestValidate(t *testing.T) {
	t.Run("missing postgres URL", func(t *testing.T) {
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "postgres URL is required")
	})

	t.Run("port collision", func(t *testing.T) {
		t.Setenv("COVE_POSTGRES_URL", "postgres://localhost/cove")
		t.Setenv("COVE_PORT", "9090")
		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be different")
	})

	t.Run("idle exceeds open conns", func(t *testing.T) {
		t.Setenv("COVE_POSTGRES_URL", "postgres://localhost/cove")
		t.Setenv("COVE_POSTGRES_MAX_CONNS", "2")
		t.Setenv("COVE_POSTGRES_IDLE_CONNS", "10")
		_, err := LoadConfig()
		require.Error(t, err)
	})
}
