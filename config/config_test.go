package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Server.Port)
		assert.Equal(t, "https://api.github.com", cfg.GitHub.BaseURL)
		assert.Equal(t, 500, cfg.Cache.MaxEntries)
		assert.Equal(t, 10*time.Minute, cfg.Cache.DefaultTTL)
		assert.Equal(t, 5*time.Minute, cfg.Cache.SweepInterval)
		assert.Equal(t, 100*time.Millisecond, cfg.Queue.Spacing)
		assert.True(t, cfg.Metrics.Enabled)
		assert.Equal(t, "json", cfg.Logging.Format)
	})

	t.Run("EnvironmentOverrides", func(t *testing.T) {
		t.Setenv("PORT", "9999")
		t.Setenv("GITHUB_TOKEN", "ghp_test")
		t.Setenv("CACHE_MAX_ENTRIES", "42")
		t.Setenv("REQUEST_SPACING", "250ms")
		t.Setenv("LOG_FORMAT", "pretty")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9999", cfg.Server.Port)
		assert.Equal(t, "ghp_test", cfg.GitHub.Token)
		assert.Equal(t, 42, cfg.Cache.MaxEntries)
		assert.Equal(t, 250*time.Millisecond, cfg.Queue.Spacing)
		assert.Equal(t, "pretty", cfg.Logging.Format)
	})
}
