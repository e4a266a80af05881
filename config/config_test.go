package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	c := FromEnv()

	assert.Equal(t, "8080", c.Server.Port)
	assert.Equal(t, 5*time.Minute, c.Picks.LockOffset)
	assert.Equal(t, 8, c.Scoring.Concurrency)
	assert.Equal(t, 15*time.Minute, c.Scoring.SweepInterval)
	assert.True(t, c.IsSweepEnabled())
	assert.True(t, c.App.IsDevelopment)
	require.NoError(t, c.Validate())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("PICK_LOCK_OFFSET", "10m")
	t.Setenv("SCORING_CONCURRENCY", "3")
	t.Setenv("SCORE_SWEEP_INTERVAL", "0s")
	t.Setenv("FINALIZATION_WATCHER_ENABLED", "no")
	t.Setenv("DEMO_MODE", "1")
	t.Setenv("CURRENT_SEASON", "not-a-number")

	c := FromEnv()

	assert.Equal(t, "9090", c.Server.Port)
	assert.Equal(t, 10*time.Minute, c.Picks.LockOffset)
	assert.Equal(t, 3, c.Scoring.Concurrency)
	assert.False(t, c.IsSweepEnabled())
	assert.False(t, c.Scoring.FinalizationWatcherEnabled)
	assert.True(t, c.App.DemoMode)
	assert.Equal(t, 2025, c.App.CurrentSeason)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }},
		{"missing database name", func(c *Config) { c.Database.Database = "" }},
		{"default secret in production", func(c *Config) { c.App.IsDevelopment = false }},
		{"season out of range", func(c *Config) { c.App.CurrentSeason = 1999 }},
		{"negative lock offset", func(c *Config) { c.Picks.LockOffset = -time.Second }},
		{"zero concurrency", func(c *Config) { c.Scoring.Concurrency = 0 }},
		{"missing TLS files", func(c *Config) {
			c.Server.UseTLS = true
			c.Server.CertFile = filepath.Join(t.TempDir(), "missing.crt")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := FromEnv()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestDemoModeSkipsDatabaseChecks(t *testing.T) {
	c := FromEnv()
	c.App.DemoMode = true
	c.Database.Host = ""
	assert.NoError(t, c.Validate())
}

func TestAdapters(t *testing.T) {
	c := FromEnv()
	c.Database.ReplicaSet = "rs0"
	c.Logging.EnableFile = true
	c.Logging.LogDir = "/var/log/pickem"

	assert.Equal(t, "rs0", c.ToDatabaseConfig().ReplicaSet)
	assert.Equal(t, "/var/log/pickem/pickem.log", c.ToLoggingConfig().LogFile)
	assert.Len(t, c.ToMetricsOptions(), 2)
	assert.Equal(t, 5*time.Minute, c.ToLockPolicy().Offset)
}
