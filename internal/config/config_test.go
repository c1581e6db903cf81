package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waypoint.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err, "a missing waypoint.yaml is not an error")

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 25, cfg.Engine.MaxSteps)
	assert.Zero(t, cfg.Engine.Timeout)
	assert.Equal(t, BackendMemory, cfg.Directory.Backend)
	assert.True(t, cfg.Directory.Seed)
	assert.Equal(t, BackendOutbox, cfg.Notifier.Backend)
	assert.Equal(t, 587, cfg.Notifier.SMTP.Port)
	assert.Equal(t, BackendFile, cfg.Checkpoint.Backend)
	assert.Equal(t, ".waypoint/runs", cfg.Checkpoint.Path)
	assert.Equal(t, "waypoint:", cfg.Redis.Prefix)
	assert.Equal(t, 30*time.Second, cfg.Redis.LockTTL)
	assert.Equal(t, ":8080", cfg.HTTP.Address)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
engine:
  max_steps: 40
  timeout: 3s
directory:
  backend: redis
checkpoint:
  backend: redis
  ttl: 1h
  pii_patterns: ["contact", "mail"]
redis:
  address: cache:6379
  lock: true
notifier:
  backend: smtp
  smtp:
    host: mail.example.com
`)
	t.Setenv("WAYPOINT_ENGINE_MAX_STEPS", "7")
	t.Setenv("WAYPOINT_HTTP_ADDRESS", ":9090")
	t.Setenv("EMAIL_SENDER", "bot@example.com")
	t.Setenv("EMAIL_PASSWORD", "app-password")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 7, cfg.Engine.MaxSteps, "environment wins over the file")
	assert.Equal(t, 3*time.Second, cfg.Engine.Timeout)
	assert.Equal(t, BackendRedis, cfg.Directory.Backend)
	assert.Equal(t, time.Hour, cfg.Checkpoint.TTL)
	assert.Equal(t, []string{"contact", "mail"}, cfg.Checkpoint.PIIPatterns)
	assert.Equal(t, "cache:6379", cfg.Redis.Address)
	assert.True(t, cfg.Redis.Lock)
	assert.Equal(t, ":9090", cfg.HTTP.Address)

	assert.Equal(t, BackendSMTP, cfg.Notifier.Backend)
	assert.Equal(t, "mail.example.com", cfg.Notifier.SMTP.Host)
	assert.Equal(t, "bot@example.com", cfg.Notifier.SMTP.Sender)
	assert.Equal(t, "app-password", cfg.Notifier.SMTP.Password)
}

func TestLoad_PrefixedSenderWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EMAIL_SENDER", "legacy@example.com")
	t.Setenv("WAYPOINT_NOTIFIER_SMTP_SENDER", "new@example.com")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", cfg.Notifier.SMTP.Sender)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load(writeConfig(t, "directory:\n  backend: sqlite\nnotifier:\n  backend: pigeon\n"))
	require.Error(t, err)
	assert.ErrorContains(t, err, `directory.backend "sqlite" is not one of memory, redis, postgres`)
	assert.ErrorContains(t, err, `notifier.backend "pigeon"`)

	_, err = Load(writeConfig(t, "engine:\n  max_steps: -1\n"))
	assert.ErrorContains(t, err, "engine.max_steps must not be negative")
}
