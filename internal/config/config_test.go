package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.Auth.Enabled, "auth should default to disabled")
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL.Std())
	assert.Equal(t, 10000, cfg.Session.MaxSessions)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parlo.yaml")
	content := `
server:
  addr: ":9090"
  readTimeout: 5s
session:
  ttl: 10m
  maxSessions: 50
auth:
  enabled: true
  tenantId: tenant-1
  audience: api://app-1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout.Std())
	assert.Equal(t, 10*time.Minute, cfg.Session.TTL.Std())
	assert.Equal(t, 50, cfg.Session.MaxSessions)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "tenant-1", cfg.Auth.TenantID)
	// Untouched settings keep their defaults.
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout.Std())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parlo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9090\"\n"), 0o600))

	t.Setenv("PARLO_ADDR", ":7070")
	t.Setenv("PARLO_SESSION_TTL", "5m")
	t.Setenv("PARLO_AUTH_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr, "env should win over file")
	assert.Equal(t, 5*time.Minute, cfg.Session.TTL.Std())
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}
