package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: "9090"
  mode: debug
database:
  driver: sqlite
  path: test.db
jwt:
  secret: dev-secret
  expire_hours: 2
storage:
  type: minio
  minio_bucket: media
rate_limit:
  max_requests: 50
  window_minutes: 1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644))
	return dir
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := writeConfig(t, sampleConfig)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 2*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, "media", cfg.Storage.MinioBucket)
	assert.Equal(t, 50, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 300*time.Second, cfg.Cache.AssessmentTTL())
	assert.Equal(t, filepath.Join(dir, "config.yaml"), cfg.File)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	dir := writeConfig(t, sampleConfig)
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DATABASE_DRIVER", "postgres")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestLoadConfigRejectsWeakReleaseSecret(t *testing.T) {
	dir := writeConfig(t, sampleConfig+"\n")
	t.Setenv("SERVER_MODE", "release")

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	dir := writeConfig(t, sampleConfig)
	t.Setenv("DATABASE_DRIVER", "oracle")

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}
