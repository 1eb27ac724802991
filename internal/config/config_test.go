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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
env: dev
storage_path: ./storage/news.db
secret: top-secret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EnvDev, cfg.Env)
	assert.Equal(t, "./storage/news.db", cfg.StoragePath)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, 10, cfg.PasswordCost)
	assert.Equal(t, "localhost:8080", cfg.Address)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "sqlite", cfg.Session.Store)
	assert.Equal(t, "local", cfg.Blob.Driver)
	assert.Equal(t, "newsportal_uploads", cfg.Blob.Folder)
}

func TestLoad_Sections(t *testing.T) {
	path := writeConfig(t, `
env: prod
storage_path: /var/lib/news.db
secret: s
token_ttl: 30m
admin_emails: ["root@example.com"]
http_server:
  address: 0.0.0.0:9000
  shutdown_timeout: 3s
session:
  store: redis
  redis:
    addr: redis:6379
    db: 2
blob:
  driver: s3
  s3:
    bucket: news
    endpoint: http://minio:9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"root@example.com"}, cfg.AdminEmails)
	assert.Equal(t, "0.0.0.0:9000", cfg.Address)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, "redis:6379", cfg.Session.Redis.Addr)
	assert.Equal(t, 2, cfg.Session.Redis.DB)
	assert.Equal(t, "s3", cfg.Blob.Driver)
	assert.Equal(t, "news", cfg.Blob.S3.Bucket)
	assert.Equal(t, "http://minio:9000", cfg.Blob.S3.Endpoint)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
