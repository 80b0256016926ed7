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

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "catalog.db", cfg.Database.FilePath)
	assert.Equal(t, "dynamodb", cfg.Remote.Driver)
	assert.Equal(t, "productos", cfg.Remote.ProductsTable)
	assert.Equal(t, "users", cfg.Remote.UsersTable)
	assert.True(t, cfg.Sync.RunOnStart)
	assert.Equal(t, ResolutionRemoteWins, cfg.Sync.ConflictResolution)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.GetReadTimeout())
	assert.Equal(t, 5*time.Minute, cfg.Auth.GetTokenTTL())
	assert.Equal(t, 500*time.Millisecond, cfg.Sync.GetFlushInterval())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
  file_path: /tmp/local.db
remote:
  driver: memory
  products_table: products_test
sync:
  conflict_resolution: preserve_pending
  flush_interval: 2s
scheduler:
  enabled: true
  interval: "@every 1m"
server:
  port: 9000
logging:
  level: debug
  format: console
`)
	t.Setenv("CATALOGSYNC_SERVER_PORT", "9100")
	t.Setenv("CATALOGSYNC_AUTH_JWT_SECRET", "s3cret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/local.db", cfg.Database.FilePath)
	assert.Equal(t, "memory", cfg.Remote.Driver)
	assert.Equal(t, "products_test", cfg.Remote.ProductsTable)
	assert.Equal(t, "users", cfg.Remote.UsersTable)
	assert.Equal(t, ResolutionPreservePending, cfg.Sync.ConflictResolution)
	assert.Equal(t, 2*time.Second, cfg.Sync.GetFlushInterval())
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "@every 1m", cfg.Scheduler.Interval)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown database driver", "database:\n  driver: oracle\n"},
		{"mysql without host", "database:\n  driver: mysql\n"},
		{"unknown remote driver", "remote:\n  driver: s3\n"},
		{"unknown resolution", "sync:\n  conflict_resolution: merge\n"},
		{"realtime on sqlite", "sync:\n  realtime: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
