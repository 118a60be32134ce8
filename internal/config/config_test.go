package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http_addr: ":9090"
database_dsn: "postgres://yaml"
redis_addr: "localhost:6379"
catalog_cache_ttl: 1m
publish_events: false
`), 0o600))

	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("RUN_MIGRATIONS", "no")
	t.Setenv("CORS_ALLOW_ORIGINS", " https://a.example, ,https://b.example")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "postgres://env", cfg.DatabaseDSN)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.PublishEvents)
	assert.False(t, cfg.RunMigrations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowOrigins)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http_addr: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_UnparseableEnvFallsBack(t *testing.T) {
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")
	t.Setenv("PUBLISH_EVENTS", "maybe")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.True(t, cfg.PublishEvents)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"empty dsn":           func(c *Config) { c.DatabaseDSN = " " },
		"zero timeout":        func(c *Config) { c.RequestTimeout = 0 },
		"zero poll interval":  func(c *Config) { c.OutboxPollInterval = 0 },
		"redis without ttl":   func(c *Config) { c.RedisAddr = "x:1"; c.CatalogCacheTTL = 0 },
		"events without amqp": func(c *Config) { c.RabbitURL = "" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
