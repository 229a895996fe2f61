package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, cfg.Index.Workers)
	assert.Equal(t, []string{".txt", ".text"}, cfg.Index.Extensions)
	assert.False(t, cfg.Index.Partial)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
index:
  workers: 3
  partial: true
logging:
  level: debug
  format: json
redis:
  cacheTTL: 30s
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("TS_INDEX_WORKERS", "8")
	t.Setenv("TS_LOGGING_FORMAT", "text")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Index.Workers)
	assert.True(t, cfg.Index.Partial)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, ".txt", cfg.Index.Extensions[0], "unset keys keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Topic = ""
	assert.Error(t, cfg.Validate())

	cfg = defaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 0
	assert.Error(t, cfg.Validate())

	assert.NoError(t, defaultConfig().Validate())
}
