package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  name: updater
report:
  path: report.md
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Pipeline.ChunkTokens)
	assert.Equal(t, 50, cfg.Pipeline.ChunkOverlap)
	assert.Equal(t, 5, cfg.Pipeline.RetrievalK)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 3, cfg.Pipeline.RetryAttempts)
	assert.Equal(t, float64(0), cfg.Pipeline.BackendRPS)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoadConfigKeepsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
logger:
  level: debug
pipeline:
  chunkTokens: 256
  chunkOverlap: 32
  retrievalK: 8
  workers: 2
  retryAttempts: 1
  backendRPS: 2.5
server:
  address: ":9090"
databases:
  kafka:
    brokers: ["a:9092", "b:9092"]
    topic: events
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 256, cfg.Pipeline.ChunkTokens)
	assert.Equal(t, 32, cfg.Pipeline.ChunkOverlap)
	assert.Equal(t, 8, cfg.Pipeline.RetrievalK)
	assert.Equal(t, 2, cfg.Pipeline.Workers)
	assert.Equal(t, 1, cfg.Pipeline.RetryAttempts)
	assert.Equal(t, 2.5, cfg.Pipeline.BackendRPS)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Databases.Kafka.Brokers)
	assert.Equal(t, "events", cfg.Databases.Kafka.Topic)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := writeConfig(t, "pipeline: [not, a, map")
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
