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
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: ":8081"
processing:
  max_concurrent_jobs: 2
  job_timeout: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Server.HTTPPort)
	assert.Equal(t, 2, cfg.Processing.MaxConcurrentJobs)
	assert.Equal(t, 30*time.Second, cfg.Processing.JobTimeout)
	assert.Equal(t, int64(8<<20), cfg.Processing.MaxImageBytes)
	assert.Equal(t, 4096, cfg.Processing.MaxImageDimension)
	assert.Equal(t, 100, cfg.Processing.MaxQueueLength)
	assert.Equal(t, int64(1<<26), cfg.Processing.MaxDecodedPixels)
	assert.Equal(t, time.Hour, cfg.Results.TTL)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 3, cfg.Retry.Attempts)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "server:\n  http_port: \":8081\"\n")
	t.Setenv("CATPPUCCINIFIER_PROCESSING_MAX_IMAGE_DIMENSION", "1024")
	t.Setenv("MINIO_SECRET_KEY", "s3cr3t")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Processing.MaxImageDimension)
	assert.Equal(t, "s3cr3t", cfg.Storage.SecretKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "zero concurrency", body: "processing:\n  max_concurrent_jobs: 0\n"},
		{name: "negative timeout", body: "processing:\n  job_timeout: -1s\n"},
		{name: "kafka without brokers", body: "kafka:\n  enabled: true\n"},
		{name: "storage without endpoint", body: "storage:\n  enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}
