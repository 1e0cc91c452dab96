package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, `
server:
  address: ":9090"
aliyun:
  api_key: "test-key"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 500, cfg.Chunking.ResumeChunkSize)
	assert.Equal(t, 100, cfg.Chunking.ResumeChunkOverlap)
	assert.Equal(t, 1000, cfg.Chunking.JDChunkSize)
	assert.Equal(t, 200, cfg.Chunking.JDChunkOverlap)
	require.NotNil(t, cfg.Match.Threshold)
	require.NotNil(t, cfg.Match.MinScore)
	assert.InDelta(t, 0.4, *cfg.Match.Threshold, 1e-9)
	assert.InDelta(t, 30.0, *cfg.Match.MinScore, 1e-9)
	assert.Equal(t, "text-embedding-v3", cfg.Aliyun.Embedding.Model)
}

func TestLoadConfigRejectsInvalidChunking(t *testing.T) {
	path := writeTempConfig(t, `
chunking:
  resume_chunk_size: 100
  resume_chunk_overlap: 100
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlap")
}

func TestLoadConfigRejectsOutOfRangeMatchParams(t *testing.T) {
	path := writeTempConfig(t, `
match:
  threshold: 1.5
`)

	_, err := LoadConfig(path)
	require.Error(t, err)

	path = writeTempConfig(t, `
match:
  min_score: 120
`)

	_, err = LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigHonorsExplicitZeroMatchParams(t *testing.T) {
	path := writeTempConfig(t, `
match:
  threshold: 0
  min_score: 0
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// 0是合法取值，显式配置不能被默认值覆盖
	require.NotNil(t, cfg.Match.Threshold)
	require.NotNil(t, cfg.Match.MinScore)
	assert.Zero(t, *cfg.Match.Threshold)
	assert.Zero(t, *cfg.Match.MinScore)
}

func TestLoadConfigAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ALIYUN_API_KEY", "env-key")
	path := writeTempConfig(t, `
aliyun:
  api_key: "file-key"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Aliyun.APIKey)
}
