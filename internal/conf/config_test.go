package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/market-research-backend/internal/websearch/types"
)

const sample = `
server:
  port: 9090
database:
  enabled: true
  dbname: pesquisa
search:
  timeout: 30s
  providers:
    - id: serper
      enabled: true
      priority: 2
    - id: bing
      enabled: true
      priority: 6
      max_errors: 5
extractor:
  attempts: 2
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("SEARCH_SERPER_API_KEY", "serper-key")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("REDIS_ADDR", "cache:6379")

	cfg, err := LoadConfig(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

	assert.True(t, cfg.Database.Enabled)
	assert.Equal(t, "pesquisa", cfg.Database.DBName)
	assert.Equal(t, "America/Sao_Paulo", cfg.Database.Timezone)

	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "mr:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "market-research", cfg.MinIO.Bucket)

	assert.Equal(t, 30*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 4, cfg.Search.Workers)
	assert.NotEmpty(t, cfg.Search.PreferredDomains)
	require.Len(t, cfg.Search.Providers, 2)
	assert.Equal(t, types.ProviderSerper, cfg.Search.Providers[0].ID)
	assert.Equal(t, "serper-key", cfg.Search.Providers[0].APIKey)
	assert.Empty(t, cfg.Search.Providers[1].APIKey)
	assert.Equal(t, 5, cfg.Search.Providers[1].MaxErrors)

	assert.Equal(t, 2, cfg.Extractor.Attempts)
	assert.Equal(t, 24*time.Hour, cfg.Extractor.CacheTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.Extractor.BatchDelay)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 12000, cfg.LLM.TokenBudget)
	assert.Equal(t, 30, cfg.Research.MainResults)
	assert.Equal(t, time.Second, cfg.Research.RelatedDelay)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestSampleConfig(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "configs", "config.yaml"))
	require.NoError(t, err)
	assert.Len(t, cfg.Search.Providers, 7)
	assert.NoError(t, cfg.Log.Validate())
	assert.NoError(t, cfg.Database.Validate())
}
