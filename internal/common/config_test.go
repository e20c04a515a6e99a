package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, "./sources", cfg.Sources.Dir)
	assert.Equal(t, 5, cfg.Scheduler.MaxConcurrentCrawls)
	assert.Equal(t, 6, cfg.Pipeline.CronHour)

	// Enrichment is opt-in
	assert.False(t, cfg.Oracle.Enabled)
	assert.Equal(t, 60, cfg.Oracle.Threshold)
	assert.Equal(t, 3, cfg.Oracle.Concurrency)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "argus.toml")
	content := `
environment = "production"

[server]
port = 9999

[scheduler]
max_concurrent_crawls = 8

[oracle]
enabled = true
threshold = 40
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Scheduler.MaxConcurrentCrawls)
	assert.True(t, cfg.Oracle.Enabled)
	assert.Equal(t, 40, cfg.Oracle.Threshold)

	// Untouched sections keep their defaults
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 3, cfg.Browser.MaxContexts)
}

func TestLoadFromFileMissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	t.Setenv("ARGUS_SERVER_PORT", "7070")
	t.Setenv("ARGUS_DATA_DIR", "/var/lib/argus")
	t.Setenv("LLM_THRESHOLD", "25")
	t.Setenv("ENABLE_LLM_ENRICHMENT", "true")
	t.Setenv("ORACLE_API_KEY", "sk-test")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/var/lib/argus", cfg.Storage.DataDir)
	assert.Equal(t, 25, cfg.Oracle.Threshold)
	assert.True(t, cfg.Oracle.Enabled)
	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
}

func TestAnthropicKeyFallback(t *testing.T) {
	t.Setenv("ORACLE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-fallback")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "sk-fallback", cfg.Oracle.APIKey)

	t.Setenv("ORACLE_API_KEY", "sk-primary")
	cfg, err = LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, "sk-primary", cfg.Oracle.APIKey, "dedicated key wins over the fallback")
}

func TestBrowserMaxContextsEnvAlias(t *testing.T) {
	t.Setenv("PLAYWRIGHT_MAX_CONTEXTS", "5")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Browser.MaxContexts)

	// The current name wins when both are set
	t.Setenv("BROWSER_MAX_CONTEXTS", "7")
	cfg, err = LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Browser.MaxContexts)
}

func TestInvalidEnvValuesIgnored(t *testing.T) {
	t.Setenv("ARGUS_SERVER_PORT", "not-a-port")
	t.Setenv("LLM_THRESHOLD", "-5")
	t.Setenv("PIPELINE_CRON_HOUR", "99")

	cfg, err := LoadFromFile("")
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, 60, cfg.Oracle.Threshold)
	assert.Equal(t, 6, cfg.Pipeline.CronHour)
}

func TestOracleReady(t *testing.T) {
	cfg := NewDefaultConfig()

	ready, reason := cfg.OracleReady()
	assert.False(t, ready)
	assert.Equal(t, "ORACLE_API_KEY not set", reason)

	cfg.Oracle.APIKey = "sk-test"
	ready, reason = cfg.OracleReady()
	assert.False(t, ready)
	assert.Equal(t, "ENABLE_LLM_ENRICHMENT=false", reason)

	cfg.Oracle.Enabled = true
	ready, reason = cfg.OracleReady()
	assert.True(t, ready)
	assert.Empty(t, reason)
}
