package havewecrashedyet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, "data/site", cfg.SiteDir)
	assert.Equal(t, "data/crashedyet.db", cfg.DatabasePath)
	assert.Equal(t, "SPY", cfg.Symbol)
	assert.Equal(t, "https://finnhub.io/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "main", cfg.SourceBranch)
	assert.Equal(t, "pages", cfg.PublishBranch)
	assert.Equal(t, "deploy", cfg.CommitPrefix)
	assert.Equal(t, 5*time.Minute, cfg.SnapshotCacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.Schedule, "scheduler off unless configured")
	assert.Empty(t, cfg.PublishRemote, "local preview mode by default")
}

func TestLoadConfigPipelineFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	content := `
on:
  push:
    branch: master
  schedule: "0 * * * *"
site:
  name: Crash Watch
  url: https://havewecrashedyet.example
  symbol: QQQ
publish:
  branch: gh-pages
  remote: https://github.com/example/crashwatch.git
  commit_prefix: "auto-deploy"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "master", cfg.SourceBranch)
	assert.Equal(t, "0 * * * *", cfg.Schedule)
	assert.Equal(t, "Crash Watch", cfg.SiteName)
	assert.Equal(t, "QQQ", cfg.Symbol)
	assert.Equal(t, "gh-pages", cfg.PublishBranch)
	assert.Equal(t, "https://github.com/example/crashwatch.git", cfg.PublishRemote)
	assert.Equal(t, "auto-deploy", cfg.CommitPrefix)
	// Untouched fields still get defaults.
	assert.Equal(t, ":3000", cfg.Addr)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("site:\n  symbol: QQQ\n"), 0o644))

	t.Setenv("INDEX_SYMBOL", "VTI")
	t.Setenv("FINANCIAL_API_KEY", "test-key")
	t.Setenv("SNAPSHOT_CACHE_TTL", "90s")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "VTI", cfg.Symbol, "env wins over the pipeline file")
	assert.Equal(t, "test-key", cfg.APIKey)
	assert.Equal(t, 90*time.Second, cfg.SnapshotCacheTTL)
	assert.True(t, cfg.CookieSecure)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfigBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("on: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
