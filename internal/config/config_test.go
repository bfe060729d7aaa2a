package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykosuru/vsix-sub002/internal/corpus"
	"github.com/ykosuru/vsix-sub002/internal/searcher"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.Index.EnableTrigrams)
	assert.True(t, cfg.Index.FilterNonCode)
	assert.True(t, cfg.Index.LearnDomain)
	assert.Equal(t, int64(corpus.DefaultMaxFileSize), cfg.Index.MaxFileSize)
	assert.Equal(t, corpus.DefaultSkipDirs, cfg.Index.SkipDirs)
	assert.Equal(t, searcher.DefaultMaxResults, cfg.Search.MaxResults)
	assert.Equal(t, searcher.DefaultCacheTTL, cfg.Search.CacheTTL)
	assert.Equal(t, searcher.DefaultWeights(), cfg.Search.Weights)
	assert.Equal(t, DefaultDBPath, cfg.Storage.DBPath)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_WorkspaceFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ws := t.TempDir()
	yaml := `
index:
  workers: 4
  learn_domain: false
search:
  max_results: 50
  cache_ttl: 10m
  weights:
    exact: 150
storage:
  db_path: /tmp/scout.db
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(ws, "codescout.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Index.Workers)
	assert.False(t, cfg.Index.LearnDomain)
	assert.True(t, cfg.Index.EnableInverted, "unset keys keep defaults")
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 10*time.Minute, cfg.Search.CacheTTL)
	assert.Equal(t, 150.0, cfg.Search.Weights.Exact)
	assert.Equal(t, 95.0, cfg.Search.Weights.ConceptFile)
	assert.Equal(t, "/tmp/scout.db", cfg.Storage.DBPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CODESCOUT_SEARCH_MAX_RESULTS", "75")
	t.Setenv("CODESCOUT_STORAGE_DB_PATH", "/data/index.db")
	t.Setenv("CODESCOUT_INDEX_ENABLE_CALL_GRAPH", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.Search.MaxResults)
	assert.Equal(t, "/data/index.db", cfg.Storage.DBPath)
	assert.False(t, cfg.Index.EnableCallGraph)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"watch": {"debounce": "2s"}}`), 0o644))

	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("search:\n  max_results: 5000\n"), 0o644))
	_, err = LoadFile(bad)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "search.max_results", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"negative workers", func(c *Config) { c.Index.Workers = -1 }, "index.workers"},
		{"too many results", func(c *Config) { c.Search.MaxResults = 201 }, "search.max_results"},
		{"negative cache", func(c *Config) { c.Search.CacheSize = -5 }, "search.cache_size"},
		{"pull factor", func(c *Config) { c.Search.Weights.PullFactor = 2 }, "search.weights.pull_factor"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			var cfgErr *ConfigError
			require.ErrorAs(t, cfg.Validate(), &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestResolveDBPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := Default()
	p, err := cfg.ResolveDBPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".codescout", "codescout.db"), p)

	cfg.Storage.DBPath = "/abs/x.db"
	p, err = cfg.ResolveDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/abs/x.db", p)
}

func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Index.Workers = 3
	cfg.Index.EnableSummaries = false
	cfg.Search.Weights.Exact = 120

	ic := cfg.IndexerConfig(nil)
	assert.Equal(t, 3, ic.Workers)
	require.NotNil(t, ic.Search)
	assert.Equal(t, 120.0, ic.Search.Weights.Exact)

	bo := cfg.BuildOptions()
	assert.False(t, bo.EnableSummaries)
	assert.True(t, bo.EnableTrigrams)
	assert.Equal(t, 3, bo.Workers)

	co := cfg.CorpusOptions(nil)
	assert.Equal(t, corpus.DefaultSkipDirs, co.SkipDirs)

	req := cfg.SearchRequest("index")
	assert.Equal(t, "index", req.Query)
	assert.Equal(t, searcher.DefaultMaxResults, req.MaxResults)
	assert.True(t, req.UseCache)
}
