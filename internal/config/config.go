// Package config loads the codescout configuration with viper. Values come
// from defaults, then an optional codescout.{yaml,json,toml} file, then
// CODESCOUT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ykosuru/vsix-sub002/internal/corpus"
	"github.com/ykosuru/vsix-sub002/internal/domain"
	"github.com/ykosuru/vsix-sub002/internal/indexer"
	"github.com/ykosuru/vsix-sub002/internal/searcher"
)

const (
	// EnvPrefix prefixes every environment override: CODESCOUT_STORAGE_DB_PATH
	EnvPrefix = "CODESCOUT"
	// FileName is the config file base name searched for
	FileName = "codescout"
	// DefaultDBPath is where snapshots are stored unless configured
	DefaultDBPath = "~/.codescout/codescout.db"
)

// Config is the complete configuration
type Config struct {
	Index   IndexConfig   `mapstructure:"index"`
	Search  SearchConfig  `mapstructure:"search"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// IndexConfig controls corpus loading and the build phases
type IndexConfig struct {
	Workers         int      `mapstructure:"workers"`
	MaxFileSize     int64    `mapstructure:"max_file_size"`
	MaxBodyLines    int      `mapstructure:"max_body_lines"`
	SkipDirs        []string `mapstructure:"skip_dirs"`
	IncludeHidden   bool     `mapstructure:"include_hidden"`
	EnableTrigrams  bool     `mapstructure:"enable_trigrams"`
	EnableInverted  bool     `mapstructure:"enable_inverted"`
	EnableCallGraph bool     `mapstructure:"enable_call_graph"`
	EnableSummaries bool     `mapstructure:"enable_summaries"`
	FilterNonCode   bool     `mapstructure:"filter_non_code"`
	LearnDomain     bool     `mapstructure:"learn_domain"`
}

// SearchConfig controls the search pipeline and its cache
type SearchConfig struct {
	MaxResults     int              `mapstructure:"max_results"`
	CodeBlockCount int              `mapstructure:"code_block_count"`
	ContextLines   int              `mapstructure:"context_lines"`
	CacheSize      int              `mapstructure:"cache_size"`
	CacheTTL       time.Duration    `mapstructure:"cache_ttl"`
	Weights        searcher.Weights `mapstructure:"weights"`
}

// StorageConfig locates the snapshot store
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig selects the log level and format
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text or json
}

// WatchConfig tunes the file watcher
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("index.workers", 0)
	v.SetDefault("index.max_file_size", corpus.DefaultMaxFileSize)
	v.SetDefault("index.max_body_lines", 0)
	v.SetDefault("index.skip_dirs", corpus.DefaultSkipDirs)
	v.SetDefault("index.include_hidden", false)
	v.SetDefault("index.enable_trigrams", true)
	v.SetDefault("index.enable_inverted", true)
	v.SetDefault("index.enable_call_graph", true)
	v.SetDefault("index.enable_summaries", true)
	v.SetDefault("index.filter_non_code", true)
	v.SetDefault("index.learn_domain", true)

	v.SetDefault("search.max_results", searcher.DefaultMaxResults)
	v.SetDefault("search.code_block_count", searcher.DefaultCodeBlockCount)
	v.SetDefault("search.context_lines", 3)
	v.SetDefault("search.cache_size", searcher.DefaultCacheSize)
	v.SetDefault("search.cache_ttl", searcher.DefaultCacheTTL)
	w := searcher.DefaultWeights()
	for key, val := range map[string]any{
		"exact": w.Exact, "expanded_exact": w.ExpandedExact, "concept_file": w.ConceptFile,
		"fuzzy_cap": w.FuzzyCap, "directory": w.Directory, "symbol_text": w.SymbolText,
		"directory_symbol": w.DirectorySymbol, "summary": w.Summary, "code_text": w.CodeText,
		"file_body": w.FileBody, "fuzzy_floor": w.FuzzyFloor, "pull_factor": w.PullFactor,
	} {
		v.SetDefault("search.weights."+key, val)
	}

	v.SetDefault("storage.db_path", DefaultDBPath)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("watch.debounce", 500*time.Millisecond)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default returns the configuration with nothing but defaults applied
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		// defaults always decode
		panic(fmt.Sprintf("invalid default config: %v", err))
	}
	return cfg
}

// Load reads codescout.{yaml,json,toml} from workspace or $HOME/.codescout,
// whichever is found first. A missing file is not an error.
func Load(workspace string) (*Config, error) {
	v := newViper()
	v.SetConfigName(FileName)
	if workspace != "" {
		v.AddConfigPath(workspace)
	}
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".codescout"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}
	return decodeAndValidate(v)
}

// LoadFile reads the configuration from an explicit file
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return decodeAndValidate(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func decodeAndValidate(v *viper.Viper) (*Config, error) {
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigError reports an invalid field
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// Validate checks value ranges
func (c *Config) Validate() error {
	switch {
	case c.Index.Workers < 0:
		return &ConfigError{Field: "index.workers", Message: "must not be negative"}
	case c.Search.MaxResults < 0 || c.Search.MaxResults > searcher.MaxResultsLimit:
		return &ConfigError{Field: "search.max_results", Message: fmt.Sprintf("must be between 0 and %d", searcher.MaxResultsLimit)}
	case c.Search.CacheSize < 0:
		return &ConfigError{Field: "search.cache_size", Message: "must not be negative"}
	case c.Search.Weights.PullFactor < 0 || c.Search.Weights.PullFactor > 1:
		return &ConfigError{Field: "search.weights.pull_factor", Message: "must be between 0 and 1"}
	case c.Watch.Debounce < 0:
		return &ConfigError{Field: "watch.debounce", Message: "must not be negative"}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be text or json"}
	}
	return nil
}

// ResolveDBPath expands a leading ~ in the storage path
func (c *Config) ResolveDBPath() (string, error) {
	p := c.Storage.DBPath
	if p == "" {
		p = DefaultDBPath
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p, nil
}

// IndexerConfig builds the index handle configuration
func (c *Config) IndexerConfig(logger *slog.Logger) *indexer.Config {
	weights := c.Search.Weights
	return &indexer.Config{
		Workers:      c.Index.Workers,
		MaxBodyLines: c.Index.MaxBodyLines,
		Domain:       domain.DefaultOptions(),
		Logger:       logger,
		Search: &searcher.Config{
			Weights:   &weights,
			CacheSize: c.Search.CacheSize,
			CacheTTL:  c.Search.CacheTTL,
			Logger:    logger,
		},
	}
}

// BuildOptions converts the index section into build options
func (c *Config) BuildOptions() *indexer.BuildOptions {
	return &indexer.BuildOptions{
		EnableTrigrams:  c.Index.EnableTrigrams,
		EnableInverted:  c.Index.EnableInverted,
		EnableCallGraph: c.Index.EnableCallGraph,
		EnableSummaries: c.Index.EnableSummaries,
		FilterNonCode:   c.Index.FilterNonCode,
		LearnDomain:     c.Index.LearnDomain,
		Workers:         c.Index.Workers,
	}
}

// CorpusOptions converts the index section into loader options
func (c *Config) CorpusOptions(logger *slog.Logger) *corpus.Options {
	return &corpus.Options{
		SkipDirs:      c.Index.SkipDirs,
		IncludeHidden: c.Index.IncludeHidden,
		MaxFileSize:   c.Index.MaxFileSize,
		Workers:       c.Index.Workers,
		Logger:        logger,
	}
}

// SearchRequest fills a request with the configured defaults
func (c *Config) SearchRequest(query string) searcher.SearchRequest {
	return searcher.SearchRequest{
		Query:          query,
		MaxResults:     c.Search.MaxResults,
		CodeBlockCount: c.Search.CodeBlockCount,
		ContextLines:   c.Search.ContextLines,
		UseCache:       true,
	}
}
