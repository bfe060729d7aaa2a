package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ykosuru/vsix-sub002/internal/chunker"
	"github.com/ykosuru/vsix-sub002/internal/logging"
	"github.com/ykosuru/vsix-sub002/internal/query"
	"github.com/ykosuru/vsix-sub002/internal/snapshot"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

const (
	DefaultMaxResults     = 20
	MaxResultsLimit       = 200
	DefaultCodeBlockCount = 5
	DefaultCacheSize      = 1000
	DefaultCacheTTL       = time.Hour
)

// Include selects which result categories a response carries
type Include struct {
	Symbols    bool `json:"symbols"`
	Files      bool `json:"files"`
	CodeBlocks bool `json:"code_blocks"`
}

// IncludeAll returns every result category
func IncludeAll() *Include {
	return &Include{Symbols: true, Files: true, CodeBlocks: true}
}

// Strategies selects which retrieval stages run
type Strategies struct {
	ConceptFiles bool `json:"concept_files"`
	ExactNames   bool `json:"exact_names"`
	FuzzyNames   bool `json:"fuzzy_names"`
	FileNames    bool `json:"file_names"`
	Directories  bool `json:"directories"`
	CodeText     bool `json:"code_text"`
	Keywords     bool `json:"keywords"`
}

// AllStrategies runs every stage
func AllStrategies() *Strategies {
	return &Strategies{
		ConceptFiles: true,
		ExactNames:   true,
		FuzzyNames:   true,
		FileNames:    true,
		Directories:  true,
		CodeText:     true,
		Keywords:     true,
	}
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query          string
	MaxResults     int         // default 20, capped at 200
	Include        *Include    // nil includes everything
	Strategies     *Strategies // nil runs every stage
	CodeBlockCount int         // default 5, negative disables code blocks
	ContextLines   int         // lines around each code block, negative means 3
	UseCache       bool        // Whether to use query cache
	CacheTTL       time.Duration
}

// SearchStats describes how a response was produced
type SearchStats struct {
	BuildID       string         `json:"build_id"`
	Terms         []string       `json:"terms"`
	ExpandedTerms []string       `json:"expanded_terms,omitempty"`
	Actions       []string       `json:"actions,omitempty"`
	StageHits     map[string]int `json:"stage_hits"`
	TotalSymbols  int            `json:"total_symbols"`
	TotalFiles    int            `json:"total_files"`
	Duration      time.Duration  `json:"duration"`
	CacheHit      bool           `json:"cache_hit"`
}

// SearchResponse contains ranked results and metadata
type SearchResponse struct {
	Symbols    []types.SymbolHit `json:"symbols"`
	Files      []types.FileHit   `json:"files"`
	CodeBlocks []types.CodeBlock `json:"code_blocks"`
	Stats      SearchStats       `json:"stats"`
}

// Config contains configuration for the searcher. Zero values mean defaults.
type Config struct {
	Weights   *Weights
	CacheSize int
	CacheTTL  time.Duration

	// NearbyWindow is how far from a code-text match a symbol may start and
	// still represent it
	NearbyWindow int
	// SymbolsPerFile is how many symbols a directory or keyword file hit pulls in
	SymbolsPerFile int
	// ConceptSlack is how many characters a file name may extend a term by
	// and still count as a concept file
	ConceptSlack int
	// KeywordLimit is the number of inverted-index hits taken per document class
	KeywordLimit int
	// MaxLinesPerTerm bounds code-text matches examined for one term
	MaxLinesPerTerm int

	Logger *slog.Logger
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.CacheSize <= 0 {
		out.CacheSize = DefaultCacheSize
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = DefaultCacheTTL
	}
	if out.NearbyWindow <= 0 {
		out.NearbyWindow = 10
	}
	if out.SymbolsPerFile <= 0 {
		out.SymbolsPerFile = 3
	}
	if out.ConceptSlack <= 0 {
		out.ConceptSlack = 3
	}
	if out.KeywordLimit <= 0 {
		out.KeywordLimit = 20
	}
	if out.MaxLinesPerTerm <= 0 {
		out.MaxLinesPerTerm = 200
	}
	return out
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs the staged retrieval pipeline against index snapshots.
// It holds no index state of its own beyond the result cache, so one Searcher
// serves every snapshot generation.
type Searcher struct {
	cfg     Config
	weights Weights
	chunker *chunker.Chunker
	logger  *slog.Logger
	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// New creates a new Searcher instance
func New(cfg *Config) *Searcher {
	c := cfg.withDefaults()
	w := DefaultWeights()
	if c.Weights != nil {
		w = c.Weights.withDefaults()
	}

	// Cache will automatically evict least recently used entries
	cache, err := lru.New[[32]byte, *cacheEntry](c.CacheSize)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		cfg:     c,
		weights: w,
		chunker: chunker.New(),
		logger:  logging.OrDiscard(c.Logger),
		cache:   cache,
	}
}

// Weights returns the scoring table in use
func (s *Searcher) Weights() Weights {
	return s.weights
}

// Search runs every enabled stage for req against snap. Input that yields no
// terms, an empty snapshot or a stage with nothing to match all degrade to
// empty results; only context cancellation is reported as an error.
func (s *Searcher) Search(ctx context.Context, snap *snapshot.Snapshot, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()
	if snap == nil {
		snap = snapshot.Empty()
	}
	s.normalizeRequest(&req)

	// Check cache if enabled
	var key [32]byte
	if req.UseCache {
		key = computeQueryHash(snap.BuildID(), req)
		if cached := s.checkCache(key); cached != nil {
			cached.Stats.CacheHit = true
			cached.Stats.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	r := newRun(s, snap)
	terms := query.Terms(req.Query)
	actions := query.Actions(req.Query)
	expanded := query.Expand(terms, actions)
	r.stats.Terms = terms
	r.stats.Actions = actions
	r.stats.ExpandedTerms = expanded

	if len(terms) > 0 && snap.FileCount() > 0 {
		stages := []struct {
			name    string
			enabled bool
			run     func()
		}{
			{"concept_files", req.Strategies.ConceptFiles, func() { r.conceptFiles(terms) }},
			{"exact_names", req.Strategies.ExactNames, func() { r.exactNames(terms, expanded) }},
			{"fuzzy_names", req.Strategies.FuzzyNames, func() { r.fuzzyNames(terms) }},
			{"file_names", req.Strategies.FileNames, func() { r.fileNames(terms) }},
			{"directories", req.Strategies.Directories, func() { r.directories(terms) }},
			{"code_text", req.Strategies.CodeText, func() { r.codeText(terms) }},
			{"keywords", req.Strategies.Keywords, func() { r.keywords(terms) }},
		}
		for _, st := range stages {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("search cancelled: %w", err)
			}
			if !st.enabled {
				continue
			}
			before := r.found
			st.run()
			r.stats.StageHits[st.name] = r.found - before
			s.logger.Debug("search stage", "stage", st.name, "new", r.found-before, "query", req.Query)
		}
	}

	response := r.finish(req)
	response.Stats.Duration = time.Since(startTime)

	// Store in cache if enabled
	if req.UseCache {
		s.storeInCache(key, req.CacheTTL, response)
	}
	return response, nil
}

// normalizeRequest fills defaults and clamps limits
func (s *Searcher) normalizeRequest(req *SearchRequest) {
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	if req.MaxResults > MaxResultsLimit {
		req.MaxResults = MaxResultsLimit
	}
	if req.Include == nil {
		req.Include = IncludeAll()
	}
	if req.Strategies == nil {
		req.Strategies = AllStrategies()
	}
	if req.CodeBlockCount == 0 {
		req.CodeBlockCount = DefaultCodeBlockCount
	}
	if req.ContextLines < 0 {
		req.ContextLines = chunker.DefaultContextLines
	}
	if req.CacheTTL <= 0 {
		req.CacheTTL = s.cfg.CacheTTL
	}
}

// checkCache looks up cached search results
func (s *Searcher) checkCache(key [32]byte) *SearchResponse {
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	// Check if entry has expired while holding read lock
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()
	return response
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(key [32]byte, ttl time.Duration, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response. Keys already include the
// snapshot build ID, so this only frees memory after a rebuild.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}
	dst := &SearchResponse{
		Symbols:    append([]types.SymbolHit{}, src.Symbols...),
		Files:      append([]types.FileHit{}, src.Files...),
		CodeBlocks: append([]types.CodeBlock{}, src.CodeBlocks...),
		Stats:      src.Stats,
	}
	dst.Stats.Terms = append([]string(nil), src.Stats.Terms...)
	dst.Stats.ExpandedTerms = append([]string(nil), src.Stats.ExpandedTerms...)
	dst.Stats.Actions = append([]string(nil), src.Stats.Actions...)
	dst.Stats.StageHits = make(map[string]int, len(src.Stats.StageHits))
	for k, v := range src.Stats.StageHits {
		dst.Stats.StageHits[k] = v
	}
	return dst
}

// computeQueryHash computes a unique hash for a request against one build
func computeQueryHash(buildID string, req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(buildID)
	data.WriteString("|")
	data.WriteString(req.Query)
	fmt.Fprintf(&data, "|%d|%d|%d", req.MaxResults, req.CodeBlockCount, req.ContextLines)
	fmt.Fprintf(&data, "|inc:%t,%t,%t", req.Include.Symbols, req.Include.Files, req.Include.CodeBlocks)
	st := req.Strategies
	fmt.Fprintf(&data, "|st:%t,%t,%t,%t,%t,%t,%t",
		st.ConceptFiles, st.ExactNames, st.FuzzyNames, st.FileNames, st.Directories, st.CodeText, st.Keywords)
	return sha256.Sum256([]byte(data.String()))
}

// sortSymbolHits orders hits by score, then by location for stable output
func sortSymbolHits(hits []types.SymbolHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Symbol.File != b.Symbol.File {
			return a.Symbol.File < b.Symbol.File
		}
		if a.Symbol.StartLine != b.Symbol.StartLine {
			return a.Symbol.StartLine < b.Symbol.StartLine
		}
		return a.Symbol.Name < b.Symbol.Name
	})
}

func sortFileHits(hits []types.FileHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Path < hits[j].Path
	})
}
