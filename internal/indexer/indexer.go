package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/ykosuru/vsix-sub002/internal/chunker"
	"github.com/ykosuru/vsix-sub002/internal/classifier"
	"github.com/ykosuru/vsix-sub002/internal/domain"
	"github.com/ykosuru/vsix-sub002/internal/logging"
	"github.com/ykosuru/vsix-sub002/internal/parser"
	"github.com/ykosuru/vsix-sub002/internal/searcher"
	"github.com/ykosuru/vsix-sub002/internal/snapshot"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// Index is the engine handle. It owns the published snapshot and swaps it
// atomically when a build, learn or import completes; readers never observe
// a half-built index.
type Index struct {
	current atomic.Pointer[snapshot.Snapshot]
	lock    buildLock

	parser     *parser.Parser
	chunker    *chunker.Chunker
	searcher   *searcher.Searcher
	classifier *classifier.Classifier
	domainOpts domain.Options
	logger     *slog.Logger

	// Worker pool configuration
	workers int
}

// Config contains configuration for the index handle. Zero values mean defaults.
type Config struct {
	Workers      int // Number of concurrent workers (default: runtime.NumCPU())
	MaxBodyLines int // Body-end scan cap for the symbol extractor
	Search       *searcher.Config
	Domain       domain.Options
	Logger       *slog.Logger
}

// New creates an Index holding an empty snapshot
func New(cfg *Config) *Index {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := logging.OrDiscard(cfg.Logger)

	searchCfg := searcher.Config{}
	if cfg.Search != nil {
		searchCfg = *cfg.Search
	}
	if searchCfg.Logger == nil {
		searchCfg.Logger = logger
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ix := &Index{
		parser:     parser.New().WithMaxBodyLines(cfg.MaxBodyLines),
		chunker:    chunker.New(),
		searcher:   searcher.New(&searchCfg),
		classifier: classifier.New(nil),
		domainOpts: cfg.Domain,
		logger:     logger,
		workers:    workers,
	}
	ix.current.Store(snapshot.Empty())
	return ix
}

// Snapshot returns the currently published snapshot
func (ix *Index) Snapshot() *snapshot.Snapshot {
	return ix.current.Load()
}

func (ix *Index) publish(snap *snapshot.Snapshot) {
	ix.current.Store(snap)
	ix.searcher.InvalidateCache()
}

// Stats returns the statistics of the published snapshot
func (ix *Index) Stats() types.BuildStats {
	return ix.Snapshot().Stats()
}

// Knowledge returns the domain knowledge of the published snapshot
func (ix *Index) Knowledge() *domain.Knowledge {
	return ix.Snapshot().Knowledge()
}

// Search runs a search against the published snapshot
func (ix *Index) Search(ctx context.Context, req searcher.SearchRequest) (*searcher.SearchResponse, error) {
	return ix.searcher.Search(ctx, ix.Snapshot(), req)
}

// Searcher exposes the search pipeline, for callers that manage the cache
func (ix *Index) Searcher() *searcher.Searcher {
	return ix.searcher
}

// Classify classifies a natural-language query using the published knowledge
func (ix *Index) Classify(q string) types.Classification {
	return ix.classifier.WithKnowledge(ix.Knowledge()).Classify(q)
}

// Learn re-derives domain knowledge from the published snapshot and
// publishes a copy carrying it. Previous knowledge is replaced, not merged.
func (ix *Index) Learn(ctx context.Context) (*domain.Knowledge, error) {
	if !ix.lock.TryAcquire() {
		return nil, types.ErrBuildInProgress
	}
	defer ix.lock.Release()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("learn cancelled: %w", err)
	}
	start := time.Now()
	snap := ix.Snapshot()
	k := domain.Learn(snap.Files(), snap.Symbols(), ix.domainOpts)
	ix.publish(snap.WithKnowledge(k))

	ix.logger.Info("domain knowledge learned",
		"modules", k.ModuleCount(),
		"prefixes", len(k.PrefixOwner),
		"terms", len(k.TermIndex),
		"duration", time.Since(start))
	return k, nil
}

// Callers returns the names of symbols that call name
func (ix *Index) Callers(name string) []string {
	return ix.Snapshot().Graph().Callers(name)
}

// Callees returns the names called from the body of name
func (ix *Index) Callees(name string) []string {
	return ix.Snapshot().Graph().Callees(name)
}

// SymbolsByName returns every symbol named name, ignoring case
func (ix *Index) SymbolsByName(name string) []types.Symbol {
	return ix.Snapshot().SymbolsByName(name)
}

// CodeBlock returns the source of sym with context lines on each side
func (ix *Index) CodeBlock(sym types.Symbol, context int) (*types.CodeBlock, error) {
	snap := ix.Snapshot()
	f, ok := snap.File(sym.File)
	if !ok {
		return nil, fmt.Errorf("file %s: %w", sym.File, ErrNotIndexed)
	}
	if key := sym.Key(); sym.StartLine <= 0 {
		indexed, ok := snap.Symbol(key)
		if !ok {
			return nil, fmt.Errorf("symbol %s: %w", key, ErrNotIndexed)
		}
		sym = indexed
	}
	return ix.chunker.CodeBlock(f, sym, context)
}

// FileContent returns the full text of an indexed file
func (ix *Index) FileContent(path string) (string, error) {
	f, ok := ix.Snapshot().File(path)
	if !ok {
		return "", fmt.Errorf("file %s: %w", path, ErrNotIndexed)
	}
	return f.Content, nil
}
