package indexer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ykosuru/vsix-sub002/internal/domain"
	"github.com/ykosuru/vsix-sub002/internal/filter"
	"github.com/ykosuru/vsix-sub002/internal/inverted"
	"github.com/ykosuru/vsix-sub002/internal/parser"
	"github.com/ykosuru/vsix-sub002/internal/snapshot"
	"github.com/ykosuru/vsix-sub002/internal/trigram"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// ErrNotIndexed is returned by accessors asked for a file or symbol the
// published snapshot does not hold
var ErrNotIndexed = errors.New("not indexed")

// BuildOptions toggles the optional build phases
type BuildOptions struct {
	EnableTrigrams  bool
	EnableInverted  bool
	EnableCallGraph bool
	EnableSummaries bool
	FilterNonCode   bool // drop files the file filter excludes
	LearnDomain     bool
	Workers         int // overrides the handle's worker count when > 0
	MaxFileSize     int // bytes, 0 means unlimited
}

// DefaultBuildOptions enables every phase
func DefaultBuildOptions() *BuildOptions {
	return &BuildOptions{
		EnableTrigrams:  true,
		EnableInverted:  true,
		EnableCallGraph: true,
		EnableSummaries: true,
		FilterNonCode:   true,
		LearnDomain:     true,
	}
}

func (o *BuildOptions) features() snapshot.Features {
	return snapshot.Features{
		Trigrams:  o.EnableTrigrams,
		Inverted:  o.EnableInverted,
		CallGraph: o.EnableCallGraph,
		Summaries: o.EnableSummaries,
	}
}

// fileInput pairs a record with the external summaries supplied for it
type fileInput struct {
	record    *types.FileRecord
	summaries map[string]string
}

// Build indexes corpus from scratch and publishes the result. Phases run in
// order (filter, extract, call graph, trigram and inverted indexing, lookup
// tables, domain knowledge); extraction and per-file indexing fan out across
// workers. Files that cannot be parsed are skipped and counted. An empty
// corpus yields an empty index. Build returns ErrBuildInProgress when another
// build, learn or import holds the handle, and the context error when
// cancelled; in both cases the published snapshot is left untouched.
func (ix *Index) Build(ctx context.Context, corpus types.Corpus, opts *BuildOptions) (*types.BuildStats, error) {
	if !ix.lock.TryAcquire() {
		return nil, types.ErrBuildInProgress
	}
	defer ix.lock.Release()

	if opts == nil {
		opts = DefaultBuildOptions()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = ix.workers
	}

	startTime := time.Now()
	stats := &types.BuildStats{
		BuildID:       uuid.NewString(),
		ErrorMessages: make([]string, 0),
	}

	inputs, err := ix.filterFiles(ctx, corpus, opts, stats)
	if err != nil {
		return nil, err
	}

	results, err := ix.extractFiles(ctx, inputs, workers, stats)
	if err != nil {
		return nil, err
	}

	files := make([]*types.FileRecord, 0, len(inputs))
	var symbols []types.Symbol
	var parsed []*types.ParseResult
	for i, in := range inputs {
		if in.record.IsSourceCode && results[i] == nil {
			continue // failed extraction; already counted
		}
		files = append(files, in.record)
		if res := results[i]; res != nil {
			applySummaries(res.Symbols, in.summaries)
			symbols = append(symbols, res.Symbols...)
			parsed = append(parsed, res)
		}
	}
	stats.FilesIndexed = len(files)

	parts, err := ix.indexParts(ctx, files, symbols, parsed, opts, workers)
	if err != nil {
		return nil, err
	}

	if opts.LearnDomain {
		parts.Knowledge = domain.Learn(files, symbols, ix.domainOpts)
	}

	fillStats(stats, &parts)
	stats.Duration = time.Since(startTime)
	stats.CompletedAt = time.Now()
	parts.Stats = *stats

	ix.publish(snapshot.New(parts))

	ix.logger.Info("index built",
		"build_id", stats.BuildID,
		"files", stats.FilesIndexed,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"symbols", stats.Symbols,
		"call_edges", stats.CallEdges,
		"duration", stats.Duration)
	return stats, nil
}

// filterFiles turns the corpus into file records in path order, dropping
// what the file filter excludes
func (ix *Index) filterFiles(ctx context.Context, corpus types.Corpus, opts *BuildOptions, stats *types.BuildStats) ([]fileInput, error) {
	paths := make([]string, 0, len(corpus))
	for p := range corpus {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	inputs := make([]fileInput, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build cancelled: %w", err)
		}
		cf := corpus[p]
		clean := strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
		if clean == "" || clean == "." || seen[clean] {
			stats.FilesSkipped++
			continue
		}
		if opts.FilterNonCode && !filter.ShouldIndex(clean) {
			stats.FilesSkipped++
			continue
		}
		if opts.MaxFileSize > 0 && len(cf.Content) > opts.MaxFileSize {
			ix.logger.Debug("file too large", "path", clean, "size", len(cf.Content))
			stats.FilesSkipped++
			continue
		}

		language := cf.Language
		if language == "" {
			language = filter.DetectLanguage(clean)
		}
		rec := &types.FileRecord{
			Path:         clean,
			Language:     language,
			Content:      cf.Content,
			LineCount:    types.CountLines(cf.Content),
			IsSourceCode: filter.IsSourceCode(clean, language),
			Summary:      strings.TrimSpace(cf.Summary),
		}
		seen[clean] = true
		inputs = append(inputs, fileInput{record: rec, summaries: cf.SymbolSummaries})
	}
	return inputs, nil
}

// extractFiles runs the symbol extractor over every source file. The result
// slot of a non-source or failed file stays nil.
func (ix *Index) extractFiles(ctx context.Context, inputs []fileInput, workers int, stats *types.BuildStats) ([]*types.ParseResult, error) {
	results := make([]*types.ParseResult, len(inputs))
	semaphore := make(chan struct{}, workers)

	var failed int32
	var mu sync.Mutex // Protect stats.ErrorMessages

	g, gctx := errgroup.WithContext(ctx)
	for i := range inputs {
		rec := inputs[i].record
		if !rec.IsSourceCode {
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			res, err := ix.parser.Extract(rec)
			if err != nil {
				atomic.AddInt32(&failed, 1)
				var skip *types.SkippableFileError
				if !errors.As(err, &skip) {
					skip = &types.SkippableFileError{Path: rec.Path, Err: err}
				}
				ix.logger.Warn("skipping file", "path", rec.Path, "error", skip.Err)
				mu.Lock()
				stats.ErrorMessages = append(stats.ErrorMessages, skip.Error())
				mu.Unlock()
				return nil
			}
			for _, w := range res.Warnings {
				ix.logger.Debug("extraction warning", "path", rec.Path, "line", w.Line, "message", w.Message)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build cancelled: %w", err)
	}

	stats.FilesFailed = int(failed)
	sort.Strings(stats.ErrorMessages)
	return results, nil
}

// applySummaries lets externally supplied summaries replace extracted doc comments
func applySummaries(symbols []types.Symbol, summaries map[string]string) {
	if len(summaries) == 0 {
		return
	}
	for i := range symbols {
		if s, ok := summaries[symbols[i].Name]; ok && strings.TrimSpace(s) != "" {
			symbols[i].Summary = strings.TrimSpace(s)
		}
	}
}

// indexParts builds the call graph and the trigram and inverted indexes.
// Files are split into one shard per worker; every shard fills private
// indexes that are merged afterwards, and merging is a set union so the
// result does not depend on scheduling.
func (ix *Index) indexParts(ctx context.Context, files []*types.FileRecord, symbols []types.Symbol,
	parsed []*types.ParseResult, opts *BuildOptions, workers int) (snapshot.Parts, error) {

	parts := snapshot.Parts{
		Files:       files,
		Symbols:     symbols,
		Features:    opts.features(),
		SymbolNames: trigram.New[string](),
		FileNames:   trigram.New[string](),
		CodeLines:   trigram.NewPostingsOnly[trigram.LineRef](),
		Keywords:    inverted.New(),
	}
	if opts.EnableCallGraph {
		parts.Graph = parser.BuildCallGraph(parsed)
	} else {
		parts.Graph = parser.NewCallGraph()
	}

	symbolsByFile := make(map[string][]types.Symbol)
	for _, sym := range symbols {
		symbolsByFile[sym.File] = append(symbolsByFile[sym.File], sym)
	}

	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}
	shards := make([]*shard, workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		sh := newShard()
		shards[w] = sh
		g.Go(func() error {
			for i := w; i < len(files); i += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				f := files[i]
				sh.addFile(f, symbolsByFile[f.Path], opts)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return parts, fmt.Errorf("build cancelled: %w", err)
	}

	for _, sh := range shards {
		parts.SymbolNames.Merge(sh.symbolNames)
		parts.FileNames.Merge(sh.fileNames)
		parts.CodeLines.Merge(sh.codeLines)
		parts.Keywords.Merge(sh.keywords)
	}
	return parts, nil
}

// shard is one worker's private slice of the indexes
type shard struct {
	symbolNames *trigram.Index[string]
	fileNames   *trigram.Index[string]
	codeLines   *trigram.Index[trigram.LineRef]
	keywords    *inverted.Index
}

func newShard() *shard {
	return &shard{
		symbolNames: trigram.New[string](),
		fileNames:   trigram.New[string](),
		codeLines:   trigram.NewPostingsOnly[trigram.LineRef](),
		keywords:    inverted.New(),
	}
}

// addFile indexes one file and its symbols. Every file stays name-searchable;
// only source files contribute code lines and a body document.
func (sh *shard) addFile(f *types.FileRecord, symbols []types.Symbol, opts *BuildOptions) {
	base := path.Base(f.Path)

	if opts.EnableTrigrams {
		sh.fileNames.Add(fileStem(base), f.Path)
		for _, sym := range symbols {
			sh.symbolNames.Add(sym.Name, sym.Key())
		}
		if f.IsSourceCode {
			for n, line := range f.Lines() {
				if trigram.IndexableLine(line) {
					sh.codeLines.Add(line, trigram.LineRef{File: f.Path, Line: n + 1})
				}
			}
		}
	}

	if !opts.EnableInverted {
		return
	}
	if f.IsSourceCode {
		sh.keywords.Add(types.FileDoc(f.Path), types.DocMeta{Name: base, File: f.Path}, f.Content)
	}
	if opts.EnableSummaries && f.Summary != "" {
		sh.keywords.Add(types.SummaryDoc(f.Path), types.DocMeta{Name: base, File: f.Path}, f.Summary)
	}
	for _, sym := range symbols {
		meta := types.DocMeta{Name: sym.Name, File: sym.File, Kind: sym.Kind}
		sh.keywords.Add(types.SymbolDoc(sym.Key()), meta, sym.SearchText())
		if opts.EnableSummaries && sym.Kind.IsCallable() && sym.Summary != "" {
			sh.keywords.Add(types.SummaryDoc(sym.Key()), meta, sym.Summary)
		}
	}
}

func fileStem(base string) string {
	if ext := path.Ext(base); ext != "" && ext != base {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// fillStats derives counts from the finished parts
func fillStats(stats *types.BuildStats, parts *snapshot.Parts) {
	stats.Symbols = len(parts.Symbols)
	stats.Functions, stats.Variables = 0, 0
	for _, sym := range parts.Symbols {
		if sym.Kind.IsCallable() {
			stats.Functions++
		} else {
			stats.Variables++
		}
	}
	stats.SourceFiles = 0
	for _, f := range parts.Files {
		if f.IsSourceCode {
			stats.SourceFiles++
		}
	}
	stats.CallEdges = parts.Graph.EdgeCount()
	stats.TrigramTerms = parts.SymbolNames.TermCount() + parts.FileNames.TermCount() + parts.CodeLines.TermCount()
	stats.InvertedTerms = parts.Keywords.TermCount()
	stats.Summaries = parts.Keywords.DocCount(types.DocSummary)
	if parts.Knowledge != nil {
		stats.Modules = parts.Knowledge.ModuleCount()
	}
}
