// Package indexer owns the index handle and runs the build pipeline.
//
// A build turns a corpus (a map of relative paths to file contents) into an
// immutable snapshot and publishes it atomically:
//
//	ix := indexer.New(&indexer.Config{Workers: 8, Logger: logger})
//	stats, err := ix.Build(ctx, corpus, indexer.DefaultBuildOptions())
//
//	resp, err := ix.Search(ctx, searcher.SearchRequest{Query: "validate payment"})
//
// # Build Phases
//
//  1. Filter: drop files the file filter excludes, detect languages
//  2. Extract: run the symbol extractor over source files (parallel)
//  3. Call graph: aggregate per-file call lists
//  4. Index: fill the trigram and inverted indexes, one shard per worker
//  5. Learn: derive domain knowledge from the directory layout (optional)
//
// Files the extractor cannot handle are skipped and counted in
// BuildStats.FilesFailed; they never fail the build.
//
// # Concurrency
//
// Readers always see a complete snapshot. Build, Learn and Import take a
// non-blocking lock; a second caller gets types.ErrBuildInProgress instead
// of waiting. A cancelled build leaves the published snapshot untouched.
//
// # Snapshots
//
// Export writes a versioned, zstd-compressed blob and Import reads one back.
// Persist and Restore do the same through a storage.Storage so an index
// survives restarts.
package indexer
