// Package searcher runs the staged retrieval pipeline over an index snapshot.
//
// A query is split into terms, action verbs are recognized and compound
// identifiers are synthesized from them (index + built -> build_index). The
// stages then run in priority order:
//
//  1. Concept files: files named after a term contribute all their symbols
//  2. Exact names: symbols named exactly like a term or an expanded term
//  3. Fuzzy names: trigram matching over symbol names
//  4. Directories: module directories whose name matches a term
//  5. Code text: lines containing a term, mapped to the nearest symbol
//  6. Keywords: ranked inverted-index matches over symbol text, summaries
//     and file bodies
//
// Each stage only adds items no earlier stage produced, so the first stage
// to find an item fixes its score. Scores come from a Weights table.
//
// # Caching
//
// Responses can be cached in an LRU keyed by the snapshot build ID and the
// normalized request:
//
//	resp, err := s.Search(ctx, snap, searcher.SearchRequest{
//	    Query:    "how is the index built",
//	    UseCache: true,
//	})
//
// Cached responses are deep-copied on the way in and out.
package searcher
