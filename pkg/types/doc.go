// Package types provides shared type definitions for codescout.
//
// These are the values passed between the corpus loader, the indexer, the
// searcher and the MCP tools: corpus files, indexed file records, symbols,
// document references into the keyword index, ranked hits, code blocks,
// build statistics and query classifications.
//
// # Symbols
//
// A Symbol is a named definition found in a file. Its identity is the pair
// (file, name), encoded by Key:
//
//	sym := types.Symbol{
//	    Name:      "index_open",
//	    Kind:      types.KindFunction,
//	    File:      "src/backend/access/index/indexam.c",
//	    StartLine: 126,
//	}
//	sym.Key() // "src/backend/access/index/indexam.c#index_open"
//
// # Documents
//
// The keyword index scores three kinds of documents, told apart by a
// DocumentRef: whole file bodies, symbol text, and summaries. Refs marshal to
// text so they can key JSON maps in exported snapshots.
//
// # Validation
//
// Symbols and file records validate themselves before they are indexed or
// imported:
//
//	if err := rec.Validate(); err != nil {
//	    return fmt.Errorf("bad record: %w", err)
//	}
package types
