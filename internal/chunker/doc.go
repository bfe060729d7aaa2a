// Package chunker materializes code blocks: line-bounded excerpts of an
// indexed file around a symbol or a single matching line.
//
// # Basic Usage
//
//	c := chunker.New()
//	block, err := c.CodeBlock(file, sym, 3)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("%s:%d-%d (%d tokens)\n", block.File, block.StartLine, block.EndLine, block.TokenCount)
//
// # Block Boundaries
//
// A symbol block spans the symbol's start line through its end line, widened
// by the requested number of context lines on each side and clamped to the
// file. Symbols without a known end line are treated as single-line spans.
//
// # Block Sizing
//
// Blocks are capped at MaxTokensPerChunk estimated tokens. Oversized blocks
// are cut at a line boundary, keep at least their first line and are marked
// Truncated. Token estimation uses a simple heuristic (chars/4).
package chunker
