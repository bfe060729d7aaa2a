// Package parser extracts symbols and call sites from source files using
// per-language line heuristics.
//
// No syntax tree is built. Each language family (C-like, Java-like, Go,
// JavaScript, Rust, Python, Ruby, TAL, COBOL, PL/I and a generic fallback)
// contributes a list of declaration patterns and a body-end heuristic: brace
// counting, indentation, BEGIN/END nesting, or "until the next declaration".
//
// # Basic Usage
//
//	p := parser.New()
//	result, err := p.Extract(&types.FileRecord{Path: "src/net.tal", Language: "tal", Content: src})
//	if err != nil {
//	    return err // only *types.SkippableFileError for binary content
//	}
//	for _, sym := range result.Symbols {
//	    fmt.Printf("%s %s at %d-%d\n", sym.Kind, sym.Name, sym.StartLine, sym.EndLine)
//	}
//
// # Call Graph
//
// Extract also returns, for each function, method or procedure, the sorted
// list of identifiers called from its body. Calls are attributed to the
// innermost callable that contains the call site. Control-flow keywords and
// the caller's own name are never recorded. CallGraph merges these per-file
// lists into a forward and reverse adjacency keyed by symbol name.
//
// # Error Handling
//
// Malformed or unusual input never fails the scan; it yields fewer symbols.
// A name declared twice in one file keeps its first definition and records a
// warning on the result.
package parser
