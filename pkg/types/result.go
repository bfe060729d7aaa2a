package types

// MatchType records which retrieval strategy produced a hit
type MatchType string

const (
	MatchConceptFile MatchType = "concept_file"
	MatchExact       MatchType = "exact"
	MatchExpanded    MatchType = "expanded"
	MatchFuzzy       MatchType = "fuzzy"
	MatchFileName    MatchType = "file_name"
	MatchDirectory   MatchType = "directory"
	MatchCodeText    MatchType = "code_text"
	MatchKeyword     MatchType = "keyword"
	MatchSummary     MatchType = "summary"
	MatchFileBody    MatchType = "file_body"
)

// SymbolHit is a ranked symbol result
type SymbolHit struct {
	Symbol    Symbol    `json:"symbol"`
	Score     float64   `json:"score"`
	MatchType MatchType `json:"match_type"`
	Term      string    `json:"term,omitempty"`
}

// FileHit is a ranked file result
type FileHit struct {
	Path      string    `json:"path"`
	Language  string    `json:"language"`
	Score     float64   `json:"score"`
	MatchType MatchType `json:"match_type"`
}

// CodeBlock is an excerpt of a file surrounding a symbol
type CodeBlock struct {
	File       string `json:"file"`
	SymbolName string `json:"symbol_name,omitempty"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// ComputeTokenCount estimates the number of tokens in the block.
// Uses a simple heuristic: characters / 4
func (b *CodeBlock) ComputeTokenCount() int {
	b.TokenCount = len(b.Content) / 4
	return b.TokenCount
}
