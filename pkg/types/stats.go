package types

import "time"

// BuildStats summarizes one build (or import) of the index
type BuildStats struct {
	BuildID       string        `json:"build_id"`
	FilesIndexed  int           `json:"files_indexed"`
	FilesSkipped  int           `json:"files_skipped"`
	FilesFailed   int           `json:"files_failed"`
	SourceFiles   int           `json:"source_files"`
	Symbols       int           `json:"symbols"`
	Functions     int           `json:"functions"`
	Variables     int           `json:"variables"`
	CallEdges     int           `json:"call_edges"`
	TrigramTerms  int           `json:"trigram_terms"`
	InvertedTerms int           `json:"inverted_terms"`
	Summaries     int           `json:"summaries"`
	Modules       int           `json:"modules"`
	Duration      time.Duration `json:"duration"`
	CompletedAt   time.Time     `json:"completed_at"`
	ErrorMessages []string      `json:"error_messages,omitempty"`
}
