package types

import (
	"errors"
	"strings"
)

// CorpusFile is one input file handed to a build
type CorpusFile struct {
	Content  string
	Language string // empty means detect from the path

	// Summary is an optional human summary of the whole file.
	Summary string
	// SymbolSummaries maps symbol names in this file to externally supplied summaries.
	SymbolSummaries map[string]string
}

// Corpus maps file paths (slash separated, relative to the workspace) to their content
type Corpus map[string]CorpusFile

// FileRecord is an indexed file. Records are owned by the index snapshot that built them.
type FileRecord struct {
	Path         string `json:"path"`
	Language     string `json:"language"`
	Content      string `json:"content"`
	LineCount    int    `json:"line_count"`
	IsSourceCode bool   `json:"is_source_code"`
	Summary      string `json:"summary,omitempty"`
}

// Lines splits the content into lines without trailing newlines
func (f *FileRecord) Lines() []string {
	if f.Content == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(f.Content, "\n"), "\n")
}

// Validate checks the record is usable
func (f *FileRecord) Validate() error {
	if f.Path == "" {
		return errors.New("file path is required")
	}
	if f.LineCount < 0 {
		return errors.New("line count cannot be negative")
	}
	return nil
}

// CountLines returns the number of lines in content
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}
