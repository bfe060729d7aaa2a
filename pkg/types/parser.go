package types

// ParseResult is the output of extracting symbols from one file
type ParseResult struct {
	File    string
	Symbols []Symbol
	// Calls maps a callable symbol name to the identifiers its body calls
	Calls map[string][]string

	// Warnings are recoverable oddities noticed while scanning
	Warnings []ParseError
}

// ParseError represents a problem encountered while scanning a file
type ParseError struct {
	File    string
	Line    int
	Message string
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	return pe.Message
}

// HasWarnings returns true if any warnings were recorded
func (pr *ParseResult) HasWarnings() bool {
	return len(pr.Warnings) > 0
}

// AddWarning records a recoverable problem
func (pr *ParseResult) AddWarning(file string, line int, msg string) {
	pr.Warnings = append(pr.Warnings, ParseError{
		File:    file,
		Line:    line,
		Message: msg,
	})
}
