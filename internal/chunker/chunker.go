package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ykosuru/vsix-sub002/pkg/types"
)

const (
	// MaxTokensPerChunk is the maximum estimated token count of one block
	MaxTokensPerChunk = 1000

	// TokensPerChar is the heuristic for estimating tokens (chars/4)
	TokensPerChar = 4

	// DefaultContextLines is used when a caller passes a negative context
	DefaultContextLines = 3
)

// ErrOutOfRange is returned when a requested line lies outside the file
var ErrOutOfRange = errors.New("line out of range")

// Chunker creates code blocks from indexed files
type Chunker struct {
	maxTokens int
}

// New creates a new Chunker instance
func New() *Chunker {
	return &Chunker{maxTokens: MaxTokensPerChunk}
}

// WithMaxTokens returns a copy of c with a different block size cap.
// Values <= 0 disable the cap.
func (c *Chunker) WithMaxTokens(n int) *Chunker {
	return &Chunker{maxTokens: n}
}

// CodeBlock extracts the span of sym from file plus context lines on each side
func (c *Chunker) CodeBlock(file *types.FileRecord, sym types.Symbol, context int) (*types.CodeBlock, error) {
	if file == nil {
		return nil, errors.New("file is required")
	}
	if sym.File != "" && sym.File != file.Path {
		return nil, fmt.Errorf("symbol %s belongs to %s, not %s", sym.Name, sym.File, file.Path)
	}
	block, err := c.extract(file, sym.StartLine, sym.LastLine(), context)
	if err != nil {
		return nil, fmt.Errorf("symbol %s: %w", sym.Name, err)
	}
	block.SymbolName = sym.Name
	return block, nil
}

// LineBlock extracts a single line of file plus context lines on each side
func (c *Chunker) LineBlock(file *types.FileRecord, line, context int) (*types.CodeBlock, error) {
	if file == nil {
		return nil, errors.New("file is required")
	}
	return c.extract(file, line, line, context)
}

func (c *Chunker) extract(file *types.FileRecord, start, end, context int) (*types.CodeBlock, error) {
	lines := file.Lines()
	if start < 1 || start > len(lines) {
		return nil, fmt.Errorf("%w: line %d of %s (%d lines)", ErrOutOfRange, start, file.Path, len(lines))
	}
	if context < 0 {
		context = DefaultContextLines
	}
	if end < start {
		end = start
	}

	from := start - context
	if from < 1 {
		from = 1
	}
	to := end + context
	if to > len(lines) {
		to = len(lines)
	}

	block := &types.CodeBlock{
		File:      file.Path,
		StartLine: from,
		EndLine:   to,
		Content:   strings.Join(lines[from-1:to], "\n"),
	}
	c.capSize(block, lines)
	block.ComputeTokenCount()
	return block, nil
}

// capSize cuts an oversized block at the last line that keeps it under the cap
func (c *Chunker) capSize(block *types.CodeBlock, lines []string) {
	if c.maxTokens <= 0 || EstimateTokenCount(block.Content) <= c.maxTokens {
		return
	}
	limit := c.maxTokens * TokensPerChar
	size := 0
	last := block.StartLine
	for n := block.StartLine; n <= block.EndLine; n++ {
		size += len(lines[n-1]) + 1
		if size > limit && n > block.StartLine {
			break
		}
		last = n
	}
	block.EndLine = last
	block.Content = strings.Join(lines[block.StartLine-1:last], "\n")
	block.Truncated = true
}

// EstimateTokenCount estimates the number of tokens in a string
func EstimateTokenCount(text string) int {
	return len(text) / TokensPerChar
}
