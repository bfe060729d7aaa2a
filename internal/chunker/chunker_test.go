package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykosuru/vsix-sub002/pkg/types"
)

const greetSource = `package greet

import "fmt"

// Greet prints a greeting message
func Greet(name string) {
	fmt.Println("Hello, " + name)
}

func Bye() {}
`

func greetFile() *types.FileRecord {
	return &types.FileRecord{
		Path:         "greet/greet.go",
		Language:     "go",
		Content:      greetSource,
		LineCount:    types.CountLines(greetSource),
		IsSourceCode: true,
	}
}

func TestNew(t *testing.T) {
	c := New()
	assert.NotNil(t, c)
	assert.Equal(t, MaxTokensPerChunk, c.maxTokens)
}

func TestCodeBlock_SymbolSpan(t *testing.T) {
	sym := types.Symbol{Name: "Greet", Kind: types.KindFunction, File: "greet/greet.go", StartLine: 6, EndLine: 8}

	block, err := New().CodeBlock(greetFile(), sym, 0)
	require.NoError(t, err)

	assert.Equal(t, "greet/greet.go", block.File)
	assert.Equal(t, "Greet", block.SymbolName)
	assert.Equal(t, 6, block.StartLine)
	assert.Equal(t, 8, block.EndLine)
	assert.True(t, strings.HasPrefix(block.Content, "func Greet(name string) {"))
	assert.Contains(t, block.Content, "fmt.Println")
	assert.False(t, block.Truncated)
	assert.Equal(t, len(block.Content)/TokensPerChar, block.TokenCount)
}

func TestCodeBlock_ContextIsClamped(t *testing.T) {
	tests := []struct {
		name      string
		sym       types.Symbol
		context   int
		wantStart int
		wantEnd   int
	}{
		{"widened both sides", types.Symbol{Name: "Greet", StartLine: 6, EndLine: 8}, 1, 5, 9},
		{"clamped at top", types.Symbol{Name: "greet", StartLine: 1, EndLine: 1}, 5, 1, 6},
		{"clamped at bottom", types.Symbol{Name: "Bye", StartLine: 10}, 4, 6, 10},
		{"negative uses default", types.Symbol{Name: "Bye", StartLine: 10}, -1, 7, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			block, err := New().CodeBlock(greetFile(), tt.sym, tt.context)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, block.StartLine)
			assert.Equal(t, tt.wantEnd, block.EndLine)
		})
	}
}

func TestCodeBlock_Errors(t *testing.T) {
	c := New()

	_, err := c.CodeBlock(nil, types.Symbol{Name: "x", StartLine: 1}, 0)
	assert.Error(t, err)

	_, err = c.CodeBlock(greetFile(), types.Symbol{Name: "Gone", StartLine: 99}, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = c.CodeBlock(greetFile(), types.Symbol{Name: "Greet", File: "other.go", StartLine: 6}, 0)
	assert.Error(t, err)
}

func TestLineBlock(t *testing.T) {
	block, err := New().LineBlock(greetFile(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, block.StartLine)
	assert.Equal(t, 8, block.EndLine)
	assert.Empty(t, block.SymbolName)

	_, err = New().LineBlock(greetFile(), 0, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestCodeBlock_TruncatesOversizedBlocks(t *testing.T) {
	var b strings.Builder
	b.WriteString("func Big() {\n")
	for i := 0; i < 50; i++ {
		b.WriteString("\tx := compute(1, 2, 3, 4, 5, 6, 7, 8)\n")
	}
	b.WriteString("}\n")
	file := &types.FileRecord{Path: "big.go", Content: b.String(), LineCount: 52}
	sym := types.Symbol{Name: "Big", File: "big.go", StartLine: 1, EndLine: 52}

	block, err := New().WithMaxTokens(50).CodeBlock(file, sym, 0)
	require.NoError(t, err)

	assert.True(t, block.Truncated)
	assert.Equal(t, 1, block.StartLine)
	assert.Less(t, block.EndLine, 52)
	assert.LessOrEqual(t, block.TokenCount, 50)
	assert.True(t, strings.HasPrefix(block.Content, "func Big() {"))
}

func TestWithMaxTokens_ReturnsCopy(t *testing.T) {
	base := New()
	capped := base.WithMaxTokens(50)

	assert.NotSame(t, base, capped)
	assert.Equal(t, MaxTokensPerChunk, base.maxTokens)
	assert.Equal(t, 50, capped.maxTokens)
}

func TestEstimateTokenCount(t *testing.T) {
	assert.Equal(t, 0, EstimateTokenCount(""))
	assert.Equal(t, 2, EstimateTokenCount("12345678"))
}
