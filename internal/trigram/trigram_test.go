package trigram

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"parseHeader", "parseheader"},
		{"parse_header", "parseheader"},
		{"send^buffer", "sendbuffer"},
		{"  COMPUTE-PAY. ", "computepay"},
		{"", ""},
		{"!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestTrigrams(t *testing.T) {
	assert.Equal(t, []string{"abc", "bcd"}, Trigrams("abcd"))
	assert.Equal(t, []string{"aaa"}, Trigrams("aaaaa"))
	assert.Equal(t, []string{"ab1"}, Trigrams("a_b_1"))
	assert.Nil(t, Trigrams("ab"))
	assert.Nil(t, Trigrams(""))
}

func TestTrigrams_SubstringProperty(t *testing.T) {
	inputs := []string{"parseHeaderLegacy", "open^socket", "compute_pay_total", "xyzzy123"}
	for _, s := range inputs {
		full := make(map[string]bool)
		for _, g := range Trigrams(s) {
			full[g] = true
		}
		norm := Normalize(s)
		for i := 0; i < len(norm); i++ {
			for j := i + 3; j <= len(norm); j++ {
				for _, g := range Trigrams(norm[i:j]) {
					assert.True(t, full[g], "trigram %q of %q missing from %q", g, norm[i:j], s)
				}
			}
		}
	}
}

func TestIndexableLine(t *testing.T) {
	assert.False(t, IndexableLine("  }"))
	assert.True(t, IndexableLine("x++"))
	assert.True(t, IndexableLine("return compute(x)"))
	long := make([]byte, MaxLineLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, IndexableLine(string(long)))
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func TestIndex_Lookup(t *testing.T) {
	ix := New[string]()
	ix.Add("parseHeader", "a.c#parseHeader")
	ix.Add("parseHeaderLegacy", "a.c#parseHeaderLegacy")
	ix.Add("writeFooter", "b.c#writeFooter")

	assert.Equal(t, []string{"a.c#parseHeader", "a.c#parseHeaderLegacy"}, sortedStrings(ix.Lookup("header")))
	assert.Equal(t, []string{"b.c#writeFooter"}, ix.Lookup("FOOTER"))
	assert.Nil(t, ix.Lookup("missing"))
	assert.Nil(t, ix.Lookup("he"), "too short to trigram")
}

func TestIndex_LookupShortCircuit(t *testing.T) {
	ix := New[string]()
	ix.Add("abcdef", "x")
	// "abcxyz" shares abc but not xyz
	assert.Nil(t, ix.Lookup("abcxyz"))
}

func TestIndex_FindByPattern(t *testing.T) {
	ix := New[string]()
	ix.Add("parseHeader", "parseHeader")
	ix.Add("parseHeaderLegacy", "parseHeaderLegacy")
	ix.Add("read_header", "read_header")
	ix.Add("subheaders", "subheaders")
	ix.Add("unrelated", "unrelated")

	matches := ix.FindByPattern("parseHeader", 30)
	require.Len(t, matches, 2)
	assert.Equal(t, "parseHeader", matches[0].Loc)
	assert.Equal(t, ScoreIdentical, matches[0].Score)
	assert.Equal(t, "parseHeaderLegacy", matches[1].Loc)
	assert.Equal(t, ScorePrefix, matches[1].Score)

	byLoc := make(map[string]int)
	for _, m := range ix.FindByPattern("header", 30) {
		byLoc[m.Loc] = m.Score
	}
	assert.Equal(t, ScoreWordExact, byLoc["read_header"])
	assert.Equal(t, ScoreSubstring, byLoc["parseHeader"])
	assert.Equal(t, ScoreSubstring, byLoc["subheaders"])
	assert.NotContains(t, byLoc, "unrelated")

	assert.Empty(t, ix.FindByPattern("header", 95))
}

func TestIndex_FindByPatternShortQuery(t *testing.T) {
	ix := New[string]()
	ix.Add("io", "io")
	ix.Add("io_read", "io_read")
	ix.Add("radio", "radio")

	byLoc := make(map[string]int)
	for _, m := range ix.FindByPattern("io", 30) {
		byLoc[m.Loc] = m.Score
	}
	assert.Equal(t, map[string]int{"io": 100, "io_read": 90, "radio": 70}, byLoc)
}

func TestIndex_PostingsOnly(t *testing.T) {
	ix := NewPostingsOnly[LineRef]()
	ix.Add("total := compute(rate)", LineRef{File: "pay.go", Line: 3})
	ix.Add("return total", LineRef{File: "pay.go", Line: 4})

	assert.ElementsMatch(t, []LineRef{{"pay.go", 3}, {"pay.go", 4}}, ix.Lookup("total"))
	assert.Empty(t, ix.FindByPattern("total", 0), "no texts to score against")
}

func TestIndex_MergeIsOrderIndependent(t *testing.T) {
	words := []string{"alpha", "alphabet", "beta", "gamma", "betamax"}

	build := func(order []int) *Index[string] {
		parts := make([]*Index[string], len(order))
		var wg sync.WaitGroup
		for i, w := range order {
			wg.Add(1)
			go func(i int, word string) {
				defer wg.Done()
				part := New[string]()
				part.Add(word, word)
				parts[i] = part
			}(i, words[w])
		}
		wg.Wait()
		merged := New[string]()
		for _, p := range parts {
			merged.Merge(p)
		}
		return merged
	}

	a := build([]int{0, 1, 2, 3, 4})
	b := build([]int{4, 3, 2, 1, 0})
	require.Equal(t, a.TermCount(), b.TermCount())
	for _, g := range Trigrams("alphabetamaxgamma") {
		assert.ElementsMatch(t, a.Postings(g), b.Postings(g), "trigram %s", g)
	}
}

func TestFuzzyScore(t *testing.T) {
	tests := []struct {
		query, candidate string
		want             int
	}{
		{"parseHeader", "parseHeader", 100},
		{"PARSEHEADER", "parseHeader", 100},
		{"parse_header", "parseHeader", 100},
		{"parse", "parseHeader", 90},
		{"header", "read_header", 85},
		{"head", "read_header_v2", 75},
		{"header", "parseheader", 70},
		{"xyz", "parseHeader", 0},
		{"", "anything", 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%s", tt.query, tt.candidate), func(t *testing.T) {
			assert.Equal(t, tt.want, FuzzyScore(tt.query, tt.candidate))
		})
	}
}

func BenchmarkIndex_Lookup(b *testing.B) {
	ix := New[int]()
	for i := 0; i < 10000; i++ {
		ix.Add(fmt.Sprintf("symbol_%d_handler", i), i)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ix.Lookup("handler")
	}
}
