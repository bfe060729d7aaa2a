package trigram

import (
	"sort"
	"strings"
	"sync"
	"unicode"
)

const (
	// MinLineLength and MaxLineLength bound which code lines are indexed; shorter
	// lines carry no signal and longer ones are usually minified or generated
	MinLineLength = 3
	MaxLineLength = 500
)

// LineRef locates one line of code; Line is 1-based
type LineRef struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Normalize lowercases s and drops every non-alphanumeric rune
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// Trigrams returns the distinct overlapping length-3 substrings of Normalize(s)
// in first-occurrence order. Strings shorter than three runes have none.
func Trigrams(s string) []string {
	norm := []rune(Normalize(s))
	if len(norm) < 3 {
		return nil
	}
	seen := make(map[string]struct{}, len(norm)-2)
	out := make([]string, 0, len(norm)-2)
	for i := 0; i+3 <= len(norm); i++ {
		t := string(norm[i : i+3])
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// IndexableLine reports whether a code line is within the indexed length bounds
func IndexableLine(line string) bool {
	n := len(strings.TrimSpace(line))
	return n >= MinLineLength && n <= MaxLineLength
}

// Index is one trigram posting space: trigram -> set of locations.
// It is safe for concurrent use; Add and Merge take the write lock.
type Index[L comparable] struct {
	mu       sync.RWMutex
	postings map[string]map[L]struct{}
	// texts holds the lowercased source string per location for scoring and
	// the short-query substring scan. Nil for postings-only indexes.
	texts map[L]string
}

// New creates an index that remembers the text of every location
func New[L comparable]() *Index[L] {
	return &Index[L]{
		postings: make(map[string]map[L]struct{}),
		texts:    make(map[L]string),
	}
}

// NewPostingsOnly creates an index that stores postings but no texts, for
// large spaces such as code lines whose text lives elsewhere
func NewPostingsOnly[L comparable]() *Index[L] {
	return &Index[L]{postings: make(map[string]map[L]struct{})}
}

// Add indexes text at loc
func (ix *Index[L]) Add(text string, loc L) {
	grams := Trigrams(text)
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.texts != nil {
		ix.texts[loc] = strings.ToLower(text)
	}
	for _, g := range grams {
		ix.addLocked(g, loc)
	}
}

func (ix *Index[L]) addLocked(gram string, loc L) {
	set, ok := ix.postings[gram]
	if !ok {
		set = make(map[L]struct{})
		ix.postings[gram] = set
	}
	set[loc] = struct{}{}
}

// Merge unions other into ix. The result does not depend on merge order.
func (ix *Index[L]) Merge(other *Index[L]) {
	if other == nil || other == ix {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for g, set := range other.postings {
		for loc := range set {
			ix.addLocked(g, loc)
		}
	}
	if ix.texts != nil {
		for loc, text := range other.texts {
			ix.texts[loc] = text
		}
	}
}

// TermCount returns the number of distinct trigrams
func (ix *Index[L]) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}

// Postings returns a copy of the locations posted under one trigram
func (ix *Index[L]) Postings(gram string) []L {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	set := ix.postings[gram]
	out := make([]L, 0, len(set))
	for loc := range set {
		out = append(out, loc)
	}
	return out
}

// Lookup returns every location whose text contains all trigrams of query.
// Posting sets are intersected smallest first and an empty intersection at
// any step ends the lookup. Queries shorter than three characters return nil.
func (ix *Index[L]) Lookup(query string) []L {
	grams := Trigrams(query)
	if len(grams) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	sets := make([]map[L]struct{}, 0, len(grams))
	for _, g := range grams {
		set, ok := ix.postings[g]
		if !ok || len(set) == 0 {
			return nil
		}
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return len(sets[i]) < len(sets[j]) })

	candidates := make([]L, 0, len(sets[0]))
	for loc := range sets[0] {
		candidates = append(candidates, loc)
	}
	for _, set := range sets[1:] {
		kept := candidates[:0]
		for _, loc := range candidates {
			if _, ok := set[loc]; ok {
				kept = append(kept, loc)
			}
		}
		candidates = kept
		if len(candidates) == 0 {
			return nil
		}
	}
	return candidates
}

// Match is a scored fuzzy hit
type Match[L comparable] struct {
	Loc   L
	Text  string
	Score int
}

// FindByPattern scores every location that could contain pattern and returns
// those scoring at least floor, best first. Patterns too short to form a
// trigram fall back to a plain substring scan over the stored texts.
// Ties keep a stable order by text.
func (ix *Index[L]) FindByPattern(pattern string, floor int) []Match[L] {
	if Normalize(pattern) == "" {
		return nil
	}

	var candidates []L
	if len([]rune(Normalize(pattern))) < 3 {
		candidates = ix.substringScan(pattern)
	} else {
		candidates = ix.Lookup(pattern)
	}

	ix.mu.RLock()
	matches := make([]Match[L], 0, len(candidates))
	for _, loc := range candidates {
		text, ok := ix.texts[loc]
		if !ok {
			continue
		}
		score := FuzzyScore(pattern, text)
		if score > 0 && score >= floor {
			matches = append(matches, Match[L]{Loc: loc, Text: text, Score: score})
		}
	}
	ix.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Text < matches[j].Text
	})
	return matches
}

func (ix *Index[L]) substringScan(pattern string) []L {
	needle := Normalize(pattern)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []L
	for loc, text := range ix.texts {
		if strings.Contains(Normalize(text), needle) {
			out = append(out, loc)
		}
	}
	return out
}
