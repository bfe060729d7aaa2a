package trigram

import "strings"

// Fuzzy match scores, highest first
const (
	ScoreIdentical  = 100
	ScorePrefix     = 90
	ScoreWordExact  = 85
	ScoreWordPrefix = 75
	ScoreSubstring  = 70
)

// FuzzyScore rates how well candidate matches query. Comparison is case
// insensitive; words are delimited by underscores and spaces.
//
//	identical        100
//	prefix            90
//	whole word        85
//	word prefix       75
//	substring         70
//	anything else      0
func FuzzyScore(query, candidate string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	c := strings.ToLower(candidate)
	if q == "" || c == "" {
		return 0
	}
	nq, nc := Normalize(q), Normalize(c)

	if q == c || (nq != "" && nq == nc) {
		return ScoreIdentical
	}
	if strings.HasPrefix(c, q) || (nq != "" && strings.HasPrefix(nc, nq)) {
		return ScorePrefix
	}

	words := splitWords(c)
	for _, w := range words {
		if w == q {
			return ScoreWordExact
		}
	}
	for _, w := range words {
		if strings.HasPrefix(w, q) {
			return ScoreWordPrefix
		}
	}

	if strings.Contains(c, q) || (nq != "" && strings.Contains(nc, nq)) {
		return ScoreSubstring
	}
	return 0
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' '
	})
}
