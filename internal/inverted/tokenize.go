package inverted

import (
	"strings"
	"unicode"
)

// stopWords are dropped from indexed text and from query terms. English
// function words plus the keywords that appear in almost every source file.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "of": true, "to": true,
	"in": true, "is": true, "it": true, "for": true, "on": true, "with": true, "as": true,
	"by": true, "at": true, "be": true, "this": true, "that": true, "from": true, "are": true,
	"was": true, "were": true, "if": true, "else": true, "then": true, "not": true, "no": true,
	"but": true, "its": true, "into": true, "than": true, "there": true, "these": true,
	"those": true, "we": true, "you": true, "they": true, "he": true, "she": true, "i": true,
	"me": true, "my": true, "our": true, "your": true, "so": true, "do": true, "does": true,
	"did": true, "has": true, "have": true, "had": true, "can": true, "will": true,
	"would": true, "should": true, "could": true, "may": true, "might": true, "must": true,
	"what": true, "which": true, "who": true, "whom": true, "where": true, "when": true,
	"why": true, "how": true, "all": true, "any": true, "some": true, "each": true,
	"return": true, "var": true, "let": true, "const": true, "func": true, "def": true,
	"end": true, "begin": true, "public": true, "private": true, "protected": true,
	"static": true, "void": true, "int": true, "new": true, "null": true, "nil": true,
	"true": true, "false": true, "self": true, "import": true, "package": true,
	"include": true, "define": true, "while": true, "elif": true, "endif": true,
}

// IsStopWord reports whether w (lowercase) is filtered from terms
func IsStopWord(w string) bool {
	return stopWords[w]
}

// SplitIdentifier breaks text into lowercase words on non-alphanumeric runes,
// camelCase boundaries and letter/digit boundaries. "parseHTTPHeader_v2"
// becomes [parse http header v 2].
func SplitIdentifier(text string) []string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if len(cur) > 0 {
			prev := cur[len(cur)-1]
			switch {
			case unicode.IsLower(prev) && unicode.IsUpper(r):
				flush()
			case unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				// end of an acronym: HTTPHeader -> HTTP Header
				flush()
			case unicode.IsDigit(prev) != unicode.IsDigit(r):
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// Words returns the lowercase, stopword-filtered words of text with at least
// minLen characters, without stemming
func Words(text string, minLen int) []string {
	var out []string
	for _, w := range SplitIdentifier(text) {
		if len(w) < minLen || stopWords[w] || isNumber(w) {
			continue
		}
		out = append(out, w)
	}
	return out
}

// Tokenize turns text into stemmed index terms. Repeated words produce repeated
// terms so callers can count term frequency.
func Tokenize(text string) []string {
	words := Words(text, 2)
	for i, w := range words {
		words[i] = Stem(w)
	}
	return words
}

// Stem strips common English suffixes. It is a small heuristic, not a full
// Porter stemmer; it only has to map inflections of one word to one key.
func Stem(w string) string {
	if len(w) <= 3 {
		return w
	}
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		w = w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"):
		w = w[:len(w)-2]
	case strings.HasSuffix(w, "ing") && len(w) > 5:
		w = undouble(w[:len(w)-3])
	case strings.HasSuffix(w, "ed") && len(w) > 4:
		w = undouble(w[:len(w)-2])
	case strings.HasSuffix(w, "ers") && len(w) > 5:
		w = w[:len(w)-3]
	case strings.HasSuffix(w, "er") && len(w) > 4:
		w = w[:len(w)-2]
	case strings.HasSuffix(w, "xes"), strings.HasSuffix(w, "ches"), strings.HasSuffix(w, "shes"):
		w = w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") &&
		!strings.HasSuffix(w, "us") && !strings.HasSuffix(w, "is"):
		w = w[:len(w)-1]
	}
	if len(w) > 4 && strings.HasSuffix(w, "e") {
		w = w[:len(w)-1]
	}
	return w
}

func undouble(w string) string {
	n := len(w)
	if n >= 3 && w[n-1] == w[n-2] && !strings.ContainsRune("lsz", rune(w[n-1])) {
		return w[:n-1]
	}
	return w
}

func isNumber(w string) bool {
	for _, r := range w {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return w != ""
}
