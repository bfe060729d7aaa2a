package query

import (
	"regexp"
	"strings"

	"github.com/ykosuru/vsix-sub002/internal/inverted"
)

// identifierToken matches identifier-shaped runs, including the ^ of TAL
// names and the - of COBOL paragraph names
var identifierToken = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_^$-]*`)

// queryStopWords are words that shape a question without naming anything in
// the code. They are filtered in addition to the index stop words.
var queryStopWords = map[string]bool{
	"show": true, "find": true, "list": true, "explain": true, "describe": true,
	"tell": true, "about": true, "please": true, "code": true, "function": true,
	"functions": true, "method": true, "methods": true, "file": true, "files": true,
	"work": true, "works": true, "working": true, "implemented": true,
	"implementation": true, "used": true, "use": true, "uses": true, "called": true,
	"look": true, "looking": true, "give": true, "want": true,
	"need": true, "here": true, "happen": true, "happens": true, "defined": true,
}

// IsStopWord reports whether a lowercase query word carries no search value
func IsStopWord(w string) bool {
	return queryStopWords[w] || inverted.IsStopWord(w)
}

// Terms extracts search terms from a raw query: identifier-shaped tokens and
// whitespace-delimited words, in order of appearance, without duplicates
// (case-insensitive). Stop words are removed unless that would remove every
// term, in which case the unfiltered terms are returned.
func Terms(q string) []string {
	var all []string
	seen := make(map[string]bool)
	add := func(t string) {
		t = strings.Trim(t, "-^$")
		if t == "" {
			return
		}
		key := strings.ToLower(t)
		if seen[key] {
			return
		}
		seen[key] = true
		all = append(all, t)
	}

	for _, tok := range identifierToken.FindAllString(q, -1) {
		add(tok)
	}
	for _, word := range strings.Fields(q) {
		add(strings.Trim(word, `.,;:!?"'()[]{}<>`+"`"))
	}

	filtered := make([]string, 0, len(all))
	for _, t := range all {
		if !IsStopWord(strings.ToLower(t)) {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return all
	}
	return filtered
}

// Singular returns the singular form of a lowercase English noun
func Singular(w string) string {
	switch {
	case len(w) > 4 && strings.HasSuffix(w, "ies"):
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case len(w) > 4 && (strings.HasSuffix(w, "xes") || strings.HasSuffix(w, "ches") || strings.HasSuffix(w, "shes")):
		return w[:len(w)-2]
	case len(w) > 3 && strings.HasSuffix(w, "s") &&
		!strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us") && !strings.HasSuffix(w, "is"):
		return w[:len(w)-1]
	}
	return w
}
