package parser

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ykosuru/vsix-sub002/pkg/types"
)

const (
	// DefaultMaxBodyLines caps how far a body-end heuristic scans past a declaration
	DefaultMaxBodyLines = 2000

	// headerLookahead is how many lines a declaration may take before its body opens
	headerLookahead = 3
	// talHeaderLookahead allows for TAL parameter declarations between PROC and BEGIN
	talHeaderLookahead = 60

	maxSignatureLen = 200
	maxSummaryLen   = 300
)

var (
	errBinaryContent = errors.New("content contains NUL bytes")
	beginEndToken    = regexp.MustCompile(`\b(?:BEGIN|END)\b`)
)

// Parser extracts symbols and call sites from source text using per-language
// line heuristics. It never builds a syntax tree; malformed input degrades to
// fewer symbols, never to an error.
type Parser struct {
	maxBodyLines int
}

// New creates a new Parser instance
func New() *Parser {
	return &Parser{maxBodyLines: DefaultMaxBodyLines}
}

// WithMaxBodyLines returns a copy of p with a different body scan cap
func (p *Parser) WithMaxBodyLines(n int) *Parser {
	if n <= 0 {
		n = DefaultMaxBodyLines
	}
	return &Parser{maxBodyLines: n}
}

// decl is a declaration matched on one line before spans and scopes are resolved
type decl struct {
	name string
	kind types.SymbolKind
	line int // 0-based
	end  int // 0-based, inclusive
	rank int // index of the matching rule within its family
}

// Extract scans a single file and returns its symbols and per-symbol call lists
func (p *Parser) Extract(file *types.FileRecord) (*types.ParseResult, error) {
	if file == nil {
		return nil, errors.New("nil file record")
	}
	if strings.IndexByte(file.Content, 0) >= 0 {
		return nil, &types.SkippableFileError{Path: file.Path, Err: errBinaryContent}
	}

	result := &types.ParseResult{
		File:  file.Path,
		Calls: make(map[string][]string),
	}

	lines := file.Lines()
	if len(lines) == 0 {
		return result, nil
	}

	fam := familyFor(file.Language)
	decls := p.scanDeclarations(fam, lines)
	p.resolveSpans(fam, lines, decls)

	scopes := enclosingScopes(decls)
	seen := make(map[string]int, len(decls))
	for i, d := range decls {
		if first, dup := seen[d.name]; dup {
			result.AddWarning(file.Path, d.line+1,
				fmt.Sprintf("duplicate symbol %q, keeping the definition at line %d", d.name, decls[first].line+1))
			continue
		}
		seen[d.name] = i

		kind := d.kind
		scope := ""
		if s := scopes[i]; s >= 0 {
			scope = decls[s].name
			if kind == types.KindFunction && decls[s].kind == types.KindClass {
				kind = types.KindMethod
			}
		}

		result.Symbols = append(result.Symbols, types.Symbol{
			Name:      d.name,
			Kind:      kind,
			File:      file.Path,
			StartLine: d.line + 1,
			EndLine:   d.end + 1,
			Scope:     scope,
			Signature: signature(lines[d.line]),
			Summary:   docSummary(fam, lines, d.line),
		})
	}

	result.Calls = collectCalls(fam, lines, decls)
	return result, nil
}

// scanDeclarations applies the family's rules line by line; the first rule that
// matches a line wins
func (p *Parser) scanDeclarations(fam *family, lines []string) []decl {
	var decls []decl
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := indentWidth(line)
		for rank, r := range fam.rules {
			if r.maxIndent >= 0 && indent > r.maxIndent {
				continue
			}
			m := r.re.FindStringSubmatch(line)
			if m == nil || r.nameGroup >= len(m) {
				continue
			}
			if rejectedCapture(fam, m[1:]) {
				continue
			}
			decls = append(decls, decl{
				name: m[r.nameGroup],
				kind: r.kind,
				line: i,
				end:  i,
				rank: rank,
			})
			break
		}
	}
	return decls
}

func rejectedCapture(fam *family, groups []string) bool {
	for _, g := range groups {
		if g == "" {
			continue
		}
		lower := strings.ToLower(g)
		if nonDeclNames[lower] || fam.skipNames[lower] {
			return true
		}
	}
	return false
}

// resolveSpans fills in the end line of every callable declaration
func (p *Parser) resolveSpans(fam *family, lines []string, decls []decl) {
	for i := range decls {
		d := &decls[i]
		if !d.kind.IsCallable() {
			continue
		}
		switch fam.body {
		case braceBody:
			d.end = p.braceEnd(fam, lines, d.line)
		case indentBody:
			d.end = p.indentEnd(fam, lines, d.line)
		case beginEndBody:
			d.end = p.beginEndEnd(fam, lines, decls, i)
		case nextDeclBody:
			d.end = p.nextDeclEnd(lines, decls, i)
		}
		if d.end < d.line {
			d.end = d.line
		}
	}
}

func (p *Parser) scanLimit(start, total int) int {
	limit := start + p.maxBodyLines
	if limit > total {
		limit = total
	}
	return limit
}

func (p *Parser) braceEnd(fam *family, lines []string, start int) int {
	depth := 0
	opened := false
	limit := p.scanLimit(start, len(lines))
	for j := start; j < limit; j++ {
		code := stripLiterals(fam, lines[j])
		for _, c := range code {
			switch c {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth <= 0 {
					return j
				}
			}
		}
		if !opened {
			if strings.HasSuffix(strings.TrimSpace(code), ";") {
				return j
			}
			if j-start >= headerLookahead {
				return start
			}
		}
	}
	if !opened {
		return start
	}
	return limit - 1
}

func (p *Parser) indentEnd(fam *family, lines []string, start int) int {
	base := indentWidth(lines[start])
	last := start
	limit := p.scanLimit(start, len(lines))
	for j := start + 1; j < limit; j++ {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			continue
		}
		ind := indentWidth(lines[j])
		if ind <= base {
			if fam.endKeyword != "" && ind == base && trimmed == fam.endKeyword {
				last = j
			}
			break
		}
		last = j
	}
	return last
}

func (p *Parser) beginEndEnd(fam *family, lines []string, decls []decl, idx int) int {
	start := decls[idx].line
	nextDecl := nextCallableLine(decls, idx)
	depth := 0
	opened := false
	limit := p.scanLimit(start, len(lines))
	for j := start; j < limit; j++ {
		if !opened && j > start && j == nextDecl {
			return start
		}
		code := strings.ToUpper(stripLiterals(fam, lines[j]))
		for _, tok := range beginEndToken.FindAllString(code, -1) {
			if tok == "BEGIN" {
				depth++
				opened = true
				continue
			}
			depth--
			if opened && depth <= 0 {
				return j
			}
		}
		if !opened {
			trimmed := strings.TrimSpace(code)
			if strings.HasSuffix(trimmed, ";") && (strings.Contains(trimmed, "FORWARD") || strings.Contains(trimmed, "EXTERNAL")) {
				return j
			}
			if j-start >= talHeaderLookahead {
				return start
			}
		}
	}
	if !opened {
		return start
	}
	return limit - 1
}

func (p *Parser) nextDeclEnd(lines []string, decls []decl, idx int) int {
	d := decls[idx]
	end := len(lines) - 1
	for j := idx + 1; j < len(decls); j++ {
		if decls[j].kind.IsCallable() && decls[j].rank <= d.rank {
			end = decls[j].line - 1
			break
		}
	}
	if limit := d.line + p.maxBodyLines - 1; end > limit {
		end = limit
	}
	for end > d.line && strings.TrimSpace(lines[end]) == "" {
		end--
	}
	return end
}

// nextCallableLine returns the line of the next callable declaration after idx, or -1
func nextCallableLine(decls []decl, idx int) int {
	for j := idx + 1; j < len(decls); j++ {
		if decls[j].kind.IsCallable() {
			return decls[j].line
		}
	}
	return -1
}

// enclosingScopes returns, for each declaration, the index of the innermost
// callable declaration whose span strictly contains it, or -1
func enclosingScopes(decls []decl) []int {
	scopes := make([]int, len(decls))
	for i, d := range decls {
		scopes[i] = -1
		best := -1
		for j, c := range decls {
			if j == i || !c.kind.IsCallable() {
				continue
			}
			if c.line < d.line && c.end >= d.line {
				if best < 0 || c.line > decls[best].line {
					best = j
				}
			}
		}
		scopes[i] = best
	}
	return scopes
}

// collectCalls attributes every call site to the innermost function, method or
// procedure whose span contains it
func collectCalls(fam *family, lines []string, decls []decl) map[string][]string {
	owners := make([]int, len(lines))
	for i := range owners {
		owners[i] = -1
	}

	order := make([]int, 0, len(decls))
	for i, d := range decls {
		if d.kind.IsCallable() && d.kind != types.KindClass {
			order = append(order, i)
		}
	}
	// outer spans first so inner spans overwrite them
	sort.SliceStable(order, func(a, b int) bool {
		return decls[order[a]].end-decls[order[a]].line > decls[order[b]].end-decls[order[b]].line
	})
	for _, i := range order {
		for l := decls[i].line; l <= decls[i].end && l < len(lines); l++ {
			owners[l] = i
		}
	}

	callSets := make(map[string]map[string]struct{})
	for l, owner := range owners {
		if owner < 0 {
			continue
		}
		d := decls[owner]
		text := lines[l]
		if l == d.line {
			// only the part after the parameter list can hold calls
			paren := strings.IndexByte(text, ')')
			if paren < 0 {
				continue
			}
			text = text[paren+1:]
		}
		code := stripLiterals(fam, text)
		for _, re := range fam.callPatterns {
			for _, m := range re.FindAllStringSubmatch(code, -1) {
				callee := m[1]
				if !isCallee(fam, callee, d.name) {
					continue
				}
				set, ok := callSets[d.name]
				if !ok {
					set = make(map[string]struct{})
					callSets[d.name] = set
				}
				set[callee] = struct{}{}
			}
		}
	}

	calls := make(map[string][]string, len(callSets))
	for caller, set := range callSets {
		list := make([]string, 0, len(set))
		for callee := range set {
			list = append(list, callee)
		}
		sort.Strings(list)
		calls[caller] = list
	}
	return calls
}

func isCallee(fam *family, callee, self string) bool {
	if callee == "" || nonCallWords[strings.ToLower(callee)] {
		return false
	}
	if callee[0] >= '0' && callee[0] <= '9' && strings.Trim(callee, "0123456789") == "" {
		return false
	}
	if fam.caseInsensitive {
		return !strings.EqualFold(callee, self)
	}
	return callee != self
}

func signature(line string) string {
	sig := strings.TrimSpace(line)
	sig = strings.TrimSuffix(sig, "{")
	sig = strings.TrimSpace(sig)
	if len(sig) > maxSignatureLen {
		sig = sig[:maxSignatureLen]
	}
	return sig
}

// docSummary collects the contiguous comment block directly above a declaration,
// or a Python docstring directly below it
func docSummary(fam *family, lines []string, at int) string {
	var parts []string
	for j := at - 1; j >= 0; j-- {
		trimmed := strings.TrimSpace(lines[j])
		if trimmed == "" {
			break
		}
		if strings.HasPrefix(trimmed, "@") || strings.HasPrefix(trimmed, "#[") {
			continue
		}
		text, ok := commentText(fam, trimmed)
		if !ok {
			break
		}
		if text != "" {
			parts = append(parts, text)
		}
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}

	if len(parts) == 0 && fam.name == "python" && at+1 < len(lines) {
		next := strings.TrimSpace(lines[at+1])
		for _, q := range []string{`"""`, `'''`} {
			if strings.HasPrefix(next, q) {
				doc := strings.TrimSpace(strings.TrimPrefix(next, q))
				doc = strings.TrimSpace(strings.TrimSuffix(doc, q))
				if doc != "" {
					parts = append(parts, doc)
				}
			}
		}
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryLen {
		summary = summary[:maxSummaryLen]
	}
	return summary
}

func commentText(fam *family, trimmed string) (string, bool) {
	if strings.HasPrefix(trimmed, "*/") {
		return "", true
	}
	for _, prefix := range fam.commentPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			text := strings.TrimPrefix(trimmed, prefix)
			text = strings.TrimLeft(text, "/*!-#; ")
			text = strings.TrimSuffix(text, "*/")
			text = strings.TrimRight(text, "!* ")
			return strings.TrimSpace(text), true
		}
	}
	return "", false
}

// stripLiterals removes quoted strings and trailing line comments so that
// punctuation inside them does not disturb brace counting or call matching
func stripLiterals(fam *family, line string) string {
	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); i++ {
		c := line[i]
		for _, prefix := range fam.lineComments {
			if strings.HasPrefix(line[i:], prefix) {
				return b.String()
			}
		}
		if !fam.keepStrings && (c == '"' || c == '\'' || c == '`') {
			if end := closingQuote(line, i); end > i {
				b.WriteByte(c)
				b.WriteByte(c)
				i = end
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

func closingQuote(line string, open int) int {
	q := line[open]
	for j := open + 1; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return -1
}

func indentWidth(line string) int {
	n := 0
	for _, c := range line {
		switch c {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}
