package searcher

import (
	"path"
	"sort"
	"strings"

	"github.com/ykosuru/vsix-sub002/internal/inverted"
	"github.com/ykosuru/vsix-sub002/internal/query"
	"github.com/ykosuru/vsix-sub002/internal/snapshot"
	"github.com/ykosuru/vsix-sub002/internal/trigram"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// run accumulates the results of one search. Every stage adds only items
// that no earlier stage produced, so the first stage to find an item fixes
// its score.
type run struct {
	s       *Searcher
	snap    *snapshot.Snapshot
	w       Weights
	symbols map[string]*types.SymbolHit
	files   map[string]*types.FileHit
	lines   map[string][]string
	found   int
	stats   SearchStats
}

func newRun(s *Searcher, snap *snapshot.Snapshot) *run {
	return &run{
		s:       s,
		snap:    snap,
		w:       s.weights,
		symbols: make(map[string]*types.SymbolHit),
		files:   make(map[string]*types.FileHit),
		lines:   make(map[string][]string),
		stats: SearchStats{
			BuildID:   snap.BuildID(),
			StageHits: make(map[string]int),
		},
	}
}

func (r *run) addSymbol(sym types.Symbol, score float64, mt types.MatchType, term string) bool {
	key := sym.Key()
	if _, seen := r.symbols[key]; seen {
		return false
	}
	r.symbols[key] = &types.SymbolHit{Symbol: sym, Score: score, MatchType: mt, Term: term}
	r.found++
	return true
}

func (r *run) addFile(p string, score float64, mt types.MatchType) bool {
	if _, seen := r.files[p]; seen {
		return false
	}
	f, ok := r.snap.File(p)
	if !ok {
		return false
	}
	r.files[p] = &types.FileHit{Path: p, Language: f.Language, Score: score, MatchType: mt}
	r.found++
	return true
}

// pullFile records a file hit and, when the file is new to the result set,
// brings along its top symbols at a reduced score
func (r *run) pullFile(p string, score float64, mt types.MatchType, term string) {
	if !r.addFile(p, score, mt) {
		return
	}
	for _, sym := range r.snap.TopSymbols(p, r.s.cfg.SymbolsPerFile) {
		r.addSymbol(sym, score*r.w.PullFactor, mt, term)
	}
}

func (r *run) fileLines(p string) []string {
	if lines, ok := r.lines[p]; ok {
		return lines
	}
	var lines []string
	if f, ok := r.snap.File(p); ok {
		lines = f.Lines()
	}
	r.lines[p] = lines
	return lines
}

// conceptFiles matches file base names against the terms. A file whose
// singular stem equals a term, or extends it by a few characters, contributes
// every one of its symbols.
func (r *run) conceptFiles(terms []string) {
	slack := r.s.cfg.ConceptSlack
	for _, fp := range r.snap.Paths() {
		stem := query.Singular(strings.ToLower(fileStem(fp)))
		for _, t := range terms {
			term := query.Singular(strings.ToLower(t))
			if !conceptMatch(stem, term, slack) {
				continue
			}
			r.addFile(fp, r.w.ConceptFile, types.MatchConceptFile)
			for _, sym := range r.snap.SymbolsInFile(fp) {
				r.addSymbol(sym, r.w.ConceptFile, types.MatchConceptFile, t)
			}
			break
		}
	}
}

func conceptMatch(stem, term string, slack int) bool {
	if stem == "" || term == "" {
		return false
	}
	if stem == term {
		return true
	}
	return len(term) >= 3 && strings.HasPrefix(stem, term) && len(stem)-len(term) <= slack
}

func fileStem(p string) string {
	base := path.Base(p)
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// exactNames looks every term and expanded term up in the exact-name index
func (r *run) exactNames(terms, expanded []string) {
	for _, t := range terms {
		for _, sym := range r.snap.SymbolsByName(t) {
			r.addSymbol(sym, r.w.Exact, types.MatchExact, t)
		}
	}
	for _, t := range expanded {
		for _, sym := range r.snap.SymbolsByName(t) {
			r.addSymbol(sym, r.w.ExpandedExact, types.MatchExpanded, t)
		}
	}
}

// fuzzyNames scores symbol names sharing every trigram of a term
func (r *run) fuzzyNames(terms []string) {
	for _, t := range terms {
		if len(trigram.Normalize(t)) < 3 {
			continue
		}
		for _, m := range r.snap.SymbolNames().FindByPattern(t, r.w.FuzzyFloor) {
			sym, ok := r.snap.Symbol(m.Loc)
			if !ok {
				continue
			}
			score := float64(m.Score)
			if score > r.w.FuzzyCap {
				score = r.w.FuzzyCap
			}
			r.addSymbol(sym, score, types.MatchFuzzy, t)
		}
	}
}

// fileNames scores file stems sharing every trigram of a term. This is the
// only stage that reaches data and doc files by a part of their name.
func (r *run) fileNames(terms []string) {
	for _, t := range terms {
		if len(trigram.Normalize(t)) < 3 {
			continue
		}
		for _, m := range r.snap.FileNames().FindByPattern(t, r.w.FuzzyFloor) {
			score := float64(m.Score)
			if score > r.w.FuzzyCap {
				score = r.w.FuzzyCap
			}
			r.addFile(m.Loc, score, types.MatchFileName)
		}
	}
}

// directories matches terms against module directory names in either
// direction and adds the directory's files with a sample of their symbols
func (r *run) directories(terms []string) {
	dirs := r.moduleDirs()
	if len(dirs) == 0 {
		return
	}
	for _, t := range terms {
		term := strings.ToLower(t)
		if len(term) < 3 {
			continue
		}
		for _, dir := range dirs {
			name := strings.ToLower(path.Base(dir))
			if len(name) < 3 || !(strings.Contains(name, term) || strings.Contains(term, name)) {
				continue
			}
			for _, fp := range r.snap.FilesInDir(dir) {
				r.addFile(fp, r.w.Directory, types.MatchDirectory)
				for _, sym := range r.snap.TopSymbols(fp, r.s.cfg.SymbolsPerFile) {
					r.addSymbol(sym, r.w.DirectorySymbol, types.MatchDirectory, t)
				}
			}
		}
	}
}

// moduleDirs prefers learned modules and falls back to every directory
// holding files when nothing was learned
func (r *run) moduleDirs() []string {
	k := r.snap.Knowledge()
	var dirs []string
	for d := range k.Modules {
		dirs = append(dirs, d)
	}
	if len(dirs) == 0 {
		for _, d := range r.snap.Dirs() {
			if d != "" && len(r.snap.FilesInDir(d)) > 0 {
				dirs = append(dirs, d)
			}
		}
	}
	sort.Strings(dirs)
	return dirs
}

// codeText finds code lines containing a term and returns the symbol nearest
// each line
func (r *run) codeText(terms []string) {
	window := r.s.cfg.NearbyWindow
	for _, t := range terms {
		needle := trigram.Normalize(t)
		if len(needle) < 3 {
			continue
		}
		refs := r.snap.CodeLines().Lookup(t)
		sort.Slice(refs, func(i, j int) bool {
			if refs[i].File != refs[j].File {
				return refs[i].File < refs[j].File
			}
			return refs[i].Line < refs[j].Line
		})

		matched := 0
		for _, ref := range refs {
			if matched >= r.s.cfg.MaxLinesPerTerm {
				break
			}
			lines := r.fileLines(ref.File)
			if ref.Line < 1 || ref.Line > len(lines) {
				continue
			}
			// trigram intersection admits lines holding the grams out of order
			if !strings.Contains(trigram.Normalize(lines[ref.Line-1]), needle) {
				continue
			}
			matched++
			r.addFile(ref.File, r.w.CodeText, types.MatchCodeText)
			if sym, ok := r.snap.NearestSymbol(ref.File, ref.Line, window); ok {
				r.addSymbol(sym, r.w.CodeText, types.MatchCodeText, t)
			}
		}
	}
}

// keywords queries the inverted index per document class. Scores are scaled
// below the structural stages: symbol text, then summaries, then file bodies.
func (r *run) keywords(terms []string) {
	kw := r.snap.Keywords()
	text := strings.Join(terms, " ")
	limit := r.s.cfg.KeywordLimit

	symHits := kw.Query(text, types.DocSymbol, limit)
	inverted.Scale(symHits, r.w.SymbolText)
	for _, h := range symHits {
		sym, ok := r.snap.Symbol(h.Ref.Key)
		if !ok {
			continue
		}
		r.addSymbol(sym, h.Score, types.MatchKeyword, firstTerm(h))
		r.pullFile(sym.File, h.Score, types.MatchKeyword, firstTerm(h))
	}

	sumHits := kw.Query(text, types.DocSummary, limit)
	inverted.Scale(sumHits, r.w.Summary)
	for _, h := range sumHits {
		if sym, ok := r.snap.Symbol(h.Ref.Key); ok {
			r.addSymbol(sym, h.Score, types.MatchSummary, firstTerm(h))
			r.pullFile(sym.File, h.Score, types.MatchSummary, firstTerm(h))
			continue
		}
		// file-level summaries are keyed by path
		r.pullFile(h.Ref.Key, h.Score, types.MatchSummary, firstTerm(h))
	}

	fileHits := kw.Query(text, types.DocFile, limit)
	inverted.Scale(fileHits, r.w.FileBody)
	for _, h := range fileHits {
		r.pullFile(h.Ref.Key, h.Score, types.MatchFileBody, firstTerm(h))
	}
}

func firstTerm(h inverted.Hit) string {
	if len(h.Terms) == 0 {
		return ""
	}
	return h.Terms[0]
}

// finish ranks, truncates and materializes the response
func (r *run) finish(req SearchRequest) *SearchResponse {
	symbols := make([]types.SymbolHit, 0, len(r.symbols))
	for _, h := range r.symbols {
		symbols = append(symbols, *h)
	}
	sortSymbolHits(symbols)
	files := make([]types.FileHit, 0, len(r.files))
	for _, h := range r.files {
		files = append(files, *h)
	}
	sortFileHits(files)

	r.stats.TotalSymbols = len(symbols)
	r.stats.TotalFiles = len(files)
	if len(symbols) > req.MaxResults {
		symbols = symbols[:req.MaxResults]
	}
	if len(files) > req.MaxResults {
		files = files[:req.MaxResults]
	}

	resp := &SearchResponse{
		Symbols:    []types.SymbolHit{},
		Files:      []types.FileHit{},
		CodeBlocks: []types.CodeBlock{},
		Stats:      r.stats,
	}
	if req.Include.Symbols {
		resp.Symbols = symbols
	}
	if req.Include.Files {
		resp.Files = files
	}
	if req.Include.CodeBlocks && req.CodeBlockCount > 0 {
		for _, h := range symbols {
			if len(resp.CodeBlocks) >= req.CodeBlockCount {
				break
			}
			f, ok := r.snap.File(h.Symbol.File)
			if !ok {
				continue
			}
			block, err := r.s.chunker.CodeBlock(f, h.Symbol, req.ContextLines)
			if err != nil {
				r.s.logger.Debug("code block skipped", "symbol", h.Symbol.Key(), "error", err)
				continue
			}
			resp.CodeBlocks = append(resp.CodeBlocks, *block)
		}
	}
	return resp
}
