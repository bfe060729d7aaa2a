package snapshot

import (
	"path"
	"sort"
	"strings"

	"github.com/ykosuru/vsix-sub002/internal/domain"
	"github.com/ykosuru/vsix-sub002/internal/inverted"
	"github.com/ykosuru/vsix-sub002/internal/parser"
	"github.com/ykosuru/vsix-sub002/internal/trigram"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// Features records which optional structures a build produced
type Features struct {
	Trigrams  bool `json:"trigrams"`
	Inverted  bool `json:"inverted"`
	CallGraph bool `json:"call_graph"`
	Summaries bool `json:"summaries"`
}

// AllFeatures enables every optional structure
func AllFeatures() Features {
	return Features{Trigrams: true, Inverted: true, CallGraph: true, Summaries: true}
}

// Parts are the finished outputs of the build phases
type Parts struct {
	Files       []*types.FileRecord
	Symbols     []types.Symbol
	Graph       *parser.CallGraph
	SymbolNames *trigram.Index[string]
	FileNames   *trigram.Index[string]
	CodeLines   *trigram.Index[trigram.LineRef]
	Keywords    *inverted.Index
	Knowledge   *domain.Knowledge
	Features    Features
	Stats       types.BuildStats
}

// Snapshot is an immutable generation of the index
type Snapshot struct {
	features    Features
	stats       types.BuildStats
	graph       *parser.CallGraph
	symbolNames *trigram.Index[string]
	fileNames   *trigram.Index[string]
	codeLines   *trigram.Index[trigram.LineRef]
	keywords    *inverted.Index
	knowledge   *domain.Knowledge

	files   map[string]*types.FileRecord
	paths   []string
	symbols []types.Symbol
	byKey   map[string]int
	byName  map[string][]int
	byFile  map[string][]int
	dirs    map[string][]string
	parents map[string]string
}

// New assembles a snapshot and derives its lookup tables. Missing parts are
// replaced with empty structures. Symbols whose file is not among Files are
// dropped.
func New(p Parts) *Snapshot {
	s := &Snapshot{
		features:    p.Features,
		stats:       p.Stats,
		graph:       p.Graph,
		symbolNames: p.SymbolNames,
		fileNames:   p.FileNames,
		codeLines:   p.CodeLines,
		keywords:    p.Keywords,
		knowledge:   p.Knowledge,
		files:       make(map[string]*types.FileRecord, len(p.Files)),
		byKey:       make(map[string]int),
		byName:      make(map[string][]int),
		byFile:      make(map[string][]int),
		dirs:        make(map[string][]string),
		parents:     make(map[string]string),
	}
	if s.graph == nil {
		s.graph = parser.NewCallGraph()
	}
	if s.symbolNames == nil {
		s.symbolNames = trigram.New[string]()
	}
	if s.fileNames == nil {
		s.fileNames = trigram.New[string]()
	}
	if s.codeLines == nil {
		s.codeLines = trigram.NewPostingsOnly[trigram.LineRef]()
	}
	if s.keywords == nil {
		s.keywords = inverted.New()
	}
	if s.knowledge == nil {
		s.knowledge = domain.Empty()
	}

	for _, f := range p.Files {
		if f == nil || f.Path == "" {
			continue
		}
		if _, dup := s.files[f.Path]; !dup {
			s.paths = append(s.paths, f.Path)
		}
		s.files[f.Path] = f
	}
	sort.Strings(s.paths)
	for _, fp := range s.paths {
		s.addDir(fp)
	}

	s.symbols = make([]types.Symbol, 0, len(p.Symbols))
	for _, sym := range p.Symbols {
		if _, ok := s.files[sym.File]; ok {
			s.symbols = append(s.symbols, sym)
		}
	}
	sort.SliceStable(s.symbols, func(i, j int) bool {
		a, b := &s.symbols[i], &s.symbols[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.Name < b.Name
	})
	// a file defines a name at most once; later duplicates are dropped
	unique := s.symbols[:0]
	seen := make(map[string]bool, len(s.symbols))
	for _, sym := range s.symbols {
		key := sym.Key()
		if !seen[key] {
			seen[key] = true
			unique = append(unique, sym)
		}
	}
	s.symbols = unique
	for i := range s.symbols {
		sym := &s.symbols[i]
		key := sym.Key()
		s.byKey[key] = i
		lower := strings.ToLower(sym.Name)
		s.byName[lower] = append(s.byName[lower], i)
		s.byFile[sym.File] = append(s.byFile[sym.File], i)
	}
	return s
}

// Empty returns a snapshot of an empty corpus
func Empty() *Snapshot {
	return New(Parts{})
}

func (s *Snapshot) addDir(p string) {
	dir := Dir(p)
	s.dirs[dir] = append(s.dirs[dir], p)
	for dir != "" {
		parent := Dir(dir)
		if _, seen := s.parents[dir]; seen {
			return
		}
		s.parents[dir] = parent
		if _, ok := s.dirs[parent]; !ok {
			s.dirs[parent] = nil
		}
		dir = parent
	}
}

// Dir returns the slash-separated directory of p, "" for the workspace root
func Dir(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

// WithKnowledge returns a copy of s carrying k. The copy shares every other
// structure with s.
func (s *Snapshot) WithKnowledge(k *domain.Knowledge) *Snapshot {
	cp := *s
	if k == nil {
		k = domain.Empty()
	}
	cp.knowledge = k
	cp.stats.Modules = k.ModuleCount()
	return &cp
}

// BuildID identifies the build that produced the snapshot
func (s *Snapshot) BuildID() string { return s.stats.BuildID }

// Stats returns the statistics recorded by the build
func (s *Snapshot) Stats() types.BuildStats {
	st := s.stats
	st.ErrorMessages = append([]string(nil), s.stats.ErrorMessages...)
	return st
}

// Features reports which optional structures were built
func (s *Snapshot) Features() Features { return s.features }

// Knowledge returns the learned domain knowledge, never nil
func (s *Snapshot) Knowledge() *domain.Knowledge { return s.knowledge }

// Graph returns the call graph, never nil
func (s *Snapshot) Graph() *parser.CallGraph { return s.graph }

// SymbolNames is the trigram space over symbol names, keyed by symbol key
func (s *Snapshot) SymbolNames() *trigram.Index[string] { return s.symbolNames }

// FileNames is the trigram space over file base names, keyed by path
func (s *Snapshot) FileNames() *trigram.Index[string] { return s.fileNames }

// CodeLines is the trigram space over source-code lines
func (s *Snapshot) CodeLines() *trigram.Index[trigram.LineRef] { return s.codeLines }

// Keywords is the inverted keyword index
func (s *Snapshot) Keywords() *inverted.Index { return s.keywords }

// FileCount returns the number of indexed files
func (s *Snapshot) FileCount() int { return len(s.paths) }

// Paths returns every indexed path in sorted order
func (s *Snapshot) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Files returns every file record ordered by path
func (s *Snapshot) Files() []*types.FileRecord {
	out := make([]*types.FileRecord, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, s.files[p])
	}
	return out
}

// File returns the record for path
func (s *Snapshot) File(p string) (*types.FileRecord, bool) {
	f, ok := s.files[p]
	return f, ok
}

// Symbols returns every symbol ordered by file and start line
func (s *Snapshot) Symbols() []types.Symbol {
	return append([]types.Symbol(nil), s.symbols...)
}

// SymbolCount returns the number of symbols
func (s *Snapshot) SymbolCount() int { return len(s.byKey) }

// Symbol looks a symbol up by its key
func (s *Snapshot) Symbol(key string) (types.Symbol, bool) {
	i, ok := s.byKey[key]
	if !ok {
		return types.Symbol{}, false
	}
	return s.symbols[i], true
}

// SymbolsByName returns every symbol whose name equals name ignoring case,
// ordered by file
func (s *Snapshot) SymbolsByName(name string) []types.Symbol {
	idx := s.byName[strings.ToLower(name)]
	out := make([]types.Symbol, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.symbols[i])
	}
	return out
}

// SymbolsInFile returns the symbols defined in path ordered by start line
func (s *Snapshot) SymbolsInFile(p string) []types.Symbol {
	idx := s.byFile[p]
	out := make([]types.Symbol, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.symbols[i])
	}
	return out
}

// TopSymbols returns up to n symbols of path, callables before variables and
// each group in source order
func (s *Snapshot) TopSymbols(p string, n int) []types.Symbol {
	if n <= 0 {
		return nil
	}
	syms := s.SymbolsInFile(p)
	sort.SliceStable(syms, func(i, j int) bool {
		return syms[i].Kind.IsCallable() && !syms[j].Kind.IsCallable()
	})
	if len(syms) > n {
		syms = syms[:n]
	}
	return syms
}

// NearestSymbol returns the symbol that best represents line of path: the
// innermost callable whose span contains it, otherwise the symbol starting
// closest to it within window lines
func (s *Snapshot) NearestSymbol(p string, line, window int) (types.Symbol, bool) {
	idx := s.byFile[p]
	best := -1
	for _, i := range idx {
		sym := &s.symbols[i]
		if !sym.Kind.IsCallable() || !sym.Contains(line) {
			continue
		}
		if best < 0 || sym.StartLine >= s.symbols[best].StartLine {
			best = i
		}
	}
	if best >= 0 {
		return s.symbols[best], true
	}
	bestDist := window + 1
	for _, i := range idx {
		d := s.symbols[i].StartLine - line
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return types.Symbol{}, false
	}
	return s.symbols[best], true
}

// Dirs returns every directory that holds files, directly or below it
func (s *Snapshot) Dirs() []string {
	out := make([]string, 0, len(s.dirs))
	for d := range s.dirs {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// FilesInDir returns the files directly inside dir
func (s *Snapshot) FilesInDir(dir string) []string {
	return append([]string(nil), s.dirs[dir]...)
}

// Parent returns the parent directory of dir
func (s *Snapshot) Parent(dir string) (string, bool) {
	p, ok := s.parents[dir]
	return p, ok
}
