package domain

import (
	"path"
	"sort"
	"strings"

	"github.com/ykosuru/vsix-sub002/internal/inverted"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// Options tunes the learner thresholds. Zero values take the defaults.
type Options struct {
	MinModuleFiles   int // files a directory needs to become a module (default 2)
	MinModuleNameLen int // shortest module directory name (default 3)
	MinPrefixLen     int // default 2
	MaxPrefixLen     int // default 6
	MinPrefixFiles   int // distinct file names sharing a prefix (default 3)
	MinTermCount     int // summary term occurrences per directory (default 2)
}

// DefaultOptions returns the default thresholds
func DefaultOptions() Options {
	return Options{
		MinModuleFiles:   2,
		MinModuleNameLen: 3,
		MinPrefixLen:     2,
		MaxPrefixLen:     6,
		MinPrefixFiles:   3,
		MinTermCount:     2,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinModuleFiles <= 0 {
		o.MinModuleFiles = d.MinModuleFiles
	}
	if o.MinModuleNameLen <= 0 {
		o.MinModuleNameLen = d.MinModuleNameLen
	}
	if o.MinPrefixLen <= 0 {
		o.MinPrefixLen = d.MinPrefixLen
	}
	if o.MaxPrefixLen <= 0 {
		o.MaxPrefixLen = d.MaxPrefixLen
	}
	if o.MinPrefixFiles <= 0 {
		o.MinPrefixFiles = d.MinPrefixFiles
	}
	if o.MinTermCount <= 0 {
		o.MinTermCount = d.MinTermCount
	}
	return o
}

// structuralPrefixes are stripped from directory names to recover the concept
// they abbreviate: "libindex" -> "index"
var structuralPrefixes = []string{"lib", "src", "mod", "pkg", "sub", "int", "ext", "app"}

// Learn derives domain knowledge from the indexed files and symbols. It is a
// pure function of its inputs; calling it again after a rebuild yields a
// complete replacement.
func Learn(files []*types.FileRecord, symbols []types.Symbol, opts Options) *Knowledge {
	opts = opts.withDefaults()
	k := Empty()

	// 1. modules: directories with enough files and a long enough name
	byDir := make(map[string][]string)
	for _, f := range files {
		dir := dirOf(f.Path)
		byDir[dir] = append(byDir[dir], f.Path)
	}
	for dir, paths := range byDir {
		name := path.Base(dir)
		if dir == "" || len(paths) < opts.MinModuleFiles || len(name) < opts.MinModuleNameLen {
			continue
		}
		sort.Strings(paths)
		k.Modules[dir] = &Module{
			Path:   dir,
			Name:   name,
			Parent: dirOf(dir),
			Files:  paths,
		}
	}

	// 2. shared file-name prefixes and their owning modules
	prefixFiles := make(map[string]map[string]struct{})
	for _, f := range files {
		stem := strings.ToLower(fileStem(f.Path))
		runes := []rune(stem)
		for n := opts.MinPrefixLen; n <= opts.MaxPrefixLen && n <= len(runes); n++ {
			p := string(runes[:n])
			set, ok := prefixFiles[p]
			if !ok {
				set = make(map[string]struct{})
				prefixFiles[p] = set
			}
			set[stem] = struct{}{}
		}
	}
	for p, names := range prefixFiles {
		if len(names) < opts.MinPrefixFiles {
			continue
		}
		k.Prefixes[p] = sortedSet(names)
		if owner := bestOwner(p, k.Modules); owner != "" {
			k.PrefixOwner[p] = owner
		}
	}

	// 4. significant summary terms per directory
	termCounts := make(map[string]map[string]int)
	count := func(dir, text string) {
		if text == "" {
			return
		}
		if _, ok := k.Modules[dir]; !ok {
			return
		}
		counts, ok := termCounts[dir]
		if !ok {
			counts = make(map[string]int)
			termCounts[dir] = counts
		}
		for _, w := range inverted.Words(text, 3) {
			counts[w]++
		}
	}
	for _, f := range files {
		count(dirOf(f.Path), f.Summary)
	}
	for _, s := range symbols {
		count(dirOf(s.File), s.Summary)
	}

	// 3 + 5. one cluster per module, then the reverse mapping
	ownedPrefixes := make(map[string][]string)
	for p, owner := range k.PrefixOwner {
		ownedPrefixes[owner] = append(ownedPrefixes[owner], p)
	}
	reverse := make(map[string]map[string]struct{})
	for dir, m := range k.Modules {
		cluster := make(map[string]struct{})
		add := func(term string) {
			term = strings.ToLower(term)
			if len(term) >= 2 {
				cluster[term] = struct{}{}
			}
		}
		add(m.Name)
		if m.Parent != "" {
			add(path.Base(m.Parent))
		}
		for _, concept := range ConceptNames(m.Name) {
			add(concept)
		}
		for _, p := range ownedPrefixes[dir] {
			add(p)
		}
		for term, n := range termCounts[dir] {
			if n >= opts.MinTermCount {
				add(term)
			}
		}
		k.Clusters[dir] = sortedSet(cluster)
		for term := range cluster {
			dirs, ok := reverse[term]
			if !ok {
				dirs = make(map[string]struct{})
				reverse[term] = dirs
			}
			dirs[dir] = struct{}{}
		}
	}
	for term, dirs := range reverse {
		k.TermIndex[term] = sortedSet(dirs)
	}

	return k
}

// ConceptNames returns the concept words hidden in a directory name: the name
// with a structural prefix removed, and its case or separator delimited parts
func ConceptNames(name string) []string {
	set := make(map[string]struct{})
	lower := strings.ToLower(name)
	for _, p := range structuralPrefixes {
		if !strings.HasPrefix(lower, p) {
			continue
		}
		rest := lower[len(p):]
		separated := strings.IndexAny(rest, "_-.") == 0
		// "int" and "ext" begin too many ordinary words to strip unseparated
		if (p == "int" || p == "ext") && !separated {
			continue
		}
		if rest = strings.TrimLeft(rest, "_-."); len(rest) >= 3 {
			set[rest] = struct{}{}
		}
	}
	parts := inverted.SplitIdentifier(name)
	if len(parts) > 1 {
		for _, part := range parts {
			if len(part) >= 3 && !isStructural(part) {
				set[part] = struct{}{}
			}
		}
	}
	delete(set, lower)
	delete(set, "")
	return sortedSet(set)
}

func isStructural(w string) bool {
	for _, p := range structuralPrefixes {
		if w == p {
			return true
		}
	}
	return false
}

// bestOwner picks the module whose name shares the longest common substring
// with prefix (at least two characters). Ties go to the module with more
// files, then to the lexically smaller path. Without any overlap the module
// holding the most files that start with prefix wins.
func bestOwner(prefix string, modules map[string]*Module) string {
	best, bestOverlap, bestFiles := "", 0, 0
	for dir, m := range modules {
		overlap := longestCommonSubstring(prefix, strings.ToLower(m.Name))
		if overlap < 2 {
			continue
		}
		if overlap > bestOverlap ||
			(overlap == bestOverlap && len(m.Files) > bestFiles) ||
			(overlap == bestOverlap && len(m.Files) == bestFiles && dir < best) {
			best, bestOverlap, bestFiles = dir, overlap, len(m.Files)
		}
	}
	if best != "" {
		return best
	}

	bestCount := 0
	for dir, m := range modules {
		n := 0
		for _, f := range m.Files {
			if strings.HasPrefix(strings.ToLower(fileStem(f)), prefix) {
				n++
			}
		}
		if n > bestCount || (n == bestCount && n > 0 && dir < best) {
			best, bestCount = dir, n
		}
	}
	return best
}

func longestCommonSubstring(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
				if cur[j] > best {
					best = cur[j]
				}
			} else {
				cur[j] = 0
			}
		}
		prev, cur = cur, prev
	}
	return best
}

func dirOf(p string) string {
	d := path.Dir(p)
	if d == "." || d == "/" {
		return ""
	}
	return d
}

func fileStem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
