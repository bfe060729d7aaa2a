package domain

import (
	"sort"
	"strings"
)

// Module is a directory that holds enough files to stand for a concept
type Module struct {
	Path   string   `json:"path"`
	Name   string   `json:"name"`
	Parent string   `json:"parent,omitempty"`
	Files  []string `json:"files"`
}

// Knowledge is the corpus-derived vocabulary used to expand vague queries.
// It is rebuilt from scratch by Learn; nothing patches it in place.
type Knowledge struct {
	// Modules maps directory path to module
	Modules map[string]*Module `json:"modules"`
	// Prefixes maps a shared file-name prefix to the file names carrying it
	Prefixes map[string][]string `json:"prefixes"`
	// PrefixOwner maps a prefix to the module directory it belongs to
	PrefixOwner map[string]string `json:"prefix_owner"`
	// Clusters maps a module directory to its related terms
	Clusters map[string][]string `json:"clusters"`
	// TermIndex is the reverse of Clusters: term -> module directories
	TermIndex map[string][]string `json:"term_index"`
}

// Empty returns knowledge with no entries
func Empty() *Knowledge {
	return &Knowledge{
		Modules:     make(map[string]*Module),
		Prefixes:    make(map[string][]string),
		PrefixOwner: make(map[string]string),
		Clusters:    make(map[string][]string),
		TermIndex:   make(map[string][]string),
	}
}

// ModulesFor returns the module directories related to term: those whose
// cluster contains it, plus those whose name overlaps it as a substring in
// either direction
func (k *Knowledge) ModulesFor(term string) []string {
	if k == nil {
		return nil
	}
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return nil
	}
	set := make(map[string]struct{})
	for _, dir := range k.TermIndex[t] {
		set[dir] = struct{}{}
	}
	if owner, ok := k.PrefixOwner[t]; ok {
		set[owner] = struct{}{}
	}
	if len(t) >= 3 {
		for dir, m := range k.Modules {
			name := strings.ToLower(m.Name)
			if strings.Contains(name, t) || strings.Contains(t, name) {
				set[dir] = struct{}{}
			}
		}
	}
	return sortedSet(set)
}

// Expand returns the terms related to term through the clusters of every
// module it maps to, excluding term itself
func (k *Knowledge) Expand(term string) []string {
	if k == nil {
		return nil
	}
	t := strings.ToLower(strings.TrimSpace(term))
	set := make(map[string]struct{})
	for _, dir := range k.ModulesFor(t) {
		for _, related := range k.Clusters[dir] {
			if related != t {
				set[related] = struct{}{}
			}
		}
	}
	return sortedSet(set)
}

// ModuleCount returns the number of learned modules
func (k *Knowledge) ModuleCount() int {
	if k == nil {
		return 0
	}
	return len(k.Modules)
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
