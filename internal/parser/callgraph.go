package parser

import (
	"sort"
	"sync"

	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// CallGraph is a directed graph between symbol names. Forward and reverse
// adjacency are kept in step: callee ∈ Callees(caller) iff caller ∈ Callers(callee).
type CallGraph struct {
	mu      sync.RWMutex
	forward map[string]map[string]struct{}
	reverse map[string]map[string]struct{}
	edges   int
}

// NewCallGraph creates an empty graph
func NewCallGraph() *CallGraph {
	return &CallGraph{
		forward: make(map[string]map[string]struct{}),
		reverse: make(map[string]map[string]struct{}),
	}
}

// AddEdge records that caller calls callee. Self edges are ignored.
func (g *CallGraph) AddEdge(caller, callee string) {
	if caller == "" || callee == "" || caller == callee {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addLocked(caller, callee)
}

func (g *CallGraph) addLocked(caller, callee string) {
	out, ok := g.forward[caller]
	if !ok {
		out = make(map[string]struct{})
		g.forward[caller] = out
	}
	if _, exists := out[callee]; exists {
		return
	}
	out[callee] = struct{}{}

	in, ok := g.reverse[callee]
	if !ok {
		in = make(map[string]struct{})
		g.reverse[callee] = in
	}
	in[caller] = struct{}{}
	g.edges++
}

// Merge adds every edge of a per-file call list
func (g *CallGraph) Merge(calls map[string][]string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for caller, callees := range calls {
		for _, callee := range callees {
			if caller != "" && callee != "" && caller != callee {
				g.addLocked(caller, callee)
			}
		}
	}
}

// Callees returns the names called by name, sorted
func (g *CallGraph) Callees(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.forward[name])
}

// Callers returns the names that call name, sorted
func (g *CallGraph) Callers(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return sortedKeys(g.reverse[name])
}

// EdgeCount returns the number of distinct edges
func (g *CallGraph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges
}

// Adjacency returns the forward edges as sorted lists, the form used for export.
// The reverse direction is rebuilt by FromAdjacency.
func (g *CallGraph) Adjacency() map[string][]string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make(map[string][]string, len(g.forward))
	for caller, callees := range g.forward {
		out[caller] = sortedKeys(callees)
	}
	return out
}

// FromAdjacency builds a graph from exported forward edges
func FromAdjacency(adj map[string][]string) *CallGraph {
	g := NewCallGraph()
	g.Merge(adj)
	return g
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// BuildCallGraph merges the call lists of every parse result into one graph
func BuildCallGraph(results []*types.ParseResult) *CallGraph {
	g := NewCallGraph()
	for _, r := range results {
		if r != nil {
			g.Merge(r.Calls)
		}
	}
	return g
}
