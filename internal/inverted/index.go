package inverted

import (
	"math"
	"sort"
	"sync"

	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// Index maps stemmed terms to the documents containing them, with per-document
// term frequency and a metadata record for result materialization.
type Index struct {
	mu       sync.RWMutex
	postings map[string]map[types.DocumentRef]int
	meta     map[types.DocumentRef]types.DocMeta
	perKind  map[types.DocKind]int
}

// Hit is one scored document
type Hit struct {
	Ref   types.DocumentRef
	Meta  types.DocMeta
	Score float64
	// Terms are the query terms that matched, stemmed
	Terms []string
}

// New creates an empty index
func New() *Index {
	return &Index{
		postings: make(map[string]map[types.DocumentRef]int),
		meta:     make(map[types.DocumentRef]types.DocMeta),
		perKind:  make(map[types.DocKind]int),
	}
}

// Add tokenizes text and posts every term under ref. Adding the same ref twice
// accumulates term frequency.
func (ix *Index) Add(ref types.DocumentRef, meta types.DocMeta, text string) {
	terms := Tokenize(text)
	if len(terms) == 0 {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.setMetaLocked(ref, meta)
	for _, term := range terms {
		ix.postLocked(term, ref, 1)
	}
}

func (ix *Index) setMetaLocked(ref types.DocumentRef, meta types.DocMeta) {
	if _, ok := ix.meta[ref]; !ok {
		ix.perKind[ref.Kind]++
	}
	ix.meta[ref] = meta
}

func (ix *Index) postLocked(term string, ref types.DocumentRef, count int) {
	docs, ok := ix.postings[term]
	if !ok {
		docs = make(map[types.DocumentRef]int)
		ix.postings[term] = docs
	}
	docs[ref] += count
}

// Merge unions other into ix
func (ix *Index) Merge(other *Index) {
	if other == nil || other == ix {
		return
	}
	other.mu.RLock()
	defer other.mu.RUnlock()
	ix.mu.Lock()
	defer ix.mu.Unlock()
	for ref, meta := range other.meta {
		ix.setMetaLocked(ref, meta)
	}
	for term, docs := range other.postings {
		for ref, n := range docs {
			ix.postLocked(term, ref, n)
		}
	}
}

// TermCount returns the number of distinct terms
func (ix *Index) TermCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.postings)
}

// DocCount returns the number of documents of one kind
func (ix *Index) DocCount(kind types.DocKind) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.perKind[kind]
}

// Meta returns the metadata stored for ref
func (ix *Index) Meta(ref types.DocumentRef) (types.DocMeta, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	m, ok := ix.meta[ref]
	return m, ok
}

// Query scores documents of one kind against free text. The score for a
// document sums, over matched terms, (1 + ln tf) * idf, multiplied by the
// document's external weight when it has one. The best limit hits are returned,
// highest first, ties broken by reference.
func (ix *Index) Query(text string, kind types.DocKind, limit int) []Hit {
	terms := uniqueTerms(Tokenize(text))
	if len(terms) == 0 || limit == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	total := float64(ix.perKind[kind])
	if total == 0 {
		return nil
	}

	scores := make(map[types.DocumentRef]*Hit)
	for _, term := range terms {
		docs := ix.postings[term]
		df := 0
		for ref := range docs {
			if ref.Kind == kind {
				df++
			}
		}
		if df == 0 {
			continue
		}
		idf := math.Log(1 + total/float64(df))
		for ref, tf := range docs {
			if ref.Kind != kind {
				continue
			}
			h, ok := scores[ref]
			if !ok {
				h = &Hit{Ref: ref, Meta: ix.meta[ref]}
				scores[ref] = h
			}
			h.Score += (1 + math.Log(float64(tf))) * idf
			h.Terms = append(h.Terms, term)
		}
	}

	hits := make([]Hit, 0, len(scores))
	for _, h := range scores {
		if h.Meta.Weight > 0 {
			h.Score *= h.Meta.Weight
		}
		hits = append(hits, *h)
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ref.String() < hits[j].Ref.String()
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// Scale rescales hit scores so the best hit scores exactly max and the rest
// keep their proportion to it
func Scale(hits []Hit, max float64) {
	if len(hits) == 0 {
		return
	}
	best := hits[0].Score
	for _, h := range hits {
		if h.Score > best {
			best = h.Score
		}
	}
	if best <= 0 {
		return
	}
	for i := range hits {
		hits[i].Score = hits[i].Score / best * max
	}
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Snapshot is the serializable form of an Index
type Snapshot struct {
	Postings map[string]map[types.DocumentRef]int `json:"postings"`
	Meta     map[types.DocumentRef]types.DocMeta  `json:"meta"`
}

// Snapshot copies the index into its serializable form
func (ix *Index) Snapshot() Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s := Snapshot{
		Postings: make(map[string]map[types.DocumentRef]int, len(ix.postings)),
		Meta:     make(map[types.DocumentRef]types.DocMeta, len(ix.meta)),
	}
	for term, docs := range ix.postings {
		cp := make(map[types.DocumentRef]int, len(docs))
		for ref, n := range docs {
			cp[ref] = n
		}
		s.Postings[term] = cp
	}
	for ref, m := range ix.meta {
		s.Meta[ref] = m
	}
	return s
}

// FromSnapshot rebuilds an index from its serialized form
func FromSnapshot(s Snapshot) *Index {
	ix := New()
	for ref, m := range s.Meta {
		ix.setMetaLocked(ref, m)
	}
	for term, docs := range s.Postings {
		for ref, n := range docs {
			ix.postLocked(term, ref, n)
		}
	}
	return ix
}
