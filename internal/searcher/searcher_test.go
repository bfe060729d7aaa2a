package searcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykosuru/vsix-sub002/internal/indexer"
	"github.com/ykosuru/vsix-sub002/internal/searcher"
	"github.com/ykosuru/vsix-sub002/internal/snapshot"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

const indexSrc = `/* Opens an index relation by its OID */
Relation index_open(Oid relid)
{
    return relation_open(relid);
}

/* Closes an index relation */
void index_close(Relation relation)
{
    relation_close(relation);
}
`

const costSrc = `Cost cost_index(IndexPath *path)
{
    return path->pages * random_page_cost;
}

Cost cost_seqscan(Path *path)
{
    return path->pages * seq_page_cost;
}
`

const catalogSrc = `void build_index(Relation heap)
{
    index_open(heap->rd_id);
}
`

const httpSrc = `int parseHeader(const char *line)
{
    return 0;
}

int parseHeaderLegacy(const char *line)
{
    return parseHeader(line);
}
`

func testCorpus() types.Corpus {
	return types.Corpus{
		"src/backend/access/index/index.c":      {Content: indexSrc},
		"src/backend/optimizer/path/costsize.c": {Content: costSrc},
		"src/backend/catalog/catalog.c":         {Content: catalogSrc},
		"src/net/http.c":                        {Content: httpSrc},
		"src/backend/po/index.po":               {Content: "msgid \"index\"\nmsgstr \"indice\"\n"},
		"README.md":                             {Content: "index index index\n"},
	}
}

func buildIndex(t *testing.T) *indexer.Index {
	t.Helper()
	ix := indexer.New(&indexer.Config{Workers: 2})
	_, err := ix.Build(context.Background(), testCorpus(), indexer.DefaultBuildOptions())
	require.NoError(t, err)
	return ix
}

func search(t *testing.T, ix *indexer.Index, req searcher.SearchRequest) *searcher.SearchResponse {
	t.Helper()
	resp, err := ix.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func findSymbol(hits []types.SymbolHit, name string) (types.SymbolHit, bool) {
	for _, h := range hits {
		if h.Symbol.Name == name {
			return h, true
		}
	}
	return types.SymbolHit{}, false
}

func TestSearch_ExactMatchFirst(t *testing.T) {
	ix := buildIndex(t)
	resp := search(t, ix, searcher.SearchRequest{Query: "parseHeader"})

	require.NotEmpty(t, resp.Symbols)
	top := resp.Symbols[0]
	assert.Equal(t, "parseHeader", top.Symbol.Name)
	assert.Equal(t, 100.0, top.Score)
	assert.Equal(t, types.MatchExact, top.MatchType)

	legacy, ok := findSymbol(resp.Symbols, "parseHeaderLegacy")
	require.True(t, ok)
	assert.Less(t, legacy.Score, top.Score)
}

func TestSearch_ConceptFileOutranksFuzzy(t *testing.T) {
	ix := buildIndex(t)
	resp := search(t, ix, searcher.SearchRequest{Query: "index"})

	require.GreaterOrEqual(t, len(resp.Symbols), 2)
	for _, h := range resp.Symbols[:2] {
		assert.Equal(t, "src/backend/access/index/index.c", h.Symbol.File)
		assert.Equal(t, 95.0, h.Score)
		assert.Equal(t, types.MatchConceptFile, h.MatchType)
	}

	cost, ok := findSymbol(resp.Symbols, "cost_index")
	require.True(t, ok)
	assert.Less(t, cost.Score, 95.0)

	require.NotEmpty(t, resp.Files)
	assert.Equal(t, "src/backend/access/index/index.c", resp.Files[0].Path)
}

func TestSearch_ExcludesFilteredFiles(t *testing.T) {
	ix := buildIndex(t)
	resp := search(t, ix, searcher.SearchRequest{Query: "index", MaxResults: searcher.MaxResultsLimit})

	for _, f := range resp.Files {
		assert.NotEqual(t, "src/backend/po/index.po", f.Path)
		assert.NotEqual(t, "README.md", f.Path)
	}
	for _, h := range resp.Symbols {
		assert.NotEqual(t, "src/backend/po/index.po", h.Symbol.File)
	}
}

func TestSearch_ExpandedTerms(t *testing.T) {
	ix := buildIndex(t)
	resp := search(t, ix, searcher.SearchRequest{Query: "how is the index built"})

	assert.Contains(t, resp.Stats.ExpandedTerms, "build_index")
	assert.Equal(t, []string{"build"}, resp.Stats.Actions)

	hit, ok := findSymbol(resp.Symbols, "build_index")
	require.True(t, ok)
	assert.Equal(t, 98.0, hit.Score)
	assert.Equal(t, types.MatchExpanded, hit.MatchType)
	assert.Equal(t, "build_index", hit.Term)
}

func TestSearch_EmptyInputs(t *testing.T) {
	s := searcher.New(nil)

	resp, err := s.Search(context.Background(), snapshot.Empty(), searcher.SearchRequest{Query: "index"})
	require.NoError(t, err)
	assert.Empty(t, resp.Symbols)
	assert.Empty(t, resp.Files)
	assert.Empty(t, resp.CodeBlocks)

	resp, err = s.Search(context.Background(), nil, searcher.SearchRequest{Query: "index"})
	require.NoError(t, err)
	assert.Empty(t, resp.Symbols)

	ix := buildIndex(t)
	resp = search(t, ix, searcher.SearchRequest{Query: "   "})
	assert.Empty(t, resp.Symbols)
	assert.Empty(t, resp.Stats.Terms)
}

func TestSearch_Include(t *testing.T) {
	ix := buildIndex(t)
	resp := search(t, ix, searcher.SearchRequest{
		Query:   "index",
		Include: &searcher.Include{Symbols: true},
	})
	assert.NotEmpty(t, resp.Symbols)
	assert.Empty(t, resp.Files)
	assert.Empty(t, resp.CodeBlocks)
	assert.Greater(t, resp.Stats.TotalFiles, 0)
}

func TestSearch_Strategies(t *testing.T) {
	ix := buildIndex(t)

	resp := search(t, ix, searcher.SearchRequest{
		Query:      "index",
		Strategies: &searcher.Strategies{ExactNames: true},
	})
	assert.Empty(t, resp.Symbols)
	assert.Contains(t, resp.Stats.StageHits, "exact_names")
	assert.NotContains(t, resp.Stats.StageHits, "concept_files")

	resp = search(t, ix, searcher.SearchRequest{
		Query:      "relation",
		Strategies: &searcher.Strategies{Keywords: true},
	})
	require.NotEmpty(t, resp.Symbols)
	top := resp.Symbols[0]
	assert.Equal(t, types.MatchKeyword, top.MatchType)
	assert.InDelta(t, 80.0, top.Score, 0.0001)
	assert.Equal(t, "src/backend/access/index/index.c", top.Symbol.File)
}

func TestSearch_CodeText(t *testing.T) {
	ix := buildIndex(t)
	resp := search(t, ix, searcher.SearchRequest{
		Query:      "random_page_cost",
		Strategies: &searcher.Strategies{CodeText: true},
	})

	hit, ok := findSymbol(resp.Symbols, "cost_index")
	require.True(t, ok)
	assert.Equal(t, 70.0, hit.Score)
	assert.Equal(t, types.MatchCodeText, hit.MatchType)
	_, ok = findSymbol(resp.Symbols, "cost_seqscan")
	assert.False(t, ok)
}

// stageCorpus has one learned module (settlement), a file known only by its
// summary and a data file known only by its name
func stageCorpus() types.Corpus {
	return types.Corpus{
		"src/settlement/a.c": {Content: "int settle(void)\n{\n    return 0;\n}\n"},
		"src/settlement/b.c": {Content: "int clear_batch(void)\n{\n    return 1;\n}\n"},
		"src/ledger/post.c": {
			Content: "int post_entry(void)\n{\n    return tally;\n}\n",
			Summary: "Double entry reconciliation rules",
		},
		"config/app_settings.yaml": {Content: "port: 8080\n"},
	}
}

func buildStageIndex(t *testing.T) *indexer.Index {
	t.Helper()
	ix := indexer.New(&indexer.Config{Workers: 2})
	_, err := ix.Build(context.Background(), stageCorpus(), indexer.DefaultBuildOptions())
	require.NoError(t, err)
	return ix
}

func findFile(hits []types.FileHit, p string) (types.FileHit, bool) {
	for _, h := range hits {
		if h.Path == p {
			return h, true
		}
	}
	return types.FileHit{}, false
}

func TestSearch_FileNames(t *testing.T) {
	ix := buildStageIndex(t)

	resp := search(t, ix, searcher.SearchRequest{Query: "settings"})
	hit, ok := findFile(resp.Files, "config/app_settings.yaml")
	require.True(t, ok)
	assert.Equal(t, 85.0, hit.Score)
	assert.Equal(t, types.MatchFileName, hit.MatchType)
	assert.Equal(t, 1, resp.Stats.StageHits["file_names"])

	resp = search(t, ix, searcher.SearchRequest{
		Query: "settings",
		Strategies: &searcher.Strategies{
			ConceptFiles: true, ExactNames: true, FuzzyNames: true,
			Directories: true, CodeText: true, Keywords: true,
		},
	})
	assert.Empty(t, resp.Files)
}

func TestSearch_Directories(t *testing.T) {
	ix := buildStageIndex(t)
	resp := search(t, ix, searcher.SearchRequest{Query: "settlement"})

	for _, p := range []string{"src/settlement/a.c", "src/settlement/b.c"} {
		hit, ok := findFile(resp.Files, p)
		require.True(t, ok, p)
		assert.Equal(t, 85.0, hit.Score)
		assert.Equal(t, types.MatchDirectory, hit.MatchType)
	}
	for _, name := range []string{"settle", "clear_batch"} {
		hit, ok := findSymbol(resp.Symbols, name)
		require.True(t, ok, name)
		assert.Equal(t, 75.0, hit.Score)
		assert.Equal(t, types.MatchDirectory, hit.MatchType)
	}
	_, ok := findFile(resp.Files, "src/ledger/post.c")
	assert.False(t, ok)
}

func TestSearch_SummaryHitsCapped(t *testing.T) {
	ix := buildStageIndex(t)
	resp := search(t, ix, searcher.SearchRequest{Query: "reconciliation"})

	file, ok := findFile(resp.Files, "src/ledger/post.c")
	require.True(t, ok)
	assert.Equal(t, types.MatchSummary, file.MatchType)
	assert.InDelta(t, 75.0, file.Score, 0.0001)

	sym, ok := findSymbol(resp.Symbols, "post_entry")
	require.True(t, ok)
	assert.Equal(t, types.MatchSummary, sym.MatchType)
	assert.Less(t, sym.Score, file.Score)
}

func TestSearch_FileBodyHitsCapped(t *testing.T) {
	ix := buildStageIndex(t)
	resp := search(t, ix, searcher.SearchRequest{
		Query:      "tally",
		Strategies: &searcher.Strategies{Keywords: true},
	})

	file, ok := findFile(resp.Files, "src/ledger/post.c")
	require.True(t, ok)
	assert.Equal(t, types.MatchFileBody, file.MatchType)
	assert.InDelta(t, 60.0, file.Score, 0.0001)

	sym, ok := findSymbol(resp.Symbols, "post_entry")
	require.True(t, ok)
	assert.Equal(t, types.MatchFileBody, sym.MatchType)
	assert.Less(t, sym.Score, file.Score)
}

func TestSearch_MaxResults(t *testing.T) {
	ix := buildIndex(t)
	resp := search(t, ix, searcher.SearchRequest{Query: "index", MaxResults: 1})

	assert.Len(t, resp.Symbols, 1)
	assert.LessOrEqual(t, len(resp.Files), 1)
	assert.Greater(t, resp.Stats.TotalSymbols, 1)
}

func TestSearch_CodeBlocks(t *testing.T) {
	ix := buildIndex(t)

	resp := search(t, ix, searcher.SearchRequest{Query: "parseHeader", CodeBlockCount: 1})
	require.Len(t, resp.CodeBlocks, 1)
	block := resp.CodeBlocks[0]
	assert.Equal(t, "parseHeader", block.SymbolName)
	assert.Equal(t, "src/net/http.c", block.File)
	assert.Equal(t, 1, block.StartLine)
	assert.Contains(t, block.Content, "return 0;")

	resp = search(t, ix, searcher.SearchRequest{Query: "parseHeader", CodeBlockCount: -1})
	assert.Empty(t, resp.CodeBlocks)
}

func TestSearch_CodeBlockContext(t *testing.T) {
	ix := buildIndex(t)

	resp := search(t, ix, searcher.SearchRequest{Query: "parseHeaderLegacy", CodeBlockCount: 1, ContextLines: 0})
	require.Len(t, resp.CodeBlocks, 1)
	assert.Equal(t, 6, resp.CodeBlocks[0].StartLine)

	resp = search(t, ix, searcher.SearchRequest{Query: "parseHeaderLegacy", CodeBlockCount: 1, ContextLines: -1})
	require.Len(t, resp.CodeBlocks, 1)
	assert.Equal(t, 3, resp.CodeBlocks[0].StartLine)
}

func TestSearch_Cache(t *testing.T) {
	ix := buildIndex(t)
	req := searcher.SearchRequest{Query: "parseHeader", UseCache: true}

	first := search(t, ix, req)
	assert.False(t, first.Stats.CacheHit)
	assert.Equal(t, 1, ix.Searcher().CacheLen())

	second := search(t, ix, req)
	assert.True(t, second.Stats.CacheHit)
	assert.Equal(t, first.Symbols, second.Symbols)

	// mutating a cached copy does not leak into the cache
	second.Symbols[0].Score = -1
	third := search(t, ix, req)
	assert.Equal(t, 100.0, third.Symbols[0].Score)

	_, err := ix.Build(context.Background(), testCorpus(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Searcher().CacheLen())
	assert.False(t, search(t, ix, req).Stats.CacheHit)
}

func TestSearch_Deterministic(t *testing.T) {
	ix := buildIndex(t)
	req := searcher.SearchRequest{Query: "index relation cost"}

	first := search(t, ix, req)
	for i := 0; i < 5; i++ {
		again := search(t, ix, req)
		assert.Equal(t, first.Symbols, again.Symbols)
		assert.Equal(t, first.Files, again.Files)
	}
}

func TestSearch_Cancelled(t *testing.T) {
	ix := buildIndex(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ix.Search(ctx, searcher.SearchRequest{Query: "index"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_CustomWeights(t *testing.T) {
	ix := indexer.New(&indexer.Config{
		Search: &searcher.Config{Weights: &searcher.Weights{Exact: 500}},
	})
	_, err := ix.Build(context.Background(), testCorpus(), nil)
	require.NoError(t, err)

	assert.Equal(t, 500.0, ix.Searcher().Weights().Exact)
	assert.Equal(t, 95.0, ix.Searcher().Weights().ConceptFile)

	resp := search(t, ix, searcher.SearchRequest{Query: "parseHeader"})
	require.NotEmpty(t, resp.Symbols)
	assert.Equal(t, 500.0, resp.Symbols[0].Score)
}
