package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykosuru/vsix-sub002/pkg/types"
)

func records(paths ...string) []*types.FileRecord {
	out := make([]*types.FileRecord, len(paths))
	for i, p := range paths {
		out[i] = &types.FileRecord{Path: p, Language: "c", IsSourceCode: true}
	}
	return out
}

func sampleCorpus() ([]*types.FileRecord, []types.Symbol) {
	files := records(
		"src/backend/optimizer/path/costsize.c",
		"src/backend/optimizer/path/indxpath.c",
		"src/backend/optimizer/path/allpaths.c",
		"src/backend/access/index/indexam.c",
		"src/backend/access/index/genam.c",
		"src/libpq/fe-connect.c",
		"src/libpq/fe-exec.c",
		"src/libpq/fe-misc.c",
		"README",
	)
	symbols := []types.Symbol{
		{Name: "index_open", Kind: types.KindFunction, File: "src/backend/access/index/indexam.c", StartLine: 10, Summary: "Opens an index relation"},
		{Name: "index_close", Kind: types.KindFunction, File: "src/backend/access/index/indexam.c", StartLine: 40, Summary: "Closes an index relation scan"},
		{Name: "cost_seqscan", Kind: types.KindFunction, File: "src/backend/optimizer/path/costsize.c", StartLine: 5, Summary: "Estimates a sequential scan"},
	}
	return files, symbols
}

func TestLearn_Modules(t *testing.T) {
	files, symbols := sampleCorpus()
	k := Learn(files, symbols, Options{})

	require.Len(t, k.Modules, 3)
	path := k.Modules["src/backend/optimizer/path"]
	require.NotNil(t, path)
	assert.Equal(t, "path", path.Name)
	assert.Equal(t, "src/backend/optimizer", path.Parent)
	assert.Len(t, path.Files, 3)

	assert.NotContains(t, k.Modules, "", "root files never form a module")
}

func TestLearn_Prefixes(t *testing.T) {
	files, symbols := sampleCorpus()
	k := Learn(files, symbols, Options{})

	assert.Equal(t, []string{"fe-connect", "fe-exec", "fe-misc"}, k.Prefixes["fe"])
	assert.Contains(t, k.Prefixes, "fe-")
	assert.NotContains(t, k.Prefixes, "in", "only two files share it")
	assert.Equal(t, "src/libpq", k.PrefixOwner["fe"])
}

func TestLearn_Clusters(t *testing.T) {
	files, symbols := sampleCorpus()
	k := Learn(files, symbols, Options{})

	assert.Equal(t, []string{"fe", "fe-", "libpq", "src"}, k.Clusters["src/libpq"])
	assert.Equal(t, []string{"optimizer", "path"}, k.Clusters["src/backend/optimizer/path"])
	assert.Equal(t, []string{"access", "index", "relation"}, k.Clusters["src/backend/access/index"],
		"relation appears in two summaries, scan only once")
	assert.Equal(t, []string{"src/backend/access/index"}, k.TermIndex["relation"])

	for dir := range k.Clusters {
		assert.Contains(t, k.Modules, dir, "every cluster belongs to a module seen in this build")
	}
}

func TestKnowledge_ModulesForAndExpand(t *testing.T) {
	files, symbols := sampleCorpus()
	k := Learn(files, symbols, Options{})

	assert.Equal(t, []string{"src/backend/access/index"}, k.ModulesFor("index"))
	assert.Equal(t, []string{"src/backend/optimizer/path"}, k.ModulesFor("paths"))
	assert.Equal(t, []string{"src/libpq"}, k.ModulesFor("FE"))
	assert.Empty(t, k.ModulesFor("network"))
	assert.Empty(t, k.ModulesFor(""))

	assert.Equal(t, []string{"access", "index"}, k.Expand("relation"))

	var nilKnowledge *Knowledge
	assert.Empty(t, nilKnowledge.ModulesFor("index"))
	assert.Empty(t, nilKnowledge.Expand("index"))
	assert.Zero(t, nilKnowledge.ModuleCount())
}

func TestLearn_IsPureAndReplacesState(t *testing.T) {
	files, symbols := sampleCorpus()
	first := Learn(files, symbols, Options{})
	second := Learn(files, symbols, Options{})
	assert.Equal(t, first, second)

	// drop the libpq files: a fresh learn has no trace of them
	reduced := Learn(files[:5], symbols, Options{})
	assert.NotContains(t, reduced.Modules, "src/libpq")
	assert.NotContains(t, reduced.PrefixOwner, "fe")
	assert.NotContains(t, reduced.TermIndex, "libpq")
}

func TestLearn_Empty(t *testing.T) {
	k := Learn(nil, nil, Options{})
	assert.Empty(t, k.Modules)
	assert.Empty(t, k.Clusters)
	assert.Empty(t, k.TermIndex)
}

func TestConceptNames(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"libindex", []string{"index"}},
		{"src_parser", []string{"parser"}},
		{"NetHandler", []string{"handler", "net"}},
		{"utils", []string{}},
		{"libpq", []string{}},
		{"internal", []string{}},
		{"int_codec", []string{"codec"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ConceptNames(tt.name))
		})
	}
}

func TestLongestCommonSubstring(t *testing.T) {
	assert.Equal(t, 4, longestCommonSubstring("indx", "indxpath"))
	assert.Equal(t, 2, longestCommonSubstring("fe", "xfey"))
	assert.Equal(t, 0, longestCommonSubstring("ab", ""))
}
