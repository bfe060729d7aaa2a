package indexer

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykosuru/vsix-sub002/internal/searcher"
	"github.com/ykosuru/vsix-sub002/internal/storage"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

const validateSrc = `package payments

// ValidatePayment checks a payment before capture
func ValidatePayment(p Payment) error {
	return checkAmount(p.Amount)
}

func checkAmount(amount int) error {
	if amount <= 0 {
		return errInvalid
	}
	return nil
}
`

const refundSrc = `package payments

// IssueRefund reverses a captured payment
func IssueRefund(id string) error {
	p := load(id)
	return ValidatePayment(p)
}
`

const connSrc = `#define MAX_CONN 16

static int active = 0;

/* Opens a connection */
int open_conn(const char *host)
{
    if (active >= MAX_CONN) {
        return -1;
    }
    active++;
    return dial(host, 80);
}
`

func testCorpus() types.Corpus {
	return types.Corpus{
		"payments/validate.go": {Content: validateSrc},
		"payments/refund.go":   {Content: refundSrc},
		"net/conn.c":           {Content: connSrc},
		"config/settings.yaml": {Content: "retries: 3\n"},
		"locale/messages.po":   {Content: "msgid \"ValidatePayment\"\n"},
		"README.md":            {Content: "# ValidatePayment docs\n"},
	}
}

func buildTestIndex(t *testing.T) (*Index, *types.BuildStats) {
	t.Helper()
	ix := New(&Config{Workers: 2})
	stats, err := ix.Build(context.Background(), testCorpus(), DefaultBuildOptions())
	require.NoError(t, err)
	return ix, stats
}

func TestNew_Defaults(t *testing.T) {
	ix := New(nil)
	require.NotNil(t, ix)
	assert.Greater(t, ix.workers, 0)
	assert.Equal(t, 0, ix.Snapshot().FileCount())
	assert.Empty(t, ix.Stats().BuildID)
}

func TestBuild_Stats(t *testing.T) {
	ix, stats := buildTestIndex(t)

	assert.NotEmpty(t, stats.BuildID)
	assert.Equal(t, 4, stats.FilesIndexed)
	assert.Equal(t, 2, stats.FilesSkipped)
	assert.Equal(t, 0, stats.FilesFailed)
	assert.Equal(t, 3, stats.SourceFiles)
	assert.Greater(t, stats.Symbols, 0)
	assert.Greater(t, stats.Functions, 0)
	assert.Greater(t, stats.CallEdges, 0)
	assert.Greater(t, stats.TrigramTerms, 0)
	assert.Greater(t, stats.InvertedTerms, 0)
	assert.Equal(t, 1, stats.Modules)
	assert.False(t, stats.CompletedAt.IsZero())
	assert.Empty(t, stats.ErrorMessages)

	assert.Equal(t, stats.BuildID, ix.Stats().BuildID)
	assert.Equal(t, 4, ix.Snapshot().FileCount())
}

func TestBuild_FiltersNonCode(t *testing.T) {
	ix, _ := buildTestIndex(t)

	_, err := ix.FileContent("locale/messages.po")
	assert.ErrorIs(t, err, ErrNotIndexed)
	_, err = ix.FileContent("README.md")
	assert.ErrorIs(t, err, ErrNotIndexed)

	content, err := ix.FileContent("config/settings.yaml")
	require.NoError(t, err)
	assert.Equal(t, "retries: 3\n", content)

	resp, err := ix.Search(context.Background(), searcher.SearchRequest{Query: "ValidatePayment"})
	require.NoError(t, err)
	for _, f := range resp.Files {
		assert.NotEqual(t, "locale/messages.po", f.Path)
		assert.NotEqual(t, "README.md", f.Path)
	}
}

func TestBuild_KeepsNonCodeWhenUnfiltered(t *testing.T) {
	ix := New(nil)
	opts := DefaultBuildOptions()
	opts.FilterNonCode = false
	stats, err := ix.Build(context.Background(), testCorpus(), opts)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesSkipped)
}

func TestBuild_EmptyCorpus(t *testing.T) {
	ix := New(nil)
	stats, err := ix.Build(context.Background(), types.Corpus{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 0, stats.Symbols)

	resp, err := ix.Search(context.Background(), searcher.SearchRequest{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, resp.Symbols)
	assert.Empty(t, resp.Files)
}

func TestBuild_SkipsUnparseableFiles(t *testing.T) {
	corpus := testCorpus()
	corpus["net/blob.c"] = types.CorpusFile{Content: "int x;\x00\x01"}

	ix := New(nil)
	stats, err := ix.Build(context.Background(), corpus, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesFailed)
	require.Len(t, stats.ErrorMessages, 1)
	assert.Contains(t, stats.ErrorMessages[0], "net/blob.c")
	assert.Equal(t, 4, stats.FilesIndexed)

	_, err = ix.FileContent("net/blob.c")
	assert.ErrorIs(t, err, ErrNotIndexed)
}

func TestBuild_Idempotent(t *testing.T) {
	ix, first := buildTestIndex(t)
	firstSymbols := ix.Snapshot().Symbols()

	second, err := ix.Build(context.Background(), testCorpus(), DefaultBuildOptions())
	require.NoError(t, err)

	assert.NotEqual(t, first.BuildID, second.BuildID)
	assert.Equal(t, first.Symbols, second.Symbols)
	assert.Equal(t, first.CallEdges, second.CallEdges)
	assert.Equal(t, first.TrigramTerms, second.TrigramTerms)
	assert.Equal(t, first.InvertedTerms, second.InvertedTerms)
	assert.Equal(t, firstSymbols, ix.Snapshot().Symbols())
}

func TestBuild_InProgress(t *testing.T) {
	ix, stats := buildTestIndex(t)

	require.True(t, ix.lock.TryAcquire())
	_, err := ix.Build(context.Background(), testCorpus(), nil)
	assert.ErrorIs(t, err, types.ErrBuildInProgress)
	_, err = ix.Learn(context.Background())
	assert.ErrorIs(t, err, types.ErrBuildInProgress)
	_, err = ix.Import(context.Background(), strings.NewReader(""))
	assert.ErrorIs(t, err, types.ErrBuildInProgress)
	ix.lock.Release()

	assert.Equal(t, stats.BuildID, ix.Stats().BuildID)
}

func TestBuild_Cancelled(t *testing.T) {
	ix, stats := buildTestIndex(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ix.Build(ctx, testCorpus(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// the published snapshot is untouched and the lock was released
	assert.Equal(t, stats.BuildID, ix.Stats().BuildID)
	assert.True(t, ix.lock.TryAcquire())
	ix.lock.Release()
}

func TestBuild_DisabledPhases(t *testing.T) {
	ix := New(nil)
	opts := &BuildOptions{FilterNonCode: true}
	stats, err := ix.Build(context.Background(), testCorpus(), opts)
	require.NoError(t, err)

	assert.Greater(t, stats.Symbols, 0)
	assert.Equal(t, 0, stats.CallEdges)
	assert.Equal(t, 0, stats.TrigramTerms)
	assert.Equal(t, 0, stats.InvertedTerms)
	assert.Equal(t, 0, stats.Modules)
	assert.Empty(t, ix.Callers("ValidatePayment"))

	// exact names still resolve through the lookup tables
	resp, err := ix.Search(context.Background(), searcher.SearchRequest{Query: "ValidatePayment"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Symbols)
	assert.Equal(t, "ValidatePayment", resp.Symbols[0].Symbol.Name)
}

func TestBuild_ExternalSummaries(t *testing.T) {
	corpus := testCorpus()
	corpus["payments/refund.go"] = types.CorpusFile{
		Content:         refundSrc,
		Summary:         "refund workflow",
		SymbolSummaries: map[string]string{"IssueRefund": "sends money back to the customer"},
	}
	ix := New(nil)
	stats, err := ix.Build(context.Background(), corpus, nil)
	require.NoError(t, err)
	assert.Greater(t, stats.Summaries, 0)

	syms := ix.SymbolsByName("IssueRefund")
	require.Len(t, syms, 1)
	assert.Equal(t, "sends money back to the customer", syms[0].Summary)
}

func TestLearn(t *testing.T) {
	ix := New(nil)
	opts := DefaultBuildOptions()
	opts.LearnDomain = false
	_, err := ix.Build(context.Background(), testCorpus(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Knowledge().ModuleCount())

	k, err := ix.Learn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, k.ModuleCount())
	assert.Contains(t, k.Modules, "payments")
	assert.Same(t, k, ix.Knowledge())
	assert.Equal(t, 1, ix.Stats().Modules)
}

func TestAccessors(t *testing.T) {
	ix, _ := buildTestIndex(t)

	assert.Contains(t, ix.Callers("ValidatePayment"), "IssueRefund")
	assert.Contains(t, ix.Callees("ValidatePayment"), "checkAmount")
	assert.Contains(t, ix.Callees("open_conn"), "dial")
	assert.Empty(t, ix.Callers("nobody"))

	syms := ix.SymbolsByName("validatepayment")
	require.Len(t, syms, 1)
	assert.Equal(t, "payments/validate.go", syms[0].File)

	block, err := ix.CodeBlock(types.Symbol{File: "payments/validate.go", Name: "ValidatePayment"}, 0)
	require.NoError(t, err)
	assert.Equal(t, 4, block.StartLine)
	assert.Equal(t, 6, block.EndLine)
	assert.Contains(t, block.Content, "return checkAmount(p.Amount)")

	_, err = ix.CodeBlock(types.Symbol{File: "payments/validate.go", Name: "missing"}, 0)
	assert.ErrorIs(t, err, ErrNotIndexed)
	_, err = ix.CodeBlock(types.Symbol{File: "nope.go", Name: "x"}, 0)
	assert.ErrorIs(t, err, ErrNotIndexed)

	c := ix.Classify("validate payment")
	assert.NotEmpty(t, c.Intent)
}

func TestExportImport_RoundTrip(t *testing.T) {
	ix, stats := buildTestIndex(t)
	ctx := context.Background()

	blob, err := ix.ExportBytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(blob, []byte("codescout-snapshot 2.0.0\n")))

	restored := New(nil)
	imported, err := restored.Import(ctx, bytes.NewReader(blob))
	require.NoError(t, err)
	assert.Equal(t, stats.BuildID, imported.BuildID)
	assert.Equal(t, stats.TrigramTerms, imported.TrigramTerms)

	assert.Equal(t, ix.Snapshot().Symbols(), restored.Snapshot().Symbols())
	assert.Equal(t, ix.Snapshot().Paths(), restored.Snapshot().Paths())
	assert.Equal(t, ix.Callers("ValidatePayment"), restored.Callers("ValidatePayment"))
	assert.Equal(t, ix.Knowledge().ModuleCount(), restored.Knowledge().ModuleCount())

	for _, q := range []string{"ValidatePayment", "refund payment", "open connection", "amount"} {
		req := searcher.SearchRequest{Query: q}
		want, err := ix.Search(ctx, req)
		require.NoError(t, err)
		got, err := restored.Search(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, want.Symbols, got.Symbols, q)
		assert.Equal(t, want.Files, got.Files, q)
		assert.Equal(t, want.CodeBlocks, got.CodeBlocks, q)
	}
}

func TestImport_Rejects(t *testing.T) {
	ix, stats := buildTestIndex(t)
	ctx := context.Background()

	blob, err := ix.ExportBytes()
	require.NoError(t, err)
	body := blob[len("codescout-snapshot 2.0.0\n"):]

	tests := []struct {
		name string
		blob []byte
		want error
	}{
		{"newer major version", append([]byte("codescout-snapshot 3.0.0\n"), body...), types.ErrUnsupportedSnapshotVersion},
		{"older version", append([]byte("codescout-snapshot 1.4.0\n"), body...), types.ErrUnsupportedSnapshotVersion},
		{"invalid version", []byte("codescout-snapshot banana\n"), types.ErrUnsupportedSnapshotVersion},
		{"wrong magic", []byte("something-else 2.0.0\n"), types.ErrCorruptSnapshot},
		{"no header", []byte("garbage"), types.ErrCorruptSnapshot},
		{"corrupt body", []byte("codescout-snapshot 2.0.0\nnot compressed"), types.ErrCorruptSnapshot},
		{"long header", bytes.Repeat([]byte("x"), 200), types.ErrCorruptSnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ix.Import(ctx, bytes.NewReader(tt.blob))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, stats.BuildID, ix.Stats().BuildID)
		})
	}
}

func TestPersistRestore(t *testing.T) {
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	ix, stats := buildTestIndex(t)
	require.NoError(t, ix.Persist(ctx, store, "/src/shop"))

	info, err := store.LoadSnapshot(ctx, "/src/shop")
	require.NoError(t, err)
	assert.Equal(t, stats.BuildID, info.BuildID)
	assert.Equal(t, SnapshotFormatVersion, info.FormatVersion)
	assert.Equal(t, 4, info.TotalFiles)

	builds, err := store.ListBuilds(ctx, "/src/shop", 5)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, stats.BuildID, builds[0].BuildID)

	restored := New(nil)
	got, err := restored.Restore(ctx, store, "/src/shop")
	require.NoError(t, err)
	assert.Equal(t, stats.BuildID, got.BuildID)
	assert.Equal(t, ix.Snapshot().Symbols(), restored.Snapshot().Symbols())

	_, err = restored.Restore(ctx, store, "/elsewhere")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBuildLock(t *testing.T) {
	var l buildLock
	_, held := l.HeldFor()
	assert.False(t, held)

	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	d, held := l.HeldFor()
	assert.True(t, held)
	assert.GreaterOrEqual(t, d, time.Duration(0))

	l.Release()
	assert.True(t, l.TryAcquire())
	l.Release()
}

func TestBuilding(t *testing.T) {
	ix := New(nil)
	_, building := ix.Building()
	assert.False(t, building)

	require.True(t, ix.lock.TryAcquire())
	_, building = ix.Building()
	assert.True(t, building)
	ix.lock.Release()
}
