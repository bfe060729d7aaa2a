package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	// Use in-memory database for testing
	storage, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func testSnapshot(root, buildID string) *Snapshot {
	return &Snapshot{
		SnapshotInfo: SnapshotInfo{
			RootPath:      root,
			FormatVersion: "2.0.0",
			BuildID:       buildID,
			TotalFiles:    3,
			TotalSymbols:  12,
			CallEdges:     7,
		},
		Blob: []byte("codescout-snapshot 2.0.0\n" + buildID),
	}
}

func TestNewSQLiteStorage_AppliesMigrations(t *testing.T) {
	storage := setupTestDB(t)

	version, err := storage.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, ApplyMigrations(ctx, storage.db))

	var count int
	require.NoError(t, storage.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_version").Scan(&count))
	assert.Equal(t, len(AllMigrations), count)
}

func TestRollbackMigration(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, storage.db))
	version, err := storage.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version)

	// the build history table is gone, snapshots still work
	_, err = storage.db.ExecContext(ctx, "SELECT 1 FROM build_history")
	assert.Error(t, err)
	require.NoError(t, storage.SaveSnapshot(ctx, testSnapshot("/ws", "b1")))

	// and migrating forward again restores it
	require.NoError(t, ApplyMigrations(ctx, storage.db))
	version, err = storage.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestUpsertWorkspace(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	first, err := storage.UpsertWorkspace(ctx, "/src/payments")
	require.NoError(t, err)
	assert.Greater(t, first.ID, int64(0))

	again, err := storage.UpsertWorkspace(ctx, "/src/payments")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	_, err = storage.UpsertWorkspace(ctx, "  ")
	assert.Error(t, err)

	list, err := storage.ListWorkspaces(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetWorkspace_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.GetWorkspace(context.Background(), "/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveAndLoadSnapshot(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	snap := testSnapshot("/src/payments", "build-1")
	require.NoError(t, storage.SaveSnapshot(ctx, snap))

	loaded, err := storage.LoadSnapshot(ctx, "/src/payments")
	require.NoError(t, err)
	assert.Equal(t, "build-1", loaded.BuildID)
	assert.Equal(t, "2.0.0", loaded.FormatVersion)
	assert.Equal(t, 3, loaded.TotalFiles)
	assert.Equal(t, 12, loaded.TotalSymbols)
	assert.Equal(t, 7, loaded.CallEdges)
	assert.Equal(t, snap.Blob, loaded.Blob)
	assert.Equal(t, int64(len(snap.Blob)), loaded.SizeBytes)
}

func TestSaveSnapshot_ReplacesPrevious(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveSnapshot(ctx, testSnapshot("/ws", "old")))
	require.NoError(t, storage.SaveSnapshot(ctx, testSnapshot("/ws", "new")))

	loaded, err := storage.LoadSnapshot(ctx, "/ws")
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.BuildID)

	infos, err := storage.ListSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "new", infos[0].BuildID)
}

func TestSaveSnapshot_Validation(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"missing root", func(s *Snapshot) { s.RootPath = "" }},
		{"missing version", func(s *Snapshot) { s.FormatVersion = "" }},
		{"missing build id", func(s *Snapshot) { s.BuildID = "" }},
		{"empty blob", func(s *Snapshot) { s.Blob = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot("/ws", "b")
			tt.mutate(snap)
			assert.ErrorIs(t, storage.SaveSnapshot(ctx, snap), ErrInvalidSnapshot)
		})
	}
	assert.ErrorIs(t, storage.SaveSnapshot(ctx, nil), ErrInvalidSnapshot)
}

func TestLoadSnapshot_NotFound(t *testing.T) {
	storage := setupTestDB(t)

	_, err := storage.LoadSnapshot(context.Background(), "/nothing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteSnapshot(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveSnapshot(ctx, testSnapshot("/ws", "b1")))
	require.NoError(t, storage.DeleteSnapshot(ctx, "/ws"))

	_, err := storage.LoadSnapshot(ctx, "/ws")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, storage.DeleteSnapshot(ctx, "/ws"), ErrNotFound)

	// the workspace survives
	_, err = storage.GetWorkspace(ctx, "/ws")
	assert.NoError(t, err)
}

func TestDeleteWorkspace_Cascades(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, storage.SaveSnapshot(ctx, testSnapshot("/ws", "b1")))
	require.NoError(t, storage.RecordBuild(ctx, &BuildRecord{RootPath: "/ws", BuildID: "b1"}))
	require.NoError(t, storage.DeleteWorkspace(ctx, "/ws"))

	_, err := storage.LoadSnapshot(ctx, "/ws")
	assert.ErrorIs(t, err, ErrNotFound)
	builds, err := storage.ListBuilds(ctx, "/ws", 10)
	require.NoError(t, err)
	assert.Empty(t, builds)

	assert.ErrorIs(t, storage.DeleteWorkspace(ctx, "/ws"), ErrNotFound)
}

func TestRecordAndListBuilds(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"b1", "b2", "b3"} {
		rec := &BuildRecord{
			RootPath:     "/ws",
			BuildID:      id,
			FilesIndexed: 10 + i,
			FilesFailed:  i,
			Symbols:      100,
			Duration:     1500 * time.Millisecond,
			CompletedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, storage.RecordBuild(ctx, rec))
		assert.Greater(t, rec.ID, int64(0))
	}

	builds, err := storage.ListBuilds(ctx, "/ws", 2)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	assert.Equal(t, "b3", builds[0].BuildID)
	assert.Equal(t, "b2", builds[1].BuildID)
	assert.Equal(t, 12, builds[0].FilesIndexed)
	assert.Equal(t, 1500*time.Millisecond, builds[0].Duration)

	assert.Error(t, storage.RecordBuild(ctx, &BuildRecord{RootPath: "/ws"}))
}

func TestTransaction_CommitAndRollback(t *testing.T) {
	storage := setupTestDB(t)
	ctx := context.Background()

	tx, err := storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveSnapshot(ctx, testSnapshot("/rolled", "b1")))
	require.NoError(t, tx.Rollback())

	_, err = storage.LoadSnapshot(ctx, "/rolled")
	assert.ErrorIs(t, err, ErrNotFound)

	tx, err = storage.BeginTx(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.SaveSnapshot(ctx, testSnapshot("/kept", "b2")))
	require.NoError(t, tx.RecordBuild(ctx, &BuildRecord{RootPath: "/kept", BuildID: "b2"}))
	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)
	require.NoError(t, tx.Commit())

	loaded, err := storage.LoadSnapshot(ctx, "/kept")
	require.NoError(t, err)
	assert.Equal(t, "b2", loaded.BuildID)
}
