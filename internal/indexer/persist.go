package indexer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ykosuru/vsix-sub002/internal/storage"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// Persist exports the published snapshot into store under root and appends
// the build to the workspace history. Both writes share one transaction.
func (ix *Index) Persist(ctx context.Context, store storage.Storage, root string) error {
	snap := ix.Snapshot()
	blob, err := ix.ExportBytes()
	if err != nil {
		return err
	}
	stats := snap.Stats()

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.SaveSnapshot(ctx, &storage.Snapshot{
		SnapshotInfo: storage.SnapshotInfo{
			RootPath:      root,
			FormatVersion: SnapshotFormatVersion,
			BuildID:       stats.BuildID,
			TotalFiles:    snap.FileCount(),
			TotalSymbols:  snap.SymbolCount(),
			CallEdges:     stats.CallEdges,
		},
		Blob: blob,
	})
	if err != nil {
		return err
	}
	err = tx.RecordBuild(ctx, &storage.BuildRecord{
		RootPath:     root,
		BuildID:      stats.BuildID,
		FilesIndexed: stats.FilesIndexed,
		FilesSkipped: stats.FilesSkipped,
		FilesFailed:  stats.FilesFailed,
		Symbols:      stats.Symbols,
		Duration:     stats.Duration,
		CompletedAt:  stats.CompletedAt,
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	ix.logger.Info("snapshot persisted", "root", root, "build_id", stats.BuildID, "bytes", len(blob))
	return nil
}

// Restore imports the snapshot stored for root. It returns
// storage.ErrNotFound when the workspace has never been persisted.
func (ix *Index) Restore(ctx context.Context, store storage.Storage, root string) (*types.BuildStats, error) {
	stored, err := store.LoadSnapshot(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot for %s: %w", root, err)
	}
	return ix.Import(ctx, bytes.NewReader(stored.Blob))
}
