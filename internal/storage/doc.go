// Package storage persists exported index snapshots in SQLite so a process
// can restart without rebuilding.
//
// The store does not understand snapshot contents. It keeps one opaque blob
// per workspace root together with the metadata needed to list and audit
// builds without decoding it.
//
// # Database Schema
//
// Tables:
//   - workspaces: one row per indexed root path
//   - snapshots: the latest exported blob per workspace, with its format
//     version, build ID and counts
//   - build_history: one row per completed build (added in schema 1.1.0)
//   - schema_version: applied migrations
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("~/.codescout/index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.SaveSnapshot(ctx, &storage.Snapshot{
//	    RootPath:      "/src/payments",
//	    FormatVersion: "2.0.0",
//	    BuildID:       stats.BuildID,
//	    Blob:          blob,
//	})
//
//	snap, err := db.LoadSnapshot(ctx, "/src/payments")
//	if errors.Is(err, storage.ErrNotFound) {
//	    // nothing persisted yet
//	}
//
// # Transactions
//
// SaveSnapshot upserts the workspace and replaces its snapshot in one
// transaction. Callers composing several writes can use BeginTx:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//	if err := tx.SaveSnapshot(ctx, snap); err != nil {
//	    return err
//	}
//	if err := tx.RecordBuild(ctx, rec); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Drivers
//
// The default build uses modernc.org/sqlite (pure Go). Building with the
// cgo_sqlite tag switches to github.com/mattn/go-sqlite3.
//
// # Migrations
//
// Schema versions are semantic versions. ApplyMigrations runs every migration
// newer than the recorded version, in order, when the store is opened.
package storage
