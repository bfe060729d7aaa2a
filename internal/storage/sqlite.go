package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidSnapshot is returned when a snapshot is missing required fields
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Apply migrations
	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// withTx runs fn inside a fresh transaction, committing when it succeeds
func (s *SQLiteStorage) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Workspace operations

func (s *SQLiteStorage) upsertWorkspaceWithQuerier(ctx context.Context, q querier, rootPath string) (*Workspace, error) {
	if strings.TrimSpace(rootPath) == "" {
		return nil, errors.New("workspace root path is required")
	}
	now := time.Now()
	query := `
		INSERT INTO workspaces (root_path, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(root_path) DO UPDATE SET updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, rootPath, now, now); err != nil {
		return nil, fmt.Errorf("failed to upsert workspace: %w", err)
	}
	return s.getWorkspaceWithQuerier(ctx, q, rootPath)
}

func (s *SQLiteStorage) UpsertWorkspace(ctx context.Context, rootPath string) (*Workspace, error) {
	return s.upsertWorkspaceWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) getWorkspaceWithQuerier(ctx context.Context, q querier, rootPath string) (*Workspace, error) {
	query := `
		SELECT id, root_path, created_at, updated_at
		FROM workspaces
		WHERE root_path = ?
	`
	var ws Workspace
	err := q.QueryRowContext(ctx, query, rootPath).Scan(&ws.ID, &ws.RootPath, &ws.CreatedAt, &ws.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (s *SQLiteStorage) GetWorkspace(ctx context.Context, rootPath string) (*Workspace, error) {
	return s.getWorkspaceWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) listWorkspacesWithQuerier(ctx context.Context, q querier) ([]*Workspace, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, root_path, created_at, updated_at FROM workspaces ORDER BY root_path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Workspace
	for rows.Next() {
		var ws Workspace
		if err := rows.Scan(&ws.ID, &ws.RootPath, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &ws)
	}
	return out, rows.Err()
}

func (s *SQLiteStorage) ListWorkspaces(ctx context.Context) ([]*Workspace, error) {
	return s.listWorkspacesWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) deleteWorkspaceWithQuerier(ctx context.Context, q querier, rootPath string) error {
	res, err := q.ExecContext(ctx, `DELETE FROM workspaces WHERE root_path = ?`, rootPath)
	if err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteWorkspace(ctx context.Context, rootPath string) error {
	return s.deleteWorkspaceWithQuerier(ctx, s.querier(), rootPath)
}

// Snapshot operations

func validateSnapshot(snap *Snapshot) error {
	switch {
	case snap == nil:
		return fmt.Errorf("%w: nil", ErrInvalidSnapshot)
	case snap.RootPath == "":
		return fmt.Errorf("%w: root path is required", ErrInvalidSnapshot)
	case snap.FormatVersion == "":
		return fmt.Errorf("%w: format version is required", ErrInvalidSnapshot)
	case snap.BuildID == "":
		return fmt.Errorf("%w: build ID is required", ErrInvalidSnapshot)
	case len(snap.Blob) == 0:
		return fmt.Errorf("%w: blob is empty", ErrInvalidSnapshot)
	}
	return nil
}

func (s *SQLiteStorage) saveSnapshotWithQuerier(ctx context.Context, q querier, snap *Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	ws, err := s.upsertWorkspaceWithQuerier(ctx, q, snap.RootPath)
	if err != nil {
		return err
	}

	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	snap.SizeBytes = int64(len(snap.Blob))
	query := `
		INSERT INTO snapshots (workspace_id, format_version, build_id, total_files, total_symbols,
		                       call_edges, size_bytes, blob, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(workspace_id) DO UPDATE SET
			format_version = excluded.format_version,
			build_id = excluded.build_id,
			total_files = excluded.total_files,
			total_symbols = excluded.total_symbols,
			call_edges = excluded.call_edges,
			size_bytes = excluded.size_bytes,
			blob = excluded.blob,
			created_at = excluded.created_at
	`
	_, err = q.ExecContext(ctx, query,
		ws.ID, snap.FormatVersion, snap.BuildID, snap.TotalFiles, snap.TotalSymbols,
		snap.CallEdges, snap.SizeBytes, snap.Blob, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// SaveSnapshot stores snap as the latest snapshot of its workspace
func (s *SQLiteStorage) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	return s.withTx(ctx, func(q querier) error {
		return s.saveSnapshotWithQuerier(ctx, q, snap)
	})
}

const snapshotColumns = `
	w.root_path, s.format_version, s.build_id, s.total_files, s.total_symbols,
	s.call_edges, s.size_bytes, s.created_at`

func scanSnapshotInfo(scan func(dest ...interface{}) error, info *SnapshotInfo, extra ...interface{}) error {
	dest := []interface{}{
		&info.RootPath, &info.FormatVersion, &info.BuildID, &info.TotalFiles, &info.TotalSymbols,
		&info.CallEdges, &info.SizeBytes, &info.CreatedAt,
	}
	return scan(append(dest, extra...)...)
}

func (s *SQLiteStorage) loadSnapshotWithQuerier(ctx context.Context, q querier, rootPath string) (*Snapshot, error) {
	query := `SELECT ` + snapshotColumns + `, s.blob
		FROM snapshots s
		JOIN workspaces w ON w.id = s.workspace_id
		WHERE w.root_path = ?
	`
	var snap Snapshot
	err := scanSnapshotInfo(q.QueryRowContext(ctx, query, rootPath).Scan, &snap.SnapshotInfo, &snap.Blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return &snap, nil
}

// LoadSnapshot returns the latest snapshot of rootPath
func (s *SQLiteStorage) LoadSnapshot(ctx context.Context, rootPath string) (*Snapshot, error) {
	return s.loadSnapshotWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) deleteSnapshotWithQuerier(ctx context.Context, q querier, rootPath string) error {
	query := `DELETE FROM snapshots WHERE workspace_id = (SELECT id FROM workspaces WHERE root_path = ?)`
	res, err := q.ExecContext(ctx, query, rootPath)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSnapshot removes the snapshot of rootPath, keeping the workspace
func (s *SQLiteStorage) DeleteSnapshot(ctx context.Context, rootPath string) error {
	return s.deleteSnapshotWithQuerier(ctx, s.querier(), rootPath)
}

func (s *SQLiteStorage) listSnapshotsWithQuerier(ctx context.Context, q querier) ([]*SnapshotInfo, error) {
	query := `SELECT ` + snapshotColumns + `
		FROM snapshots s
		JOIN workspaces w ON w.id = s.workspace_id
		ORDER BY w.root_path
	`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := scanSnapshotInfo(rows.Scan, &info); err != nil {
			return nil, err
		}
		out = append(out, &info)
	}
	return out, rows.Err()
}

// ListSnapshots returns the metadata of every stored snapshot without blobs
func (s *SQLiteStorage) ListSnapshots(ctx context.Context) ([]*SnapshotInfo, error) {
	return s.listSnapshotsWithQuerier(ctx, s.querier())
}

// Build history operations

func (s *SQLiteStorage) recordBuildWithQuerier(ctx context.Context, q querier, rec *BuildRecord) error {
	if rec == nil || rec.RootPath == "" || rec.BuildID == "" {
		return errors.New("build record needs a root path and build ID")
	}
	ws, err := s.upsertWorkspaceWithQuerier(ctx, q, rec.RootPath)
	if err != nil {
		return err
	}
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}
	query := `
		INSERT INTO build_history (workspace_id, build_id, files_indexed, files_skipped, files_failed,
		                           symbols, duration_ms, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := q.ExecContext(ctx, query,
		ws.ID, rec.BuildID, rec.FilesIndexed, rec.FilesSkipped, rec.FilesFailed,
		rec.Symbols, rec.Duration.Milliseconds(), rec.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to record build: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// RecordBuild appends a build to the history of its workspace
func (s *SQLiteStorage) RecordBuild(ctx context.Context, rec *BuildRecord) error {
	return s.recordBuildWithQuerier(ctx, s.querier(), rec)
}

func (s *SQLiteStorage) listBuildsWithQuerier(ctx context.Context, q querier, rootPath string, limit int) ([]*BuildRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT b.id, w.root_path, b.build_id, b.files_indexed, b.files_skipped, b.files_failed,
		       b.symbols, b.duration_ms, b.completed_at
		FROM build_history b
		JOIN workspaces w ON w.id = b.workspace_id
		WHERE w.root_path = ?
		ORDER BY b.completed_at DESC, b.id DESC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, rootPath, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*BuildRecord
	for rows.Next() {
		var rec BuildRecord
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.RootPath, &rec.BuildID, &rec.FilesIndexed, &rec.FilesSkipped,
			&rec.FilesFailed, &rec.Symbols, &durationMS, &rec.CompletedAt); err != nil {
			return nil, err
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// ListBuilds returns the most recent builds of rootPath, newest first
func (s *SQLiteStorage) ListBuilds(ctx context.Context, rootPath string, limit int) ([]*BuildRecord, error) {
	return s.listBuildsWithQuerier(ctx, s.querier(), rootPath, limit)
}

// Transaction implementations delegate to the querier-based helpers

func (t *sqliteTx) UpsertWorkspace(ctx context.Context, rootPath string) (*Workspace, error) {
	return t.storage.upsertWorkspaceWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) GetWorkspace(ctx context.Context, rootPath string) (*Workspace, error) {
	return t.storage.getWorkspaceWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) ListWorkspaces(ctx context.Context) ([]*Workspace, error) {
	return t.storage.listWorkspacesWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteWorkspace(ctx context.Context, rootPath string) error {
	return t.storage.deleteWorkspaceWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	return t.storage.saveSnapshotWithQuerier(ctx, t.querier(), snap)
}

func (t *sqliteTx) LoadSnapshot(ctx context.Context, rootPath string) (*Snapshot, error) {
	return t.storage.loadSnapshotWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) DeleteSnapshot(ctx context.Context, rootPath string) error {
	return t.storage.deleteSnapshotWithQuerier(ctx, t.querier(), rootPath)
}

func (t *sqliteTx) ListSnapshots(ctx context.Context) ([]*SnapshotInfo, error) {
	return t.storage.listSnapshotsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) RecordBuild(ctx context.Context, rec *BuildRecord) error {
	return t.storage.recordBuildWithQuerier(ctx, t.querier(), rec)
}

func (t *sqliteTx) ListBuilds(ctx context.Context, rootPath string, limit int) ([]*BuildRecord, error) {
	return t.storage.listBuildsWithQuerier(ctx, t.querier(), rootPath, limit)
}

func (t *sqliteTx) Close() error {
	return errors.New("cannot close storage from within a transaction")
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions are not supported")
}
