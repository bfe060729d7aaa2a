package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting index snapshots
type Storage interface {
	// Workspace operations
	UpsertWorkspace(ctx context.Context, rootPath string) (*Workspace, error)
	GetWorkspace(ctx context.Context, rootPath string) (*Workspace, error)
	ListWorkspaces(ctx context.Context) ([]*Workspace, error)
	DeleteWorkspace(ctx context.Context, rootPath string) error

	// Snapshot operations
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	LoadSnapshot(ctx context.Context, rootPath string) (*Snapshot, error)
	DeleteSnapshot(ctx context.Context, rootPath string) error
	ListSnapshots(ctx context.Context) ([]*SnapshotInfo, error)

	// Build history operations
	RecordBuild(ctx context.Context, rec *BuildRecord) error
	ListBuilds(ctx context.Context, rootPath string, limit int) ([]*BuildRecord, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Workspace is an indexed root folder
type Workspace struct {
	ID        int64
	RootPath  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SnapshotInfo is the metadata of a stored snapshot
type SnapshotInfo struct {
	RootPath      string
	FormatVersion string
	BuildID       string
	TotalFiles    int
	TotalSymbols  int
	CallEdges     int
	SizeBytes     int64
	CreatedAt     time.Time
}

// Snapshot is a stored snapshot blob with its metadata
type Snapshot struct {
	SnapshotInfo
	Blob []byte
}

// BuildRecord is one completed build of a workspace
type BuildRecord struct {
	ID           int64
	RootPath     string
	BuildID      string
	FilesIndexed int
	FilesSkipped int
	FilesFailed  int
	Symbols      int
	Duration     time.Duration
	CompletedAt  time.Time
}
