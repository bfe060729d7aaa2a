// Package workspace keeps one index handle per workspace root and moves
// snapshots between the handles and the snapshot store.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/ykosuru/vsix-sub002/internal/config"
	"github.com/ykosuru/vsix-sub002/internal/corpus"
	"github.com/ykosuru/vsix-sub002/internal/indexer"
	"github.com/ykosuru/vsix-sub002/internal/logging"
	"github.com/ykosuru/vsix-sub002/internal/storage"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// ErrNotIndexed is returned when a root has neither a loaded index nor a
// stored snapshot
var ErrNotIndexed = errors.New("workspace not indexed")

// Manager owns the index handles. A nil store disables persistence.
type Manager struct {
	cfg    *config.Config
	store  storage.Storage
	logger *slog.Logger

	mu      sync.Mutex
	indexes map[string]*indexer.Index
}

// NewManager creates a manager. cfg nil means config.Default().
func NewManager(cfg *config.Config, store storage.Storage, logger *slog.Logger) *Manager {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Manager{
		cfg:     cfg,
		store:   store,
		logger:  logging.OrDiscard(logger),
		indexes: make(map[string]*indexer.Index),
	}
}

// Config returns the configuration the manager builds with
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Store returns the snapshot store, or nil
func (m *Manager) Store() storage.Storage {
	return m.store
}

// Key normalizes a root path into the registry key
func Key(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	return filepath.Clean(abs), nil
}

// handle returns the index for root, creating an empty one if needed
func (m *Manager) handle(root string) *indexer.Index {
	m.mu.Lock()
	defer m.mu.Unlock()
	ix, ok := m.indexes[root]
	if !ok {
		ix = indexer.New(m.cfg.IndexerConfig(m.logger))
		m.indexes[root] = ix
	}
	return ix
}

// Loaded returns the index for root if it has been built or restored
func (m *Manager) Loaded(root string) (*indexer.Index, bool) {
	key, err := Key(root)
	if err != nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ix, ok := m.indexes[key]
	if !ok || ix.Snapshot().BuildID() == "" {
		return nil, false
	}
	return ix, true
}

// Index returns a searchable index for root, restoring the stored snapshot
// on first use. It fails with ErrNotIndexed when nothing is available.
func (m *Manager) Index(ctx context.Context, root string) (*indexer.Index, error) {
	key, err := Key(root)
	if err != nil {
		return nil, err
	}
	if ix, ok := m.Loaded(key); ok {
		return ix, nil
	}
	if m.store == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrNotIndexed)
	}

	ix := m.handle(key)
	if _, err := ix.Restore(ctx, m.store, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", key, ErrNotIndexed)
		}
		return nil, err
	}
	m.logger.Info("workspace restored", "root", key, "build_id", ix.Snapshot().BuildID())
	return ix, nil
}

// Build loads every file under root, rebuilds its index and persists the
// result when a store is configured
func (m *Manager) Build(ctx context.Context, root string) (*types.BuildStats, error) {
	key, err := Key(root)
	if err != nil {
		return nil, err
	}
	docs, loadStats, err := corpus.Load(ctx, []string{key}, m.cfg.CorpusOptions(m.logger))
	if err != nil {
		return nil, err
	}

	ix := m.handle(key)
	stats, err := ix.Build(ctx, docs, m.cfg.BuildOptions())
	if err != nil {
		return nil, err
	}
	// files the loader rejected never reached the builder
	stats.FilesSkipped += loadStats.FilesSkipped
	stats.FilesFailed += loadStats.FilesFailed
	stats.ErrorMessages = append(loadStats.ErrorMessages, stats.ErrorMessages...)

	if m.store != nil {
		if err := ix.Persist(ctx, m.store, key); err != nil {
			return stats, fmt.Errorf("index built but not persisted: %w", err)
		}
	}
	return stats, nil
}

// Drop forgets the loaded index for root and, when purge is set, its stored
// snapshot and history
func (m *Manager) Drop(ctx context.Context, root string, purge bool) error {
	key, err := Key(root)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.indexes, key)
	m.mu.Unlock()

	if purge && m.store != nil {
		if err := m.store.DeleteWorkspace(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Roots lists the roots with a loaded index
func (m *Manager) Roots() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	roots := make([]string, 0, len(m.indexes))
	for r := range m.indexes {
		roots = append(roots, r)
	}
	return roots
}
