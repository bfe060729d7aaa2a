package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ykosuru/vsix-sub002/internal/config"
	"github.com/ykosuru/vsix-sub002/internal/logging"
	"github.com/ykosuru/vsix-sub002/internal/storage"
	"github.com/ykosuru/vsix-sub002/internal/workspace"
)

const (
	// ServerName is the MCP server name
	ServerName = "codescout"
	// ServerVersion is the current server version
	ServerVersion = "2.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	storage    storage.Storage
	workspaces *workspace.Manager
	logger     *slog.Logger
}

// NewServer creates a server storing snapshots at the configured database path
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return NewServerWithStorage(cfg, store, logger), nil
}

// NewServerWithStorage creates a server over an open store. The server
// closes the store when Serve returns.
func NewServerWithStorage(cfg *config.Config, store storage.Storage, logger *slog.Logger) *Server {
	logger = logging.OrDiscard(logger)
	s := &Server{
		mcp:        server.NewMCPServer(ServerName, ServerVersion),
		storage:    store,
		workspaces: workspace.NewManager(cfg, store, logger),
		logger:     logger,
	}
	s.registerTools()
	return s
}

// Workspaces exposes the index registry, shared with the file watcher
func (s *Server) Workspaces() *workspace.Manager {
	return s.workspaces
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	s.logger.Info("serving MCP on stdio", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// Close releases the store without serving
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(classifyQueryTool(), s.handleClassifyQuery)
	s.mcp.AddTool(getCallersTool(), s.handleGetCallers)
	s.mcp.AddTool(getCalleesTool(), s.handleGetCallees)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
