package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ykosuru/vsix-sub002/internal/classifier"
	"github.com/ykosuru/vsix-sub002/internal/indexer"
	"github.com/ykosuru/vsix-sub002/internal/searcher"
	"github.com/ykosuru/vsix-sub002/internal/workspace"
	"github.com/ykosuru/vsix-sub002/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeWorkspaceNotFound  = -32001 // Path is not a readable directory
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Workspace not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

const (
	maxLimit       = 200
	maxErrorsShown = 5
	recentBuilds   = 5
)

// handleIndexCodebase loads, builds and persists a workspace
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}

	stats, err := s.workspaces.Build(ctx, path)
	if err != nil {
		return nil, toolError("indexing failed", err)
	}

	response := map[string]interface{}{
		"indexed":       true,
		"path":          path,
		"build_id":      stats.BuildID,
		"files_indexed": stats.FilesIndexed,
		"files_skipped": stats.FilesSkipped,
		"files_failed":  stats.FilesFailed,
		"source_files":  stats.SourceFiles,
		"symbols":       stats.Symbols,
		"call_edges":    stats.CallEdges,
		"modules":       stats.Modules,
		"duration_ms":   stats.Duration.Milliseconds(),
	}
	if n := len(stats.ErrorMessages); n > 0 {
		if n > maxErrorsShown {
			response["errors"] = stats.ErrorMessages[:maxErrorsShown]
			response["error_count"] = n
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode runs the search pipeline against an indexed workspace
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}
	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	cfg := s.workspaces.Config()
	req := cfg.SearchRequest(query)
	limit := getIntDefault(args, "limit", req.MaxResults)
	if limit < 1 || limit > maxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	req.MaxResults = limit
	if !getBoolDefault(args, "include_code_blocks", true) {
		req.CodeBlockCount = -1
	}
	if raw, ok := args["strategies"]; ok {
		strategies, err := parseStrategies(raw)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid strategies", map[string]interface{}{
				"param":   "strategies",
				"reason":  err.Error(),
				"allowed": strategyNames,
			})
		}
		req.Strategies = strategies
	}

	ix, err := s.workspaces.Index(ctx, path)
	if err != nil {
		return nil, toolError("search failed", err)
	}
	resp, err := ix.Search(ctx, req)
	if err != nil {
		return nil, toolError("search failed", err)
	}
	return mcp.NewToolResultText(formatJSON(resp)), nil
}

// handleClassifyQuery reports the intent of a question. With a path, the
// workspace's learned domain knowledge sharpens the entities and modules.
func (s *Server) handleClassifyQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	var c types.Classification
	if path := getStringDefault(args, "path", ""); path != "" {
		if err := validatePath(path); err != nil {
			return nil, invalidPath(err)
		}
		ix, err := s.workspaces.Index(ctx, path)
		if err != nil {
			return nil, toolError("classification failed", err)
		}
		c = ix.Classify(query)
	} else {
		c = classifier.New(nil).Classify(query)
	}
	return mcp.NewToolResultText(formatJSON(c)), nil
}

// handleGetCallers lists the symbols calling a name
func (s *Server) handleGetCallers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.callGraph(ctx, request, "callers", (*indexer.Index).Callers)
}

// handleGetCallees lists the names a symbol calls
func (s *Server) handleGetCallees(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.callGraph(ctx, request, "callees", (*indexer.Index).Callees)
}

func (s *Server) callGraph(ctx context.Context, request mcp.CallToolRequest, field string, edges func(*indexer.Index, string) []string) (*mcp.CallToolResult, error) {
	args, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(getStringDefault(args, "name", ""))
	if name == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "name parameter is required", map[string]interface{}{
			"param":  "name",
			"reason": "missing or empty",
		})
	}

	ix, err := s.workspaces.Index(ctx, path)
	if err != nil {
		return nil, toolError("call graph lookup failed", err)
	}
	names := edges(ix, name)
	if names == nil {
		names = []string{}
	}
	definitions := []types.Symbol{}
	for _, n := range names {
		definitions = append(definitions, ix.SymbolsByName(n)...)
	}

	response := map[string]interface{}{
		"name":        name,
		field:         names,
		"definitions": definitions,
		"defined_at":  ix.SymbolsByName(name),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus reports whether a workspace is indexed and its recent builds
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, path, err := pathArgs(request)
	if err != nil {
		return nil, err
	}
	key, err := workspace.Key(path)
	if err != nil {
		return nil, invalidPath(err)
	}

	var builds []map[string]interface{}
	if s.storage != nil {
		records, err := s.storage.ListBuilds(ctx, key, recentBuilds)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to get build history", map[string]interface{}{
				"error": err.Error(),
			})
		}
		for _, r := range records {
			builds = append(builds, map[string]interface{}{
				"build_id":      r.BuildID,
				"files_indexed": r.FilesIndexed,
				"files_skipped": r.FilesSkipped,
				"files_failed":  r.FilesFailed,
				"symbols":       r.Symbols,
				"duration_ms":   r.Duration.Milliseconds(),
				"completed_at":  r.CompletedAt.Format(time.RFC3339),
			})
		}
	}

	ix, loaded := s.workspaces.Loaded(key)
	if !loaded && len(builds) == 0 {
		response := map[string]interface{}{
			"indexed": false,
			"path":    key,
			"message": "Workspace not indexed. Use index_codebase tool to index this workspace.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response := map[string]interface{}{
		"indexed": true,
		"path":    key,
		"loaded":  loaded,
		"builds":  builds,
	}
	if loaded {
		snap := ix.Snapshot()
		response["statistics"] = snap.Stats()
		response["features"] = snap.Features()
		response["files_count"] = snap.FileCount()
		response["symbols_count"] = snap.SymbolCount()
		response["modules"] = ix.Knowledge().ModuleCount()
		d, building := ix.Building()
		response["building"] = building
		if building {
			response["building_for_ms"] = d.Milliseconds()
		}
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// pathArgs extracts the argument map and a validated path parameter
func pathArgs(request mcp.CallToolRequest) (map[string]interface{}, string, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return nil, "", invalidPath(err)
	}
	return args, path, nil
}

func invalidPath(err error) error {
	code := ErrorCodeInvalidParams
	if errors.Is(err, ErrPathNotFound) || errors.Is(err, ErrNotDirectory) || errors.Is(err, ErrPathNotReadable) {
		code = ErrorCodeWorkspaceNotFound
	}
	return newMCPError(code, "invalid path", map[string]interface{}{
		"param":  "path",
		"reason": err.Error(),
	})
}

// toolError maps engine errors onto MCP error codes
func toolError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrBuildInProgress):
		code = ErrorCodeIndexingInProgress
	case errors.Is(err, workspace.ErrNotIndexed):
		code = ErrorCodeNotIndexed
		message = "workspace not indexed"
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

var strategyNames = []string{"concept_files", "exact_names", "fuzzy_names", "file_names", "directories", "code_text", "keywords"}

// parseStrategies turns a list of stage names into a strategy selection
func parseStrategies(raw interface{}) (*searcher.Strategies, error) {
	list, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New("must be an array of strings")
	}
	st := &searcher.Strategies{}
	for _, item := range list {
		name, _ := item.(string)
		switch name {
		case "concept_files":
			st.ConceptFiles = true
		case "exact_names":
			st.ExactNames = true
		case "fuzzy_names":
			st.FuzzyNames = true
		case "file_names":
			st.FileNames = true
		case "directories":
			st.Directories = true
		case "code_text":
			st.CodeText = true
		case "keywords":
			st.Keywords = true
		default:
			return nil, fmt.Errorf("unknown strategy %q", name)
		}
	}
	return st, nil
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is a readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()
	return nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
