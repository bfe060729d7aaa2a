// Package mcp implements the Model Context Protocol (MCP) server for codescout.
//
// The server exposes six tools to AI coding assistants:
//   - index_codebase: load every file under a folder, build its index and store the snapshot
//   - search_code: run the multi-stage search against an indexed workspace
//   - classify_query: report the intent and entities of a question
//   - get_callers / get_callees: walk the call graph one step
//   - get_status: report whether a workspace is indexed and list recent builds
//
// MCP is JSON-RPC 2.0 over stdio. The server is started with
//
//	codescout serve
//
// and reads requests from stdin, writing responses to stdout. Logs go to
// stderr.
//
// # Workspaces
//
// Every tool except classify_query takes an absolute "path" naming the
// workspace root. Indexes are held in memory per root; a root that was
// indexed in an earlier process is restored from the snapshot store on first
// use. A root that was never indexed yields ErrorCodeNotIndexed.
//
//	Request:
//	{
//	  "name": "search_code",
//	  "arguments": {
//	    "path": "/src/postgres",
//	    "query": "how is an index opened",
//	    "limit": 10,
//	    "strategies": ["concept_files", "exact_names", "keywords"]
//	  }
//	}
//
// The response is the search response as JSON: ranked symbols, ranked files,
// code blocks for the top symbols, and stats naming the build that served it.
//
// # Error Handling
//
// Handlers return *MCPError values:
//   - -32602: invalid params (missing or malformed arguments)
//   - -32603: internal error
//   - -32001: path is missing, unreadable or not a directory
//   - -32002: a build of the workspace is already running
//   - -32003: workspace not indexed
//   - -32004: empty query
package mcp
