package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

// indexCodebaseTool returns the tool definition for index_codebase
func indexCodebaseTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_codebase",
		Description: "Index every source file under a folder so it can be searched. Rebuilds from scratch and stores the snapshot.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to the workspace root"),
			},
			Required: []string{"path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search an indexed workspace with a natural language question or identifiers",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to an indexed workspace"),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language, identifiers or code text)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of symbols and files to return (1-200)",
					"default":     20,
					"minimum":     1,
					"maximum":     maxLimit,
				},
				"include_code_blocks": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, include source excerpts of the top symbols",
					"default":     true,
				},
				"strategies": map[string]interface{}{
					"type":        "array",
					"description": "Retrieval stages to run; all stages run when omitted",
					"items": map[string]interface{}{
						"type": "string",
						"enum": strategyNames,
					},
				},
			},
			Required: []string{"path", "query"},
		},
	}
}

// classifyQueryTool returns the tool definition for classify_query
func classifyQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "classify_query",
		Description: "Classify the intent of a question about code and extract the entities it mentions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The question to classify",
				},
				"path": pathProperty("Optional absolute path to an indexed workspace whose domain knowledge is used"),
			},
			Required: []string{"query"},
		},
	}
}

// getCallersTool returns the tool definition for get_callers
func getCallersTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_callers",
		Description: "List the functions that call a function",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to an indexed workspace"),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Function name",
				},
			},
			Required: []string{"path", "name"},
		},
	}
}

// getCalleesTool returns the tool definition for get_callees
func getCalleesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_callees",
		Description: "List the functions called from the body of a function",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to an indexed workspace"),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Function name",
				},
			},
			Required: []string{"path", "name"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report whether a workspace is indexed, with statistics and recent builds",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty("Absolute path to the workspace"),
			},
			Required: []string{"path"},
		},
	}
}
