// ABOUTME: MCP tool definitions and registration for the halal food finder
// ABOUTME: Exposes the chat pipeline and retrieval-only search as MCP tools
package mcp

import (
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/ummati/ummati/internal/core"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, pipeline *core.Pipeline) *Handlers {
	handlers := &Handlers{
		pipeline:   pipeline,
		shutdownWg: &sync.WaitGroup{},
	}

	// 1. find_halal_food - full retrieval-augmented answer
	server.AddTool(mcp.Tool{
		Name:        "find_halal_food",
		Description: "Recommend halal restaurants for a request such as 'spicy chicken in Chicago'. Searches the restaurant index and answers with the best matches.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What the user is looking for, including location if known",
				},
				"history": map[string]interface{}{
					"type":        "string",
					"description": "Optional JSON array of earlier {role, content} messages in the conversation",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.FindHalalFood)

	// 2. search_halal_restaurants - retrieval only, no completion
	server.AddTool(mcp.Tool{
		Name:        "search_halal_restaurants",
		Description: "Return the 5 restaurants closest to a query from the vector index, without generating an answer.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search text, e.g. 'biryani in Houston'",
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SearchRestaurants)

	return handlers
}
