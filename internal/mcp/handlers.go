// ABOUTME: MCP tool handler implementations for the halal food finder
// ABOUTME: Tool failures are returned as error results, never as protocol errors
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ummati/ummati/internal/core"
	"github.com/ummati/ummati/internal/models"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	pipeline   *core.Pipeline
	shutdownWg *sync.WaitGroup // Track in-flight tool calls
}

// matchSummary is the JSON shape of one match in tool responses
type matchSummary struct {
	ID         string   `json:"id"`
	Score      float64  `json:"score"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Town       string   `json:"town"`
	State      string   `json:"state"`
	Region     string   `json:"region"`
	TypeOfFood []string `json:"type_of_food"`
	Rating     string   `json:"rating,omitempty"`
}

func summarize(matches []models.Match) []matchSummary {
	out := make([]matchSummary, 0, len(matches))
	for _, m := range matches {
		r := m.Restaurant
		out = append(out, matchSummary{
			ID:         m.ID,
			Score:      m.Score,
			Name:       r.Name,
			Address:    r.Address,
			Town:       r.Town,
			State:      r.State,
			Region:     r.Region,
			TypeOfFood: r.TypeOfFood,
			Rating:     r.RatingLabel(),
		})
	}
	return out
}

// FindHalalFood handles the find_halal_food tool
func (h *Handlers) FindHalalFood(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.shutdownWg.Add(1)
	defer h.shutdownWg.Done()

	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	history, err := parseHistory(request.GetString("history", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	history = append(history, models.Message{Role: models.RoleUser, Content: query})

	stream, err := h.pipeline.Run(ctx, history)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	answer, err := stream.Collect()
	if err != nil {
		log.Printf("Warning: find_halal_food aborted after %d bytes: %v", len(answer), err)
		return mcp.NewToolResultError(fmt.Sprintf("answer interrupted: %v", err)), nil
	}

	response := map[string]interface{}{
		"answer":  answer,
		"matches": summarize(stream.Matches()),
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// SearchRestaurants handles the search_halal_restaurants tool
func (h *Handlers) SearchRestaurants(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.shutdownWg.Add(1)
	defer h.shutdownWg.Done()

	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}

	history := []models.Message{{Role: models.RoleUser, Content: query}}
	retrieval, err := h.pipeline.Retriever().Retrieve(ctx, history)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	response := map[string]interface{}{
		"query":   retrieval.Query,
		"matches": summarize(retrieval.Matches),
		"context": retrieval.Context,
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}

	return mcp.NewToolResultText(string(responseJSON)), nil
}

// Shutdown waits for in-flight tool calls to complete
func (h *Handlers) Shutdown() {
	log.Println("Waiting for in-flight tool calls to complete...")
	h.shutdownWg.Wait()
	log.Println("All tool calls completed")
}

// parseHistory decodes the optional history argument
func parseHistory(raw string) ([]models.Message, error) {
	if raw == "" {
		return nil, nil
	}
	var history []models.Message
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, fmt.Errorf("history must be a JSON array of {role, content} messages: %w", err)
	}
	return history, nil
}
