// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Lets LLM agents search for halal food via stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/ummati/ummati/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs ummati as an MCP (Model Context Protocol) server over stdio,
giving LLM agents two tools: find_halal_food for a full answer and
search_halal_restaurants for the raw matches.

Configure it in your agent's MCP config file to enable the tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically launched by the agent)
  ummati mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "ummati": {
  #       "command": "ummati",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, idx, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	server := mcpserver.NewMCPServer(
		"ummati halal food finder",
		versionInfo.Version,
	)
	handlers := mcp.RegisterTools(server, pipeline)

	if !quiet {
		log.Println("ummati MCP server starting on stdio...")
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, gracefully shutting down...")
		}
		handlers.Shutdown()

	case err = <-serverErr:
	}

	if cerr := idx.Close(); cerr != nil {
		log.Printf("Warning: Error closing index: %v", cerr)
	}
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	if !quiet {
		log.Println("Shutdown complete")
	}
	return nil
}
