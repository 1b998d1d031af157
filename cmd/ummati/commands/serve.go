// ABOUTME: Serve command runs the chat HTTP API
// ABOUTME: Shuts down gracefully on interrupt or SIGTERM
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ummati/ummati/internal/server"
)

var serveAddr string

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat HTTP server",
		Long: `Start the chat HTTP server.

POST /api/chat accepts a JSON array of {role, content} messages and
streams the answer as chunked text. Send "Accept: text/event-stream"
to receive server-sent events instead. The X-Stream-Status trailer
reports whether a plain-text stream closed cleanly or errored.

Examples:
  ummati serve
  ummati serve --addr 127.0.0.1:3000`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from UMMATI_ADDR or :8080)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, idx, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := idx.Close(); err != nil {
			log.Printf("Warning: Error closing index: %v", err)
		}
	}()

	if err := server.NewServer(pipeline, cfg.Addr).Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	if !quiet {
		log.Println("Shutdown complete")
	}
	return nil
}
