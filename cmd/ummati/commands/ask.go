// ABOUTME: Ask command streams one answer to stdout
// ABOUTME: Prints fragments as they arrive and optionally the matches used
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ummati/ummati/internal/models"
)

var askShowMatches bool

// NewAskCmd creates the ask command
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Ask for halal food recommendations",
		Long: `Ask for halal food recommendations.

Embeds the query, retrieves the 5 closest restaurants and streams the
model's answer to stdout as it is generated.

Examples:
  ummati ask "spicy chicken in Chicago"
  ummati ask --matches "biryani near Houston"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}

	cmd.Flags().BoolVar(&askShowMatches, "matches", false, "Print the retrieved restaurants after the answer")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
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

	query := strings.Join(args, " ")
	stream, err := pipeline.Run(ctx, []models.Message{{Role: models.RoleUser, Content: query}})
	if err != nil {
		return err
	}
	defer stream.Close()

	out := cmd.OutOrStdout()
	for chunk := range stream.Chunks() {
		fmt.Fprint(out, chunk.Text)
	}
	fmt.Fprintln(out)

	if err := stream.Err(); err != nil {
		return fmt.Errorf("answer interrupted: %w", err)
	}

	if askShowMatches {
		fmt.Fprintln(out)
		return printMatches(out, stream.Matches(), len(stream.Matches()))
	}
	return nil
}
