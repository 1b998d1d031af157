// ABOUTME: CLI command to search the restaurant index
// ABOUTME: Runs embedding and retrieval only, without a completion
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ummati/ummati/internal/models"
)

var (
	searchLimit int
)

// NewSearchCmd creates search command
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the restaurant index",
		Long: `Search the restaurant index.

Runs the semantic retrieval step on its own: the query is embedded and
the 5 nearest restaurants are printed, without asking the model.

Examples:
  ummati search "kebab in Dearborn"
  ummati search --limit 3 "halal pizza"
  ummati search --format json "shawarma"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 5, "Maximum results to print")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Validate limit flag
	if err := validatePositiveInt(searchLimit, "limit"); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
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
	retrieval, err := pipeline.Retriever().Retrieve(ctx, []models.Message{{Role: models.RoleUser, Content: query}})
	if err != nil {
		return fmt.Errorf("searching restaurants: %w", err)
	}

	if len(retrieval.Matches) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No restaurants found for query: %s\n", query)
		}
		return nil
	}

	if err := printMatches(cmd.OutOrStdout(), retrieval.Matches, searchLimit); err != nil {
		return err
	}
	if !quiet && outputFormat != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(retrieval.Matches))
	}
	return nil
}

// printMatches writes up to limit matches as a table or JSON
func printMatches(out io.Writer, matches []models.Match, limit int) error {
	if len(matches) > limit {
		matches = matches[:limit]
	}

	if outputFormat == "json" {
		jsonData, err := json.MarshalIndent(matches, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		fmt.Fprintf(out, "%s\n", jsonData)
		return nil
	}

	// Table format
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCORE\tRESTAURANT\tTOWN\tFOOD\tRATING\n")
	fmt.Fprintf(w, "-----\t----------\t----\t----\t------\n")

	for _, m := range matches {
		r := m.Restaurant
		town := r.Town
		if r.State != "" {
			town += ", " + r.State
		}
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\t%s\n",
			m.Score,
			truncate(r.Name, 30),
			truncate(town, 24),
			truncate(strings.Join(r.TypeOfFood, ", "), 30),
			r.RatingLabel())
	}
	return w.Flush()
}
