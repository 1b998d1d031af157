// ABOUTME: Index commands for the local, Charm-synced restaurant index
// ABOUTME: Provides load, count, sync, status and wipe
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ummati/ummati/internal/config"
	"github.com/ummati/ummati/internal/index"
	"github.com/ummati/ummati/internal/ingest"
)

// NewIndexCmd creates the index command group
func NewIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the local restaurant index",
		Long: `Manage the local restaurant index.

The local index keeps restaurant vectors in a Charm KV database, so it
syncs across devices linked to the same Charm account. Select it for
queries with INDEX_BACKEND=local. The hosted Pinecone index is
maintained outside this tool and is never written to.`,
	}

	cmd.AddCommand(newIndexLoadCmd())
	cmd.AddCommand(newIndexCountCmd())
	cmd.AddCommand(newIndexStatusCmd())
	cmd.AddCommand(newIndexSyncCmd())
	cmd.AddCommand(newIndexWipeCmd())

	return cmd
}

// openLocalIndex loads config and opens the local index
func openLocalIndex() (*config.Config, *index.LocalIndex, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	li, err := index.OpenLocal(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open local index: %w", err)
	}
	return cfg, li, nil
}

func closeIndex(li *index.LocalIndex) {
	if err := li.Close(); err != nil {
		log.Printf("Warning: Error closing index: %v", err)
	}
}

func newIndexLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <file>",
		Short: "Embed restaurants from a YAML or JSON file into the local index",
		Long: `Embed restaurants from a YAML or JSON file into the local index.

The file holds a list of restaurants, or a document with a top-level
"restaurants" key. Each entry has name, address, town, state, region,
typeOfFood (list) and rating (0-5). Records without an id get one
derived from name and address, so loading a file twice replaces
records instead of duplicating them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			restaurants, err := ingest.LoadFile(args[0])
			if err != nil {
				return err
			}

			cfg, li, err := openLocalIndex()
			if err != nil {
				return err
			}
			defer closeIndex(li)

			client, err := newOpenAIClient(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			result, err := ingest.NewIngester(client, li, verbose).Ingest(ctx, restaurants)
			if err != nil {
				return fmt.Errorf("ingest stopped after %d record(s): %w", result.Indexed, err)
			}

			for _, msg := range result.Errors {
				log.Printf("Warning: skipped %s", msg)
			}
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d restaurant(s) into namespace %s", result.Indexed, li.Namespace())
				if result.Skipped > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), ", skipped %d", result.Skipped)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
}

func newIndexCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Count restaurants in the local index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, li, err := openLocalIndex()
			if err != nil {
				return err
			}
			defer closeIndex(li)

			n, err := li.Count(context.Background())
			if err != nil {
				return err
			}
			if quiet {
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d restaurant(s) in namespace %s\n", n, li.Namespace())
			return nil
		},
	}
}

func newIndexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, li, err := openLocalIndex()
			if err != nil {
				return err
			}
			defer closeIndex(li)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", cfg.CharmDBName)
			fmt.Fprintf(out, "Namespace: %s\n", li.Namespace())
			fmt.Fprintf(out, "Auto sync: %v\n", cfg.AutoSync)

			id, err := li.AccountID()
			if err != nil {
				fmt.Fprintln(out, "Status: Not connected")
				return nil
			}
			fmt.Fprintln(out, "Status: Connected")
			fmt.Fprintf(out, "User ID: %s\n", id)
			if cfg.CharmHost != "" {
				fmt.Fprintf(out, "Host: %s\n", cfg.CharmHost)
			}
			return nil
		},
	}
}

func newIndexSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Force immediate sync with Charm cloud",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, li, err := openLocalIndex()
			if err != nil {
				return err
			}
			defer closeIndex(li)

			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Syncing...")
			}
			if err := li.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}
			if !quiet {
				fmt.Fprintln(cmd.OutOrStdout(), "Sync complete")
			}
			return nil
		},
	}
}

func newIndexWipeCmd() *cobra.Command {
	var confirm, all bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every restaurant in the namespace",
		Long: `Delete every restaurant in the configured namespace.

With --all the whole local Charm database is reset instead. Cloud data
remains intact and is re-synced on next access.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				fmt.Fprintln(cmd.OutOrStdout(), "This will delete indexed restaurants!")
				fmt.Fprintln(cmd.OutOrStdout(), "Run with --confirm to proceed")
				return nil
			}

			_, li, err := openLocalIndex()
			if err != nil {
				return err
			}
			defer closeIndex(li)

			if all {
				if err := li.Reset(); err != nil {
					return fmt.Errorf("failed to wipe data: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Local data wiped successfully")
				return nil
			}

			n, err := li.DeleteAll(context.Background())
			if err != nil {
				return fmt.Errorf("wipe stopped after %d record(s): %w", n, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d restaurant(s) from namespace %s\n", n, li.Namespace())
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the wipe operation")
	cmd.Flags().BoolVar(&all, "all", false, "Reset the whole local database")

	return cmd
}
