// ABOUTME: Root command and global flags for the ummati CLI
// ABOUTME: Registers every subcommand and enforces flag exclusivity
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
)

var outputFormats = []string{"auto", "table", "json"}

const banner = `
██╗   ██╗███╗   ███╗███╗   ███╗ █████╗ ████████╗██╗
██║   ██║████╗ ████║████╗ ████║██╔══██╗╚══██╔══╝██║
██║   ██║██╔████╔██║██╔████╔██║███████║   ██║   ██║
██║   ██║██║╚██╔╝██║██║╚██╔╝██║██╔══██║   ██║   ██║
╚██████╔╝██║ ╚═╝ ██║██║ ╚═╝ ██║██║  ██║   ██║   ██║
 ╚═════╝ ╚═╝     ╚═╝╚═╝     ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═╝`

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ummati",
		Short: "Find halal restaurants with retrieval-augmented chat",
		Long: banner + `

Ummati answers questions like "spicy chicken in Chicago" by searching a
vector index of halal restaurants and streaming an answer from the
language model grounded in the top 5 matches.

Configuration comes from the environment, ./.env and
$XDG_CONFIG_HOME/ummati/.env.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			if !containsString(outputFormats, outputFormat) {
				return fmt.Errorf("--format must be one of %v, got %q", outputFormats, outputFormat)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every pipeline stage")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table or json")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewAskCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewIndexCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
