// ABOUTME: Root command for the persona CLI with global flags
// ABOUTME: Loads .env, builds the zap logger, and registers every subcommand
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harper/persona/internal/logging"
)

var (
	verbose      bool
	quiet        bool
	outputFormat string
	dbPath       string

	logger = zap.NewNop()
)

const banner = `
██████╗ ███████╗██████╗ ███████╗ ██████╗ ███╗   ██╗ █████╗
██╔══██╗██╔════╝██╔══██╗██╔════╝██╔═══██╗████╗  ██║██╔══██╗
██████╔╝█████╗  ██████╔╝███████╗██║   ██║██╔██╗ ██║███████║
██╔═══╝ ██╔══╝  ██╔══██╗╚════██║██║   ██║██║╚██╗██║██╔══██║
██║     ███████╗██║  ██║███████║╚██████╔╝██║ ╚████║██║  ██║
╚═╝     ╚══════╝╚═╝  ╚═╝╚══════╝ ╚═════╝ ╚═╝  ╚═══╝╚═╝  ╚═╝`

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Evolving client personas from coaching sessions",
		Long: banner + `

Persona keeps an append-only history of every change to a client's
profile and a materialised snapshot of its current state.

Session analyses arrive as extraction batches. Scalar fields change only
on strictly higher confidence; set fields grow by union. Finished sessions
are resolved into insight records from real-time analysis, synthesis text,
and neutral defaults, in that order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return fmt.Errorf("--verbose and --quiet are mutually exclusive")
			}
			switch outputFormat {
			case "auto", "table", "json", "yaml":
			default:
				return fmt.Errorf("unknown --format %q (use auto, table, json, or yaml)", outputFormat)
			}

			// Load .env if present (for API keys and PERSONA_* settings)
			_ = godotenv.Load()

			l, err := logging.New(verbose, quiet)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
	cmd.PersistentFlags().StringVar(&outputFormat, "format", "auto", "Output format: auto, table, json, yaml")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default $PERSONA_DB_PATH or the XDG data dir)")

	cmd.AddCommand(
		NewIngestCmd(),
		NewSnapshotCmd(),
		NewHistoryCmd(),
		NewTimelineCmd(),
		NewClientsCmd(),
		NewRebuildCmd(),
		NewVerifyCmd(),
		NewResolveCmd(),
		NewProcessCmd(),
		NewExportCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
