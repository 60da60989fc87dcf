// ABOUTME: CLI command to export a client's persona, history, and insights
// ABOUTME: Writes YAML, JSON, or Markdown to a file or stdout
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/persona/internal/storage/sqlite"
)

var (
	exportOutput string
	exportFormat string
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <client-id>",
		Short: "Export a client's persona and history",
		Long: `Export a client's persona, full change history, and session insights.

Examples:
  persona export c1
  persona export c1 --as json --output c1.json
  persona export c1 --as markdown --output c1.md`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}

	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVar(&exportFormat, "as", "yaml", "Export format: yaml, json, markdown")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	if exportOutput != "" {
		if err := eng.store.ExportToFile(cmd.Context(), args[0], exportOutput, exportFormat); err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", args[0], exportOutput)
		}
		return nil
	}

	data, err := eng.store.Export(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	return sqlite.WriteExport(cmd.OutOrStdout(), data, exportFormat)
}
