// ABOUTME: CLI command to show a client's current persona
// ABOUTME: Groups populated fields by category with confidence percentages
package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewSnapshotCmd creates the snapshot command
func NewSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <client-id>",
		Short: "Show a client's current persona",
		Long: `Show a client's current persona.

Fields are grouped by category in taxonomy order. Confidence is the
value that last changed the field, shown as a whole percentage.

Examples:
  persona snapshot c1
  persona snapshot c1 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: runSnapshot,
	}

	return cmd
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	snap, err := eng.store.GetSnapshot(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("getting snapshot: %w", err)
	}
	view := snap.View()

	if handled, err := writeStructured(cmd, view); handled {
		return err
	}

	if len(view.Categories) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No persona recorded for %s\n", args[0])
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CATEGORY\tFIELD\tVALUE\tCONF\tUPDATED\n")
	fmt.Fprintf(w, "--------\t-----\t-----\t----\t-------\n")
	for _, cat := range view.Categories {
		for _, f := range cat.Fields {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n",
				cat.Category,
				f.Field,
				truncate(formatValue(f.Value), 50),
				f.ConfidencePercent,
				formatTime(f.UpdatedAt))
		}
	}
	return w.Flush()
}
