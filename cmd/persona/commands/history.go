// ABOUTME: CLI commands to read the delta ledger and list known clients
// ABOUTME: History is newest first; clients are those with a stored snapshot
package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/harper/persona/internal/core"
	"github.com/harper/persona/internal/models"
)

var (
	historyLimit   int
	historySession string
)

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <client-id>",
		Short: "Show a client's field changes",
		Long: `Show a client's field changes, newest first.

Set fields show only the items each change added.

Examples:
  persona history c1
  persona history c1 --limit 0
  persona history c1 --session s_42 --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runHistory,
	}

	cmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of changes (0 for all)")
	cmd.Flags().StringVar(&historySession, "session", "", "Only show changes from this session")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := validateNonNegativeInt(historyLimit, "limit"); err != nil {
		return err
	}

	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	var deltas []models.FieldDelta
	if historySession != "" {
		all, err := eng.store.ListSessionDeltas(cmd.Context(), historySession)
		if err != nil {
			return fmt.Errorf("listing session history: %w", err)
		}
		for _, d := range all {
			if d.ClientID == args[0] {
				deltas = append(deltas, d)
			}
		}
	} else {
		deltas, err = eng.store.ListDeltas(cmd.Context(), args[0], historyLimit)
		if err != nil {
			return fmt.Errorf("listing history: %w", err)
		}
	}
	if deltas == nil {
		deltas = []models.FieldDelta{}
	}

	if handled, err := writeStructured(cmd, deltas); handled {
		return err
	}

	if len(deltas) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No changes recorded\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "WHEN\tFIELD\tCHANGE\tCONF\tSESSION\n")
	fmt.Fprintf(w, "----\t-----\t------\t----\t-------\n")
	for _, d := range deltas {
		session := d.SourceSessionID
		if session == "" {
			session = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d%%\t%s\n",
			d.CreatedAt.Format("2006-01-02 15:04"),
			d.Field,
			truncate(describeChange(d), 50),
			models.ConfidencePercent(d.Confidence),
			session)
	}
	w.Flush()

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d change(s)\n", len(deltas))
	}
	return nil
}

// describeChange renders "old -> new" for scalars and "+item" for sets
func describeChange(d models.FieldDelta) string {
	if d.NewValue.Kind == models.KindSet {
		added := core.AddedItems(d)
		for i, item := range added {
			added[i] = "+" + item
		}
		return strings.Join(added, ", ")
	}
	if d.OldValue == nil {
		return d.NewValue.Text
	}
	return d.OldValue.Text + " -> " + d.NewValue.Text
}

// NewClientsCmd creates the clients command
func NewClientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clients",
		Short: "List clients with a persona",
		Long: `List every client that has a stored persona, with its change count.

Examples:
  persona clients
  persona clients --format json`,
		Args: cobra.NoArgs,
		RunE: runClients,
	}

	return cmd
}

type clientSummary struct {
	ClientID string `json:"client_id" yaml:"client_id"`
	Changes  int    `json:"changes" yaml:"changes"`
}

func runClients(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	ids, err := eng.store.ListClients(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing clients: %w", err)
	}

	summaries := make([]clientSummary, 0, len(ids))
	for _, id := range ids {
		n, err := eng.store.CountDeltas(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("counting changes for %s: %w", id, err)
		}
		summaries = append(summaries, clientSummary{ClientID: id, Changes: n})
	}

	if handled, err := writeStructured(cmd, summaries); handled {
		return err
	}

	if len(summaries) == 0 {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "No clients found\n")
		}
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CLIENT\tCHANGES\n")
	fmt.Fprintf(w, "------\t-------\n")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\n", s.ClientID, s.Changes)
	}
	return w.Flush()
}
