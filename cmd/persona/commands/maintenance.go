// ABOUTME: CLI commands to verify and rebuild snapshots from the ledger
// ABOUTME: verify reports drift without writing; rebuild replaces snapshot rows
package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	rebuildAll bool
	verifyAll  bool
)

// NewRebuildCmd creates the rebuild command
func NewRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild [client-id]",
		Short: "Rebuild snapshots by replaying the ledger",
		Long: `Rebuild snapshots by replaying the ledger.

The stored snapshot is replaced with the fold of every recorded change.
Writes for the client wait while the rebuild runs.

Examples:
  persona rebuild c1
  persona rebuild --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRebuild,
	}

	cmd.Flags().BoolVar(&rebuildAll, "all", false, "Rebuild every client")

	return cmd
}

func runRebuild(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	clients, err := targetClients(cmd, eng, args, rebuildAll)
	if err != nil {
		return err
	}

	for _, id := range clients {
		snap, err := eng.ingestor.Rebuild(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("rebuilding %s: %w", id, err)
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d field(s)\n", id, len(snap.Fields))
		}
	}
	return nil
}

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [client-id]",
		Short: "Check snapshots against the ledger",
		Long: `Check that each stored snapshot equals the fold of its ledger.

Exits with an error listing drifting fields when any snapshot differs.
Run 'persona rebuild' to repair.

Examples:
  persona verify c1
  persona verify --all`,
		Args: cobra.MaximumNArgs(1),
		RunE: runVerify,
	}

	cmd.Flags().BoolVar(&verifyAll, "all", false, "Verify every client")

	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	eng, err := openEngine()
	if err != nil {
		return err
	}
	defer eng.Close()

	clients, err := targetClients(cmd, eng, args, verifyAll)
	if err != nil {
		return err
	}

	var drifted []string
	for _, id := range clients {
		fields, err := eng.store.VerifySnapshot(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", id, err)
		}
		if len(fields) == 0 {
			if !quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", id)
			}
			continue
		}
		names := make([]string, len(fields))
		for i, f := range fields {
			names[i] = string(f)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: drift in %s\n", id, strings.Join(names, ", "))
		drifted = append(drifted, id)
	}

	if len(drifted) > 0 {
		return fmt.Errorf("%d client(s) drifted from the ledger: %s", len(drifted), strings.Join(drifted, ", "))
	}
	return nil
}

// targetClients resolves the single client argument or every known client
func targetClients(cmd *cobra.Command, eng *engine, args []string, all bool) ([]string, error) {
	switch {
	case all && len(args) > 0:
		return nil, fmt.Errorf("pass a client id or --all, not both")
	case all:
		ids, err := eng.store.ListClients(cmd.Context())
		if err != nil {
			return nil, fmt.Errorf("listing clients: %w", err)
		}
		return ids, nil
	case len(args) == 1:
		return args, nil
	default:
		return nil, fmt.Errorf("a client id or --all is required")
	}
}
