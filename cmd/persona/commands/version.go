// ABOUTME: Version command to display build information
// ABOUTME: Prints build info plus the ledger schema version the binary writes
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/persona/internal/storage/sqlite"
)

var versionInfo = VersionInfo{
	Version: "dev",
	Commit:  "none",
	Date:    "unknown",
}

// VersionInfo contains build information
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Schema  int    `json:"schema" yaml:"schema"`
}

var versionShort bool

// SetVersion sets the version information (called from main)
func SetVersion(version, commit, date string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.Date = date
}

// NewVersionCmd creates the version command
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, build date, and ledger schema version for the persona CLI.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo
			info.Schema = sqlite.SchemaVersion

			if versionShort {
				fmt.Fprintln(cmd.OutOrStdout(), info.Version)
				return nil
			}
			if handled, err := writeStructured(cmd, info); handled {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "persona %s\n", info.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", info.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Built:  %s\n", info.Date)
			fmt.Fprintf(cmd.OutOrStdout(), "Schema: v%d\n", info.Schema)
			return nil
		},
	}

	cmd.Flags().BoolVar(&versionShort, "short", false, "Print only the version number")

	return cmd
}
