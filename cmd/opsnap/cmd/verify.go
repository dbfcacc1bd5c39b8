package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digitalnavigator-80/opsnap/internal/snapshot"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <archive>",
	Short: "Verify the integrity of a snapshot archive",
	Long: `Verify checks a snapshot archive against its embedded manifest:
every listed file must be present with a matching size and SHA-256,
no unlisted files may appear, and entry paths must stay inside the
snapshot directory.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	manifest, err := snapshot.VerifyArchive(args[0])
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %s (%d files, captured %s)\n",
			manifest.SnapshotID, len(manifest.Files),
			manifest.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		for _, w := range manifest.Warnings {
			fmt.Fprintln(cmd.OutOrStdout(), "  recorded warning:", w)
		}
	}
	return nil
}
