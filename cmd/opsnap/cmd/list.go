package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/digitalnavigator-80/opsnap/internal/history"
)

var (
	listLimit int
	listJSON  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List captured snapshots",
	Long: `List shows snapshots recorded in the local run index, newest first.
Snapshots captured with history disabled do not appear here; inspect
the output directory instead.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 20, "maximum number of runs to show (0 for all)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dbPath := historyPath(cfg)
	if _, err := os.Stat(dbPath); err != nil {
		fmt.Fprintln(cmd.OutOrStdout(), "no snapshots recorded")
		return nil
	}

	idx, err := history.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening run index: %w", err)
	}
	defer idx.Close()

	records, err := idx.List(cmd.Context(), listLimit)
	if err != nil {
		return err
	}

	if listJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no snapshots recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SNAPSHOT\tFACTS\tCOPIED\tWARN\tDURATION\tARCHIVE")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.FactFiles, r.CopiedPaths, len(r.Warnings),
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
			r.ArchivePath)
	}
	return w.Flush()
}
