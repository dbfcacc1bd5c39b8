package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/digitalnavigator-80/opsnap/internal/history"
	"github.com/digitalnavigator-80/opsnap/internal/logging"
	"github.com/digitalnavigator-80/opsnap/internal/snapshot"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture a snapshot of the project directory",
	Long: `Capture collects host, container, and version control facts, copies
the allow-listed project files, and bundles everything into a tar.gz
archive next to the snapshot directory.

Individual collection failures are logged and skipped; only failure to
create the snapshot directory or to write the archive aborts the run.`,
	RunE: runSnapshot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	pipeline := snapshot.NewPipeline(&cfg.Snapshot, logger.Logger,
		snapshot.WithVersion(appVersion),
	)

	res, err := pipeline.Run(cmd.Context())
	if err != nil {
		return err
	}

	if cfg.History.Enabled {
		recordRun(cmd, logger, historyPath(cfg), res)
	}

	if !quiet {
		for _, w := range res.Warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Dir)
	fmt.Fprintln(cmd.OutOrStdout(), res.ArchivePath)
	return nil
}

// recordRun indexes the result; an unusable index never fails the run.
func recordRun(cmd *cobra.Command, logger *logging.Logger, dbPath string, res *snapshot.Result) {
	idx, err := history.Open(dbPath)
	if err != nil {
		logger.Warn("run index unavailable", "path", dbPath, "error", err)
		return
	}
	defer idx.Close()

	if err := idx.Record(cmd.Context(), res); err != nil {
		logger.Warn("run not indexed", "snapshot_id", res.ID, "error", err)
	}
}
