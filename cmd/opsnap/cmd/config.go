package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/digitalnavigator-80/opsnap/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Writes .opsnap.yaml with all defaults spelled out, ready for editing.
Refuses to overwrite an existing file.`,
	RunE: runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	dir := rootDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, ".opsnap.yaml")

	if err := config.WriteExample(path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
	return nil
}
