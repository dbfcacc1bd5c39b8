package cmd

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check external tools used during capture",
	Long: `Doctor reports which external tools a snapshot run would find. Only
git is required for complete version control facts; everything else
degrades gracefully when missing.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	checks := []struct {
		name     string
		required bool
		note     string
	}{
		{"git", true, "version control facts"},
		{"docker", false, "container facts skipped when missing"},
		{"tree", false, "falls back to a plain listing"},
		{"find", false, "falls back to a built-in walk"},
		{"uname", false, "kernel line omitted when missing"},
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Checking capture tools...")
	fmt.Fprintln(cmd.OutOrStdout())

	requiredOk := true
	for _, check := range checks {
		_, err := exec.LookPath(check.name)
		icon := "✓"
		suffix := ""
		if err != nil {
			if check.required {
				icon = "✗"
				requiredOk = false
			} else {
				icon = "○"
				suffix = " (optional: " + check.note + ")"
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s %s%s\n", icon, check.name, suffix)
	}

	fmt.Fprintln(cmd.OutOrStdout())
	if !requiredOk {
		fmt.Fprintln(cmd.OutOrStdout(), "Some required tools are missing")
		return fmt.Errorf("dependency check failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All required tools available")
	return nil
}
