package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	quiet     bool
	rootDir   string
	outputDir string

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "opsnap",
	Short: "Secret-free diagnostic snapshots of a deployed project",
	Long: `opsnap captures the state of a deployed project directory into a
timestamped snapshot: host and container facts, version control state,
an allow-listed copy of configuration files, and a structure listing,
all bundled into a single tar.gz archive.

Secrets never enter a snapshot: only an explicit allow-list of paths is
copied, and environment files and key material are refused even when
listed. Running 'opsnap' without arguments captures a snapshot.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initConfig()
	},
	// Default to capturing a snapshot when no subcommand is provided
	RunE: runSnapshot,
}

// Execute runs the root command. Errors are printed here because the
// command tree silences cobra's own reporting; a failed capture must
// still say why before the process exits non-zero.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .opsnap.yaml in the project root)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-essential output")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "",
		"project directory to snapshot (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&outputDir, "output", "",
		"snapshots output directory (default: <root>/snapshots)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	// --root and --output are applied after loading so their empty defaults
	// do not shadow configured values
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".opsnap")
		viper.SetConfigType("yaml")
		if rootDir != "" {
			viper.AddConfigPath(rootDir)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/opsnap")
	}

	viper.SetEnvPrefix("OPSNAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}
	return nil
}
