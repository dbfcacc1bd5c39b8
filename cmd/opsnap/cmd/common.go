package cmd

import (
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/digitalnavigator-80/opsnap/internal/config"
	"github.com/digitalnavigator-80/opsnap/internal/logging"
)

// loadConfig builds the effective configuration from defaults, config file,
// environment, and flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if rootDir != "" {
		cfg.Snapshot.Root = rootDir
	}
	if outputDir != "" {
		cfg.Snapshot.OutputDir = outputDir
	}
	return cfg, nil
}

// buildLogger creates the application logger from configuration.
func buildLogger(cfg *config.Config) *logging.Logger {
	logCfg := logging.DefaultConfig()
	logCfg.Level = cfg.Log.Level
	logCfg.Format = cfg.Log.Format
	if quiet {
		logCfg.Level = "error"
	}
	return logging.New(logCfg)
}

// snapshotsDir resolves the snapshots output directory for cfg.
func snapshotsDir(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Snapshot.OutputDir) {
		return cfg.Snapshot.OutputDir
	}
	return filepath.Join(cfg.Snapshot.Root, cfg.Snapshot.OutputDir)
}

// historyPath resolves the run index database path for cfg.
func historyPath(cfg *config.Config) string {
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	return filepath.Join(snapshotsDir(cfg), "index.db")
}
