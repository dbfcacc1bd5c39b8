package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Serve    ServeConfig    `mapstructure:"serve" yaml:"serve"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SnapshotConfig configures the snapshot pipeline.
type SnapshotConfig struct {
	// Root is the project directory being snapshotted.
	Root string `mapstructure:"root" yaml:"root"`
	// OutputDir receives snapshot directories and archives, relative to Root
	// unless absolute.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	// CommandTimeout bounds every external command invocation.
	CommandTimeout string `mapstructure:"command_timeout" yaml:"command_timeout"`
	// SafePaths is the ordered allow-list of relative paths eligible for
	// copying. Nothing outside this list is ever read.
	SafePaths []string `mapstructure:"safe_paths" yaml:"safe_paths"`
	// ExcludeNames are directory/file names excluded from structure listings.
	ExcludeNames []string `mapstructure:"exclude_names" yaml:"exclude_names"`
	// ListDepth bounds the plain directory listing.
	ListDepth int `mapstructure:"list_depth" yaml:"list_depth"`
}

// HistoryConfig configures the local run index.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ServeConfig configures the snapshot browsing server.
type ServeConfig struct {
	Host        string   `mapstructure:"host" yaml:"host"`
	Port        int      `mapstructure:"port" yaml:"port"`
	EnableCORS  bool     `mapstructure:"enable_cors" yaml:"enable_cors"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// CommandTimeoutDuration parses the configured command timeout.
func (c SnapshotConfig) CommandTimeoutDuration() (time.Duration, error) {
	return time.ParseDuration(c.CommandTimeout)
}

// Validate checks configuration consistency.
func (c *Config) Validate() error {
	if _, err := c.Snapshot.CommandTimeoutDuration(); err != nil {
		return fmt.Errorf("snapshot.command_timeout: %w", err)
	}
	if c.Snapshot.ListDepth < 1 {
		return fmt.Errorf("snapshot.list_depth must be at least 1, got %d", c.Snapshot.ListDepth)
	}
	for _, p := range c.Snapshot.SafePaths {
		if filepath.IsAbs(p) {
			return fmt.Errorf("snapshot.safe_paths entry %q must be relative", p)
		}
		clean := filepath.ToSlash(filepath.Clean(p))
		if clean == ".." || len(clean) >= 3 && clean[:3] == "../" {
			return fmt.Errorf("snapshot.safe_paths entry %q escapes the project root", p)
		}
	}
	if c.Serve.Port < 0 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve.port out of range: %d", c.Serve.Port)
	}
	switch c.Log.Format {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("log.format must be auto, text, or json, got %q", c.Log.Format)
	}
	return nil
}
