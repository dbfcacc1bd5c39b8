package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load builds the effective configuration from viper on top of defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()

	setDefaults(v, cfg)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("snapshot.root", cfg.Snapshot.Root)
	v.SetDefault("snapshot.output_dir", cfg.Snapshot.OutputDir)
	v.SetDefault("snapshot.command_timeout", cfg.Snapshot.CommandTimeout)
	v.SetDefault("snapshot.safe_paths", cfg.Snapshot.SafePaths)
	v.SetDefault("snapshot.exclude_names", cfg.Snapshot.ExcludeNames)
	v.SetDefault("snapshot.list_depth", cfg.Snapshot.ListDepth)
	v.SetDefault("history.enabled", cfg.History.Enabled)
	v.SetDefault("history.path", cfg.History.Path)
	v.SetDefault("serve.host", cfg.Serve.Host)
	v.SetDefault("serve.port", cfg.Serve.Port)
	v.SetDefault("serve.enable_cors", cfg.Serve.EnableCORS)
	v.SetDefault("serve.cors_origins", cfg.Serve.CORSOrigins)
}

// WriteExample writes the default configuration as YAML to path.
// It refuses to overwrite an existing file.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return err
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	header := []byte("# opsnap configuration. All values shown are defaults.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
