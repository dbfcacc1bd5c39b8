package config

// Default returns the configuration used when the tool runs unconfigured.
// The zero-config defaults must produce a correct snapshot on their own.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Snapshot: SnapshotConfig{
			Root:           ".",
			OutputDir:      "snapshots",
			CommandTimeout: "30s",
			SafePaths:      DefaultSafePaths(),
			ExcludeNames:   DefaultExcludeNames(),
			ListDepth:      3,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Serve: ServeConfig{
			Host:        "localhost",
			Port:        8099,
			EnableCORS:  false,
			CORSOrigins: []string{},
		},
	}
}

// DefaultSafePaths is the ordered allow-list of project files considered free
// of secrets. Nothing outside this list is ever copied; environment files and
// generated artifacts stay out even if they exist.
func DefaultSafePaths() []string {
	return []string{
		"docker-compose.yml",
		"docker-compose.yaml",
		"Dockerfile",
		"README.md",
		"Makefile",
		"requirements.txt",
		"pyproject.toml",
		"go.mod",
		"go.sum",
		"package.json",
		"bot.py",
		"app",
		"src",
		"scripts",
		"deploy",
	}
}

// DefaultExcludeNames are entry names excluded from structure listings.
func DefaultExcludeNames() []string {
	return []string{
		".git",
		".venv",
		"venv",
		"node_modules",
		"backups",
		"snapshots",
		"__pycache__",
	}
}
