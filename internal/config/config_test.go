package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	d, err := cfg.Snapshot.CommandTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
	assert.Equal(t, 3, cfg.Snapshot.ListDepth)
	assert.Equal(t, "snapshots", cfg.Snapshot.OutputDir)
}

func TestDefaultSafePathsHoldNoSecrets(t *testing.T) {
	for _, p := range DefaultSafePaths() {
		assert.NotContains(t, p, ".env")
		assert.NotEqual(t, "backups", p)
		assert.NotEqual(t, "snapshots", p)
	}
}

func TestValidateRejectsBadTimeout(t *testing.T) {
	cfg := Default()
	cfg.Snapshot.CommandTimeout = "soon"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsAbsoluteSafePath(t *testing.T) {
	cfg := Default()
	cfg.Snapshot.SafePaths = append(cfg.Snapshot.SafePaths, "/etc/passwd")
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEscapingSafePath(t *testing.T) {
	cfg := Default()
	cfg.Snapshot.SafePaths = []string{"../outside"}
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadDepth(t *testing.T) {
	cfg := Default()
	cfg.Snapshot.ListDepth = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsBadLogFormat(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestLoadAppliesOverrides(t *testing.T) {
	v := viper.New()
	v.Set("snapshot.list_depth", 5)
	v.Set("snapshot.safe_paths", []string{"README.md"})

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Snapshot.ListDepth)
	assert.Equal(t, []string{"README.md"}, cfg.Snapshot.SafePaths)
	// untouched sections keep defaults
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRejectsInvalidOverride(t *testing.T) {
	v := viper.New()
	v.Set("snapshot.command_timeout", "not-a-duration")

	_, err := Load(v)
	assert.Error(t, err)
}

func TestWriteExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".opsnap.yaml")
	require.NoError(t, WriteExample(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cfg Config
	require.NoError(t, yaml.Unmarshal(data, &cfg))
	assert.Equal(t, "snapshots", cfg.Snapshot.OutputDir)

	// never overwrites
	assert.Error(t, WriteExample(path))
}
