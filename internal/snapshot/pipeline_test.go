package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalnavigator-80/opsnap/internal/config"
	"github.com/digitalnavigator-80/opsnap/internal/testutil"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func pipelineConfig(root string) *config.SnapshotConfig {
	cfg := config.Default().Snapshot
	cfg.Root = root
	return &cfg
}

func TestPipelineRunProducesBothArtifacts(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "docker-compose.yml", "services: {}\n")
	writeProjectFile(t, root, "README.md", "# demo\n")
	writeProjectFile(t, root, ".env", "BOT_TOKEN=not-for-sharing\n")

	runner := testutil.NewFakeRunner().
		Script("uname -a", "Linux deploy 6.8.0 x86_64").
		Script("git rev-parse HEAD", "4f2a9c1").
		Script("git status --porcelain", "").
		Script("git remote -v", "origin git@example.com:demo/demo.git (fetch)")

	at := time.Date(2024, 3, 7, 14, 30, 9, 0, time.UTC)
	p := NewPipeline(pipelineConfig(root), nil,
		WithClock(fixedClock(at)),
		WithRunner(runner),
		WithVersion("test"),
	)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2024-03-07T14-30-09Z", res.ID)
	assert.Equal(t, filepath.Join(root, "snapshots", res.ID), res.Dir)
	assert.Equal(t, filepath.Join(root, "snapshots", res.ID+".tar.gz"), res.ArchivePath)
	assert.NotEmpty(t, res.RunID)

	// fact files from every collector that had something to say
	for _, name := range []string{"system.txt", "git-head.txt", "git-status-porcelain.txt", "git-remotes.txt", "find.txt", ManifestName} {
		assert.FileExists(t, filepath.Join(res.Dir, name), name)
	}

	// copied safe paths
	assert.Contains(t, res.CopiedPaths, "docker-compose.yml")
	assert.Contains(t, res.CopiedPaths, "README.md")
	assert.FileExists(t, filepath.Join(res.Dir, "README.md"))
}

func TestPipelineDockerAbsentProducesNoContainerFacts(t *testing.T) {
	root := t.TempDir()

	p := NewPipeline(pipelineConfig(root), nil,
		WithRunner(testutil.NewFakeRunner()),
	)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	for _, name := range []string{"docker-version.txt", "docker-compose-version.txt", "docker-ps-a.txt", "docker-images.txt"} {
		assert.NoFileExists(t, filepath.Join(res.Dir, name), name)
	}
	// the run still completes with a verifiable archive
	assert.FileExists(t, res.ArchivePath)
}

func TestPipelineNeverCapturesSecrets(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, ".env", "SECRET=very\n")
	writeProjectFile(t, root, "server.pem", "-----BEGIN CERTIFICATE-----\n")
	writeProjectFile(t, root, "README.md", "# demo\n")

	cfg := pipelineConfig(root)
	// even an operator mistake in the allow-list must not leak them
	cfg.SafePaths = append(cfg.SafePaths, ".env", "server.pem")

	p := NewPipeline(cfg, nil, WithRunner(testutil.NewFakeRunner()))

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(res.Dir, ".env"))
	assert.NoFileExists(t, filepath.Join(res.Dir, "server.pem"))

	extracted := t.TempDir()
	extractArchive(t, res.ArchivePath, extracted)
	require.NoError(t, filepath.WalkDir(extracted, func(path string, _ os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		assert.False(t, strings.HasSuffix(path, ".env"), "archive leaks %s", path)
		assert.False(t, strings.HasSuffix(path, ".pem"), "archive leaks %s", path)
		return nil
	}))
}

func TestPipelineRenamedOutputDirNeverEntersSnapshot(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "README.md", "# demo\n")

	cfg := pipelineConfig(root)
	cfg.OutputDir = "out"
	// a renamed output directory escapes the name-based deny filter, so an
	// allow-list mentioning it must still be refused by the path check
	cfg.SafePaths = append(cfg.SafePaths, "out")

	p := NewPipeline(cfg, nil, WithRunner(testutil.NewFakeRunner()))

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, res.CopiedPaths, "out")
	_, statErr := os.Stat(filepath.Join(res.Dir, "out"))
	assert.True(t, os.IsNotExist(statErr), "snapshot must not contain the output directory")
}

func TestPipelineGitFactsAlwaysPresent(t *testing.T) {
	root := t.TempDir()

	// no git binary at all
	p := NewPipeline(pipelineConfig(root), nil, WithRunner(testutil.NewFakeRunner()))

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	for _, name := range []string{"git-head.txt", "git-status-porcelain.txt", "git-remotes.txt"} {
		data, err := os.ReadFile(filepath.Join(res.Dir, name))
		require.NoError(t, err, name)
		assert.Empty(t, data, name)
	}
}

func TestPipelineArchiveVerifies(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "README.md", "# demo\n")

	p := NewPipeline(pipelineConfig(root), nil,
		WithRunner(testutil.NewFakeRunner()),
		WithVersion("test"),
	)

	res, err := p.Run(context.Background())
	require.NoError(t, err)

	m, err := VerifyArchive(res.ArchivePath)
	require.NoError(t, err)
	assert.Equal(t, res.ID, m.SnapshotID)
	assert.Equal(t, res.RunID, m.RunID)
}

func TestPipelineOutputDirCreationIsFatal(t *testing.T) {
	root := t.TempDir()
	// a regular file where the output directory should go
	require.NoError(t, os.WriteFile(filepath.Join(root, "snapshots"), []byte("x"), 0o644))

	p := NewPipeline(pipelineConfig(root), nil, WithRunner(testutil.NewFakeRunner()))

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
}

func TestPipelineArchiveFailureIsFatal(t *testing.T) {
	root := t.TempDir()
	at := time.Date(2024, 3, 7, 14, 30, 9, 0, time.UTC)

	// a directory squatting on the archive path makes the final write fail
	require.NoError(t, os.MkdirAll(filepath.Join(root, "snapshots", NewID(at)+".tar.gz"), 0o750))

	p := NewPipeline(pipelineConfig(root), nil,
		WithClock(fixedClock(at)),
		WithRunner(testutil.NewFakeRunner()),
	)

	res, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writing archive")
	require.NotNil(t, res)
	assert.Empty(t, res.ArchivePath)
}

func TestPipelineAbsoluteOutputDir(t *testing.T) {
	root := t.TempDir()
	out := t.TempDir()

	cfg := pipelineConfig(root)
	cfg.OutputDir = out

	p := NewPipeline(cfg, nil, WithRunner(testutil.NewFakeRunner()))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Dir, out))
	assert.True(t, strings.HasPrefix(res.ArchivePath, out))
}
