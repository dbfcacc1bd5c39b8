package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractArchive(t *testing.T, archivePath, destDir string) {
	t.Helper()

	f, err := os.Open(archivePath)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		require.False(t, filepath.IsAbs(header.Name))
		require.False(t, strings.Contains(header.Name, ".."))

		target := filepath.Join(destDir, filepath.FromSlash(header.Name))
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))

		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(header.Mode))
		require.NoError(t, err)
		_, err = io.Copy(out, tr)
		require.NoError(t, err)
		require.NoError(t, out.Close())
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "system.txt", "hostname: deploy\n")
	writeProjectFile(t, dir, "app/main.py", "print('hi')\n")

	out := filepath.Join(t.TempDir(), "2024-03-07T14-30-09Z.tar.gz")
	require.NoError(t, Archive(dir, out, "2024-03-07T14-30-09Z"))

	dest := t.TempDir()
	extractArchive(t, out, dest)

	data, err := os.ReadFile(filepath.Join(dest, "2024-03-07T14-30-09Z", "system.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hostname: deploy\n", string(data))

	data, err = os.ReadFile(filepath.Join(dest, "2024-03-07T14-30-09Z", "app", "main.py"))
	require.NoError(t, err)
	assert.Equal(t, "print('hi')\n", string(data))
}

func TestArchiveEntriesRootedAtSnapshotID(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "find.txt", ".\n")

	out := filepath.Join(t.TempDir(), "snap.tar.gz")
	require.NoError(t, Archive(dir, out, "2024-01-01T00-00-00Z"))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	header, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00-00-00Z/find.txt", header.Name)
}

func TestArchiveMissingDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "snap.tar.gz")
	err := Archive(filepath.Join(t.TempDir(), "does-not-exist"), out, "x")
	assert.Error(t, err)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr), "failed archive must not leave a partial file")
}
