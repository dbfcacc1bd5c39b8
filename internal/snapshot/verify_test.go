package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digitalnavigator-80/opsnap/internal/fsutil"
)

func buildVerifiableArchive(t *testing.T, id string) (archivePath string) {
	t.Helper()

	dir := filepath.Join(t.TempDir(), id)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	writeProjectFile(t, dir, "system.txt", "hostname: deploy\n")
	writeProjectFile(t, dir, "git-head.txt", "4f2a9c1\n")

	manifest, err := BuildManifest(dir, id, "test", nil)
	require.NoError(t, err)
	data, err := manifest.Encode()
	require.NoError(t, err)
	require.NoError(t, fsutil.WriteFileAtomic(filepath.Join(dir, ManifestName), data, 0o644))

	archivePath = filepath.Join(t.TempDir(), id+".tar.gz")
	require.NoError(t, Archive(dir, archivePath, id))
	return archivePath
}

func TestBuildManifestHashesAllFiles(t *testing.T) {
	dir := t.TempDir()
	writeProjectFile(t, dir, "system.txt", "a\n")
	writeProjectFile(t, dir, "app/main.py", "b\n")

	m, err := BuildManifest(dir, "id", "v1", []string{"copy: oops"})
	require.NoError(t, err)

	require.Len(t, m.Files, 2)
	// sorted by path
	assert.Equal(t, "app/main.py", m.Files[0].Path)
	assert.Equal(t, "system.txt", m.Files[1].Path)
	assert.Len(t, m.Files[0].SHA256, 64)
	assert.Equal(t, int64(2), m.Files[0].Size)
	assert.NotEmpty(t, m.RunID)
	assert.Equal(t, []string{"copy: oops"}, m.Warnings)
}

func TestManifestEncodeDecodeRoundTrip(t *testing.T) {
	m := &Manifest{Version: FormatVersion, SnapshotID: "id", RunID: "r"}
	data, err := m.Encode()
	require.NoError(t, err)

	decoded, err := DecodeManifest(data)
	require.NoError(t, err)
	assert.Equal(t, "id", decoded.SnapshotID)
}

func TestDecodeManifestRejectsUnknownVersion(t *testing.T) {
	_, err := DecodeManifest([]byte(`{"version": 99}`))
	assert.Error(t, err)
}

func TestVerifyArchiveAccepted(t *testing.T) {
	id := "2024-03-07T14-30-09Z"
	archivePath := buildVerifiableArchive(t, id)

	m, err := VerifyArchive(archivePath)
	require.NoError(t, err)
	assert.Equal(t, id, m.SnapshotID)
	assert.Len(t, m.Files, 2)
}

func TestVerifyArchiveDetectsTampering(t *testing.T) {
	id := "2024-03-07T14-30-09Z"

	dir := filepath.Join(t.TempDir(), id)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	writeProjectFile(t, dir, "system.txt", "hostname: deploy\n")

	manifest, err := BuildManifest(dir, id, "test", nil)
	require.NoError(t, err)
	data, err := manifest.Encode()
	require.NoError(t, err)
	require.NoError(t, fsutil.WriteFileAtomic(filepath.Join(dir, ManifestName), data, 0o644))

	// tamper after the manifest was sealed, keeping the size intact
	writeProjectFile(t, dir, "system.txt", "hostname: dEploy\n")

	archivePath := filepath.Join(t.TempDir(), id+".tar.gz")
	require.NoError(t, Archive(dir, archivePath, id))

	_, err = VerifyArchive(archivePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}

func TestVerifyArchiveDetectsUnlistedEntry(t *testing.T) {
	id := "2024-03-07T14-30-09Z"

	dir := filepath.Join(t.TempDir(), id)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	writeProjectFile(t, dir, "system.txt", "ok\n")

	manifest, err := BuildManifest(dir, id, "test", nil)
	require.NoError(t, err)
	data, err := manifest.Encode()
	require.NoError(t, err)
	require.NoError(t, fsutil.WriteFileAtomic(filepath.Join(dir, ManifestName), data, 0o644))

	// sneak in a file the manifest does not know about
	writeProjectFile(t, dir, "extra.txt", "surprise\n")

	archivePath := filepath.Join(t.TempDir(), id+".tar.gz")
	require.NoError(t, Archive(dir, archivePath, id))

	_, err = VerifyArchive(archivePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not listed in manifest")
}

func TestVerifyArchiveMissingManifest(t *testing.T) {
	id := "2024-03-07T14-30-09Z"
	dir := filepath.Join(t.TempDir(), id)
	require.NoError(t, os.MkdirAll(dir, 0o750))
	writeProjectFile(t, dir, "system.txt", "ok\n")

	archivePath := filepath.Join(t.TempDir(), id+".tar.gz")
	require.NoError(t, Archive(dir, archivePath, id))

	_, err := VerifyArchive(archivePath)
	assert.Error(t, err)
}

func TestVerifyArchiveNotAnArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("not gzip"), 0o644))

	_, err := VerifyArchive(path)
	assert.Error(t, err)
}
