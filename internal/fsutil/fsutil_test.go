package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "fact.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("content\n"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content\n", string(data))
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fact.txt")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o600))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestReadFileScoped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

	data, err := ReadFileScoped(path)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestCopyFilePreservesContentAndMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0o755))

	dst := filepath.Join(dir, "out", "dst.sh")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
}

func TestCopyDirRecursive(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "inner.txt"), []byte("inner"), 0o644))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dst, nil))

	data, err := os.ReadFile(filepath.Join(dst, "sub", "inner.txt"))
	require.NoError(t, err)
	assert.Equal(t, "inner", string(data))
}

func TestCopyDirSkip(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "secrets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "secrets", "key"), []byte("k"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "keep.txt"), []byte("ok"), 0o644))

	dst := filepath.Join(t.TempDir(), "copy")
	err := CopyDir(src, dst, func(rel string) bool {
		return rel == "secrets"
	})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dst, "secrets"))
	assert.True(t, os.IsNotExist(err))

	_, err = os.Stat(filepath.Join(dst, "keep.txt"))
	assert.NoError(t, err)
}
