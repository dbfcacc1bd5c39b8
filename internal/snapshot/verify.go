package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

// maxVerifyEntrySize bounds how much of a single archive entry is read
// during verification to keep memory use sane on damaged archives.
const maxVerifyEntrySize = 256 << 20

// VerifyArchive checks a snapshot archive without extracting it: paths must
// be relative, traversal-free, and rooted under a single snapshot directory;
// a manifest must be present; and every manifest entry must exist with a
// matching size and SHA-256. It returns the decoded manifest on success.
func VerifyArchive(archivePath string) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading gzip stream: %w", err)
	}
	defer gzReader.Close()

	type entry struct {
		sha256 string
		size   int64
	}

	entries := make(map[string]entry)
	var root string

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		name := path.Clean(header.Name)
		if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
			return nil, fmt.Errorf("unsafe archive path: %s", header.Name)
		}
		seg, rest, found := strings.Cut(name, "/")
		if !found {
			return nil, fmt.Errorf("entry outside snapshot root: %s", header.Name)
		}
		if root == "" {
			root = seg
		} else if seg != root {
			return nil, fmt.Errorf("multiple root directories: %s and %s", root, seg)
		}

		hasher := sha256.New()
		n, err := io.Copy(hasher, io.LimitReader(tarReader, maxVerifyEntrySize))
		if err != nil {
			return nil, fmt.Errorf("reading entry %s: %w", name, err)
		}

		entries[rest] = entry{
			sha256: hex.EncodeToString(hasher.Sum(nil)),
			size:   n,
		}
	}

	if root == "" {
		return nil, fmt.Errorf("archive is empty")
	}

	// second pass to read the manifest content
	manifest, err := readManifestEntry(archivePath, path.Join(root, ManifestName))
	if err != nil {
		return nil, err
	}
	if manifest.SnapshotID != root {
		return nil, fmt.Errorf("manifest snapshot id %q does not match archive root %q", manifest.SnapshotID, root)
	}

	for _, want := range manifest.Files {
		got, ok := entries[want.Path]
		if !ok {
			return nil, fmt.Errorf("file listed in manifest missing from archive: %s", want.Path)
		}
		if got.size != want.Size {
			return nil, fmt.Errorf("size mismatch for %s: manifest %d, archive %d", want.Path, want.Size, got.size)
		}
		if got.sha256 != want.SHA256 {
			return nil, fmt.Errorf("checksum mismatch for %s", want.Path)
		}
	}

	for name := range entries {
		if name == ManifestName {
			continue
		}
		if !manifestLists(manifest, name) {
			return nil, fmt.Errorf("archive entry not listed in manifest: %s", name)
		}
	}

	return manifest, nil
}

func manifestLists(m *Manifest, name string) bool {
	for _, f := range m.Files {
		if f.Path == name {
			return true
		}
	}
	return false
}

func readManifestEntry(archivePath, entryName string) (*Manifest, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gzReader, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading gzip stream: %w", err)
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("archive has no manifest (%s)", entryName)
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		if path.Clean(header.Name) != entryName {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tarReader, maxVerifyEntrySize))
		if err != nil {
			return nil, fmt.Errorf("reading manifest: %w", err)
		}
		return DecodeManifest(data)
	}
}
