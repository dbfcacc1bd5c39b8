package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// FormatVersion is the current manifest format version.
	FormatVersion = 1

	// ManifestName is the manifest file name inside the snapshot directory.
	ManifestName = "manifest.json"
)

// FileEntry describes one file captured in the snapshot.
type FileEntry struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
	Mode   int64  `json:"mode"`
}

// Manifest is the metadata file written into the snapshot directory before
// archiving. It allows later integrity verification of the archive.
type Manifest struct {
	Version     int         `json:"version"`
	RunID       string      `json:"run_id"`
	SnapshotID  string      `json:"snapshot_id"`
	CreatedAt   time.Time   `json:"created_at"`
	ToolVersion string      `json:"tool_version,omitempty"`
	Files       []FileEntry `json:"files"`
	Warnings    []string    `json:"warnings,omitempty"`
}

// BuildManifest hashes every regular file under dir and returns the manifest.
func BuildManifest(dir, snapshotID, toolVersion string, warnings []string) (*Manifest, error) {
	m := &Manifest{
		Version:     FormatVersion,
		RunID:       uuid.NewString(),
		SnapshotID:  snapshotID,
		CreatedAt:   time.Now().UTC(),
		ToolVersion: toolVersion,
		Files:       make([]FileEntry, 0),
		Warnings:    warnings,
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		hash := sha256.Sum256(data)
		m.Files = append(m.Files, FileEntry{
			Path:   filepath.ToSlash(rel),
			SHA256: hex.EncodeToString(hash[:]),
			Size:   int64(len(data)),
			Mode:   int64(info.Mode().Perm()),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(m.Files, func(i, j int) bool {
		return m.Files[i].Path < m.Files[j].Path
	})
	return m, nil
}

// Encode renders the manifest as indented JSON.
func (m *Manifest) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeManifest parses manifest JSON.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return &m, nil
}
