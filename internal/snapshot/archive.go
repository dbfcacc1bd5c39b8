package snapshot

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"
)

// Archive packages the populated snapshot directory into a tar.gz at
// outputPath. Entries are rooted at snapshotID/ so extraction reproduces
// <SnapshotId>/... at the extraction point; paths are never absolute and
// never flattened.
func Archive(dir, outputPath, snapshotID string) error {
	files, err := listRegularFiles(dir)
	if err != nil {
		return fmt.Errorf("listing snapshot directory: %w", err)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	gzWriter := gzip.NewWriter(out)
	tarWriter := tar.NewWriter(gzWriter)

	for _, rel := range files {
		if err := addFile(tarWriter, dir, rel, snapshotID); err != nil {
			tarWriter.Close()
			gzWriter.Close()
			out.Close()
			os.Remove(outputPath)
			return fmt.Errorf("archiving %s: %w", rel, err)
		}
	}

	if err := tarWriter.Close(); err != nil {
		out.Close()
		os.Remove(outputPath)
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		out.Close()
		os.Remove(outputPath)
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return nil
}

func listRegularFiles(dir string) ([]string, error) {
	files := make([]string, 0)
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func addFile(tw *tar.Writer, dir, rel, snapshotID string) error {
	full := filepath.Join(dir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		return err
	}

	header := &tar.Header{
		Name:     path.Join(snapshotID, rel),
		Mode:     int64(info.Mode().Perm()),
		Size:     info.Size(),
		ModTime:  info.ModTime().Truncate(time.Second),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	f, err := os.Open(full)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(tw, f)
	return err
}
