package snapshot

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/digitalnavigator-80/opsnap/internal/fsutil"
)

// Copier copies an explicit allow-list of relative paths into the snapshot
// directory. The allow-list is the only inclusion mechanism: nothing outside
// it is ever read. On top of it sits a hard deny filter for paths known to
// hold secrets or generated output; those are refused even when configured.
type Copier struct {
	Root      string
	AllowList []string
	// OutputDir is the resolved snapshots output directory. No entry may
	// reach into it, whatever it is named: without this check a renamed
	// output directory on the allow-list would copy itself into itself.
	OutputDir string
	Logger    *slog.Logger
}

// Copy copies every existing allow-list entry into destDir, preserving the
// relative name, directory structure, and file modes. Missing entries and
// copy failures are skipped silently (debug-logged) and never abort the
// remaining entries. It returns the relative paths actually copied.
func (c *Copier) Copy(destDir string) []string {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outAbs := absOrClean(c.OutputDir)

	copied := make([]string, 0, len(c.AllowList))
	for _, entry := range c.AllowList {
		rel := filepath.ToSlash(filepath.Clean(entry))
		if denied(rel) {
			logger.Warn("allow-list entry refused by deny filter", "path", entry)
			continue
		}

		src := filepath.Join(c.Root, filepath.FromSlash(rel))
		if outAbs != "" && insideOrSelf(absOrClean(src), outAbs) {
			logger.Warn("allow-list entry overlaps the output directory, refused", "path", entry)
			continue
		}
		info, err := os.Stat(src)
		if err != nil {
			logger.Debug("safe path not present, skipping", "path", rel)
			continue
		}

		dst := filepath.Join(destDir, filepath.FromSlash(rel))
		if info.IsDir() {
			err = fsutil.CopyDir(src, dst, c.skipFunc(src, outAbs))
		} else {
			err = fsutil.CopyFile(src, dst)
		}
		if err != nil {
			logger.Debug("copy failed, skipping", "path", rel, "error", err)
			continue
		}
		copied = append(copied, rel)
	}
	return copied
}

// skipFunc combines the name-based deny filter with the output-directory
// exclusion for children discovered during a recursive copy.
func (c *Copier) skipFunc(src, outAbs string) fsutil.SkipFunc {
	srcAbs := absOrClean(src)
	return func(rel string) bool {
		if denied(rel) {
			return true
		}
		if outAbs == "" {
			return false
		}
		return insideOrSelf(filepath.Join(srcAbs, filepath.FromSlash(rel)), outAbs)
	}
}

// insideOrSelf reports whether path is dir or lies under it.
func insideOrSelf(path, dir string) bool {
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

func absOrClean(path string) string {
	if path == "" {
		return ""
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// denied reports whether a slash-separated relative path must never be
// copied, regardless of the allow-list. It is applied both to allow-list
// entries and to every child during recursive copies.
func denied(rel string) bool {
	for _, seg := range strings.Split(rel, "/") {
		if deniedName(seg) {
			return true
		}
	}
	return false
}

func deniedName(name string) bool {
	switch name {
	case ".git", "backups", "snapshots":
		return true
	}
	if name == ".env" || strings.HasPrefix(name, ".env.") {
		return true
	}
	if strings.HasSuffix(name, ".pem") || strings.HasSuffix(name, ".key") {
		return true
	}
	if strings.HasPrefix(name, "id_rsa") || strings.HasPrefix(name, "id_ed25519") {
		return true
	}
	return false
}
