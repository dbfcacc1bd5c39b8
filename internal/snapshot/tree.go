package snapshot

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/digitalnavigator-80/opsnap/internal/execx"
)

// StructureReporter produces listings of the project tree with a fixed
// exclusion set: tree.txt (opportunistic, unbounded, requires the tree
// tool) and find.txt (bounded depth, with a native fallback when find is
// unavailable). Both are best-effort.
type StructureReporter struct {
	Runner   execx.Runner
	Root     string
	Excludes []string
	Depth    int
}

// Name identifies the reporter in pipeline logs.
func (r *StructureReporter) Name() string { return "structure" }

// Collect implements Collector.
func (r *StructureReporter) Collect(ctx context.Context) []Fact {
	facts := make([]Fact, 0, 2)
	if content, ok := r.treeListing(ctx); ok {
		facts = append(facts, Fact{File: "tree.txt", Content: content})
	}
	facts = append(facts, Fact{File: "find.txt", Content: r.boundedListing(ctx)})
	return facts
}

// treeListing renders the full tree when the tool exists; otherwise the
// fact is omitted entirely.
func (r *StructureReporter) treeListing(ctx context.Context) (string, bool) {
	if !r.Runner.Available("tree") {
		return "", false
	}
	return r.Runner.Run(ctx, "tree", "-a", "-I", strings.Join(r.Excludes, "|"))
}

// boundedListing lists the tree to the configured depth. It prefers find
// and degrades to a native walk with the same bound and exclusions.
func (r *StructureReporter) boundedListing(ctx context.Context) string {
	if r.Runner.Available("find") {
		args := []string{".", "-maxdepth", strconv.Itoa(r.Depth)}
		for _, ex := range r.Excludes {
			args = append(args, "-not", "-path", "*/"+ex+"/*", "-not", "-name", ex)
		}
		if out, ok := r.Runner.Run(ctx, "find", args...); ok {
			return out
		}
	}
	return r.walkListing()
}

func (r *StructureReporter) walkListing() string {
	excluded := make(map[string]bool, len(r.Excludes))
	for _, ex := range r.Excludes {
		excluded[ex] = true
	}

	lines := []string{"."}
	_ = filepath.WalkDir(r.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, err := filepath.Rel(r.Root, path)
		if err != nil || rel == "." {
			return nil
		}
		if excluded[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel = filepath.ToSlash(rel)
		if strings.Count(rel, "/") >= r.Depth {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		lines = append(lines, "./"+rel)
		return nil
	})

	sort.Strings(lines[1:])
	return strings.Join(lines, "\n")
}
