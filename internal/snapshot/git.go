package snapshot

import (
	"context"

	"github.com/digitalnavigator-80/opsnap/internal/execx"
)

// GitCollector gathers version-control facts. Its three facts are
// independent: each file is written regardless of whether the others
// succeed, and a missing checkout yields empty files rather than a halted
// run.
type GitCollector struct {
	Runner execx.Runner
}

// Name implements Collector.
func (c *GitCollector) Name() string { return "git" }

// Collect implements Collector.
func (c *GitCollector) Collect(ctx context.Context) []Fact {
	head, _ := c.Runner.Run(ctx, "git", "rev-parse", "HEAD")
	status, _ := c.Runner.Run(ctx, "git", "status", "--porcelain")
	remotes, _ := c.Runner.Run(ctx, "git", "remote", "-v")

	return []Fact{
		{File: "git-head.txt", Content: head},
		{File: "git-status-porcelain.txt", Content: status},
		{File: "git-remotes.txt", Content: remotes},
	}
}
