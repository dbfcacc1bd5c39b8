package snapshot

import (
	"context"

	"github.com/digitalnavigator-80/opsnap/internal/execx"
)

// DockerCollector gathers container-runtime facts. When the docker binary is
// not on PATH the collector produces no facts at all: no files, not even
// empty ones.
type DockerCollector struct {
	Runner execx.Runner
}

// Name implements Collector.
func (c *DockerCollector) Name() string { return "docker" }

// Collect implements Collector.
func (c *DockerCollector) Collect(ctx context.Context) []Fact {
	if !c.Runner.Available("docker") {
		return nil
	}

	version, _ := c.Runner.Run(ctx, "docker", "--version")
	ps, _ := c.Runner.Run(ctx, "docker", "ps", "-a")
	images, _ := c.Runner.Run(ctx, "docker", "images")

	return []Fact{
		{File: "docker-version.txt", Content: version},
		{File: "docker-compose-version.txt", Content: c.composeVersion(ctx)},
		{File: "docker-ps-a.txt", Content: ps},
		{File: "docker-images.txt", Content: images},
	}
}

// composeVersion prefers the compose plugin and falls back to the legacy
// standalone binary.
func (c *DockerCollector) composeVersion(ctx context.Context) string {
	if out, ok := c.Runner.Run(ctx, "docker", "compose", "version"); ok {
		return out
	}
	out, _ := c.Runner.Run(ctx, "docker-compose", "--version")
	return out
}
