package snapshot

import (
	"context"
	"fmt"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/digitalnavigator-80/opsnap/internal/execx"
)

// HostCollector gathers general host facts into system.txt.
// It is always attempted; each sub-fact is independently best-effort and a
// failed sub-fact renders as a missing line, never as a corrupt file.
type HostCollector struct {
	Runner execx.Runner
	Now    func() time.Time
}

// Name implements Collector.
func (c *HostCollector) Name() string { return "host" }

// Collect implements Collector. It always produces exactly one fact.
func (c *HostCollector) Collect(ctx context.Context) []Fact {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	var b strings.Builder
	fmt.Fprintf(&b, "snapshot-time: %s\n", now().UTC().Format(time.RFC3339))

	if hostname, err := os.Hostname(); err == nil {
		fmt.Fprintf(&b, "hostname: %s\n", hostname)
	}
	if u, err := user.Current(); err == nil {
		fmt.Fprintf(&b, "user: %s\n", u.Username)
	}
	if out, ok := c.Runner.Run(ctx, "uname", "-a"); ok {
		fmt.Fprintf(&b, "uname: %s\n", out)
	}
	if info, err := host.InfoWithContext(ctx); err == nil {
		fmt.Fprintf(&b, "os: %s %s (%s)\n", info.Platform, info.PlatformVersion, info.KernelVersion)
		fmt.Fprintf(&b, "uptime: %s\n", (time.Duration(info.Uptime) * time.Second).String())
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fmt.Fprintf(&b, "memory: %d MB used of %d MB (%.1f%%)\n",
			vm.Used/1024/1024, vm.Total/1024/1024, vm.UsedPercent)
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		fmt.Fprintf(&b, "load: %.2f %.2f %.2f\n", avg.Load1, avg.Load5, avg.Load15)
	}
	if block, err := ghw.Block(); err == nil {
		for _, disk := range block.Disks {
			fmt.Fprintf(&b, "disk: %s %d GB\n", disk.Name, disk.SizeBytes/1024/1024/1024)
		}
	}
	if out, ok := c.Runner.Run(ctx, "date"); ok {
		fmt.Fprintf(&b, "local-date: %s\n", out)
	}

	return []Fact{{File: "system.txt", Content: b.String()}}
}
