package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/digitalnavigator-80/opsnap/internal/config"
	"github.com/digitalnavigator-80/opsnap/internal/execx"
	"github.com/digitalnavigator-80/opsnap/internal/fsutil"
)

// Result describes one completed (or attempted) snapshot run.
type Result struct {
	ID          string        `json:"id"`
	RunID       string        `json:"run_id"`
	Dir         string        `json:"dir"`
	ArchivePath string        `json:"archive_path"`
	FactFiles   int           `json:"fact_files"`
	CopiedPaths []string      `json:"copied_paths"`
	Warnings    []string      `json:"warnings,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Pipeline sequences the snapshot stages: create directory, collect facts,
// copy safe paths, report structure, write manifest, archive. All stages
// except directory creation and archiving absorb their failures.
type Pipeline struct {
	cfg     *config.SnapshotConfig
	runner  execx.Runner
	logger  *slog.Logger
	now     func() time.Time
	version string
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithClock overrides the time source. Tests use it to force identifiers.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// WithRunner overrides the command runner.
func WithRunner(r execx.Runner) PipelineOption {
	return func(p *Pipeline) {
		p.runner = r
	}
}

// WithVersion records the tool version in the manifest.
func WithVersion(v string) PipelineOption {
	return func(p *Pipeline) {
		p.version = v
	}
}

// NewPipeline creates a pipeline for the given configuration.
func NewPipeline(cfg *config.SnapshotConfig, logger *slog.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		timeout := execx.DefaultTimeout
		if d, err := cfg.CommandTimeoutDuration(); err == nil {
			timeout = d
		}
		p.runner = execx.New(cfg.Root, execx.WithTimeout(timeout), execx.WithLogger(p.logger))
	}
	return p
}

// OutputDir resolves the snapshots directory.
func (p *Pipeline) OutputDir() string {
	if filepath.IsAbs(p.cfg.OutputDir) {
		return p.cfg.OutputDir
	}
	return filepath.Join(p.cfg.Root, p.cfg.OutputDir)
}

type stage struct {
	name string
	run  func(ctx context.Context, res *Result) error
}

// Run executes the pipeline once. Failure to create the snapshot directory
// or to write the archive is returned as an error; every other failure is
// absorbed into Result.Warnings. On success both artifact paths are set.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := p.now()
	id := NewID(start)
	dir := filepath.Join(p.OutputDir(), id)

	logger := p.logger.With("snapshot_id", id)

	// Without an output directory the run cannot produce anything, so this
	// is the one up-front failure treated as fatal.
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating snapshot directory: %w", err)
	}

	res := &Result{
		ID:  id,
		Dir: dir,
	}

	stages := []stage{
		{"facts", p.collectFacts},
		{"copy", p.copySafePaths},
		{"structure", p.reportStructure},
		{"manifest", p.writeManifest},
	}

	for _, s := range stages {
		logger.Debug("stage starting", "stage", s.name)
		if err := s.run(ctx, res); err != nil {
			logger.Warn("stage failed, continuing", "stage", s.name, "error", err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", s.name, err))
		}
	}

	archivePath := filepath.Join(p.OutputDir(), id+".tar.gz")
	if err := Archive(dir, archivePath, id); err != nil {
		res.Duration = p.now().Sub(start)
		return res, fmt.Errorf("writing archive: %w", err)
	}
	res.ArchivePath = archivePath
	res.Duration = p.now().Sub(start)

	logger.Info("snapshot complete",
		"dir", res.Dir,
		"archive", res.ArchivePath,
		"facts", res.FactFiles,
		"copied", len(res.CopiedPaths),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// collectFacts runs the fact collectors in a fixed order. Order matters only
// for reproducible output; the collectors are independent of one another.
func (p *Pipeline) collectFacts(ctx context.Context, res *Result) error {
	collectors := []Collector{
		&HostCollector{Runner: p.runner, Now: p.now},
		&DockerCollector{Runner: p.runner},
		&GitCollector{Runner: p.runner},
	}

	for _, c := range collectors {
		for _, fact := range c.Collect(ctx) {
			if err := p.writeFact(res.Dir, fact); err != nil {
				p.logger.Warn("fact file not written",
					"collector", c.Name(), "file", fact.File, "error", err)
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s/%s: %v", c.Name(), fact.File, err))
				continue
			}
			res.FactFiles++
		}
	}
	return nil
}

func (p *Pipeline) copySafePaths(_ context.Context, res *Result) error {
	copier := &Copier{
		Root:      p.cfg.Root,
		AllowList: p.cfg.SafePaths,
		OutputDir: p.OutputDir(),
		Logger:    p.logger,
	}
	res.CopiedPaths = copier.Copy(res.Dir)
	return nil
}

func (p *Pipeline) reportStructure(ctx context.Context, res *Result) error {
	reporter := &StructureReporter{
		Runner:   p.runner,
		Root:     p.cfg.Root,
		Excludes: p.cfg.ExcludeNames,
		Depth:    p.cfg.ListDepth,
	}
	for _, fact := range reporter.Collect(ctx) {
		if err := p.writeFact(res.Dir, fact); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("structure/%s: %v", fact.File, err))
			continue
		}
		res.FactFiles++
	}
	return nil
}

func (p *Pipeline) writeManifest(_ context.Context, res *Result) error {
	manifest, err := BuildManifest(res.Dir, res.ID, p.version, res.Warnings)
	if err != nil {
		return err
	}
	res.RunID = manifest.RunID

	data, err := manifest.Encode()
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(filepath.Join(res.Dir, ManifestName), data, 0o644)
}

// writeFact persists one fact file atomically: fully written or not created.
func (p *Pipeline) writeFact(dir string, fact Fact) error {
	content := fact.Content
	if content != "" && content[len(content)-1] != '\n' {
		content += "\n"
	}
	return fsutil.WriteFileAtomic(filepath.Join(dir, fact.File), []byte(content), 0o644)
}
