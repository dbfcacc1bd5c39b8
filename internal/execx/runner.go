package execx

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single external command invocation.
// Network-backed commands (git remotes) are the usual offenders.
const DefaultTimeout = 30 * time.Second

// Runner executes external commands on a best-effort basis.
// Run never returns an error: any failure mode (binary not found,
// non-zero exit, timeout, I/O error) yields ok=false and empty output,
// so one missing tool cannot abort collection of unrelated facts.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (output string, ok bool)
	Available(name string) bool
}

// CLI runs commands with a bounded timeout in a fixed working directory.
type CLI struct {
	dir     string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a CLI runner.
type Option func(*CLI)

// WithTimeout overrides the per-invocation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *CLI) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger used for debug traces of failed commands.
func WithLogger(logger *slog.Logger) Option {
	return func(c *CLI) {
		c.logger = logger
	}
}

// New creates a runner whose commands execute with dir as working directory.
func New(dir string, opts ...Option) *CLI {
	c := &CLI{
		dir:     dir,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes name with args and returns its trimmed stdout.
// Failures are swallowed: they are logged at debug level and reported
// only through ok=false.
func (c *CLI) Run(ctx context.Context, name string, args ...string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = c.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := "failed"
		if ctx.Err() == context.DeadlineExceeded {
			reason = "timed out"
		}
		c.logger.Debug("command "+reason,
			"command", name,
			"args", strings.Join(args, " "),
			"stderr", strings.TrimSpace(stderr.String()),
			"error", err,
		)
		return "", false
	}

	return strings.TrimRight(stdout.String(), "\n"), true
}

// Available reports whether name resolves on PATH.
func (c *CLI) Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
