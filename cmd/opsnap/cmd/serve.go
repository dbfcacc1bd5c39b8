package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/digitalnavigator-80/opsnap/internal/history"
	"github.com/digitalnavigator-80/opsnap/internal/web"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve captured snapshots over HTTP",
	Long: `Serve exposes a read-only HTTP API over the snapshots directory:
a listing of captured snapshots and archive downloads. It never
triggers new captures.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "bind host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "bind port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := buildLogger(cfg)

	webCfg := web.DefaultConfig()
	webCfg.Host = cfg.Serve.Host
	webCfg.Port = cfg.Serve.Port
	webCfg.EnableCORS = cfg.Serve.EnableCORS
	webCfg.CORSOrigins = cfg.Serve.CORSOrigins
	if serveHost != "" {
		webCfg.Host = serveHost
	}
	if servePort != 0 {
		webCfg.Port = servePort
	}

	var opts []web.ServerOption
	if cfg.History.Enabled {
		if idx, err := history.Open(historyPath(cfg)); err == nil {
			defer idx.Close()
			opts = append(opts, web.WithIndex(idx))
		} else {
			logger.Warn("run index unavailable, listing from directory scan", "error", err)
		}
	}

	srv := web.New(webCfg, snapshotsDir(cfg), logger.Logger, opts...)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	fmt.Fprintf(cmd.OutOrStdout(), "serving snapshots from %s on http://%s\n",
		snapshotsDir(cfg), srv.Addr())

	return g.Wait()
}
