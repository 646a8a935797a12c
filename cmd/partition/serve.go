package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/partition/internal/config"
)

const shutdownTimeout = 5 * time.Second

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the store and serve the devtools inspector",
		Long: `Build the parts declared in the config, create a store with
logging, metrics and tracing middleware, and serve the devtools
inspector until interrupted.

Examples:
  partition serve
  partition serve --config=./partition.yaml
  partition serve --addr=0.0.0.0:7070`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Devtools.Addr = addr
			}
			return runServe(cmd, cfg, nil)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file (default ./partition.yaml or $PARTITION_CONFIG)")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Devtools listen address (default from config)")

	return cmd
}

// runServe serves the store described by cfg until the command context is
// done. When ready is non-nil it receives the bound listen address.
func runServe(cmd *cobra.Command, cfg *config.Config, ready chan<- string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := slog.New(cfg.Log.Handler(cmd.ErrOrStderr()))

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	success(cmd, "Store %s ready with %d parts", a.store.ID(), len(a.pt.Parts()))
	if p := cfg.Path(); p != "" {
		info(cmd, "config: %s", p)
	}

	if !cfg.Devtools.Enabled {
		warn(cmd, "devtools disabled; waiting for interrupt")
		if ready != nil {
			close(ready)
		}
		<-ctx.Done()
		return nil
	}

	inspector := a.inspector(logger)
	ln, err := net.Listen("tcp", cfg.Devtools.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           inspector,
		ReadHeaderTimeout: 10 * time.Second,
	}
	success(cmd, "Devtools listening on http://%s", ln.Addr())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "clients", inspector.ClientCount())
		inspector.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
