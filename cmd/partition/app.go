package main

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/partition/internal/config"
	"github.com/vango-dev/partition/pkg/devtools"
	"github.com/vango-dev/partition/pkg/middleware"
	"github.com/vango-dev/partition/pkg/part"
	"github.com/vango-dev/partition/pkg/store"
)

// app is a store assembled from a config together with the handlers that
// expose it.
type app struct {
	cfg     *config.Config
	pt      *store.Partitioner
	store   *store.Store
	metrics http.Handler
}

// partitionConfig declares the configured parts on a fresh graph and
// partitions them.
func partitionConfig(cfg *config.Config) (*store.Partitioner, error) {
	parts, err := cfg.Build(part.NewGraph())
	if err != nil {
		return nil, err
	}
	return store.Partition(parts)
}

// newApp builds the store with the middleware the config enables.
func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	pt, err := partitionConfig(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, pt: pt}
	mws := []store.Middleware{middleware.Logger(logger)}
	opts := []store.Option{store.WithLogger(logger)}

	if cfg.Tracing.Enabled {
		mws = append(mws, middleware.OpenTelemetry(
			middleware.WithTracerName(cfg.Tracing.TracerName),
			middleware.WithTraceThunks(cfg.Tracing.Thunks),
		))
	}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		mopts := []middleware.MetricsOption{
			middleware.WithRegistry(reg),
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithSubsystem(cfg.Metrics.Subsystem),
		}
		if len(cfg.Metrics.Buckets) > 0 {
			mopts = append(mopts, middleware.WithBuckets(cfg.Metrics.Buckets))
		}
		m := middleware.Prometheus(mopts...)
		mws = append(mws, m.Middleware())
		opts = append(opts, store.WithObserver(m))
		a.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	opts = append(opts, store.WithMiddleware(mws...))
	a.store = store.New(pt, opts...)
	return a, nil
}

// inspector returns the devtools server for the app's store.
func (a *app) inspector(logger *slog.Logger) *devtools.Server {
	opts := []devtools.Option{
		devtools.WithLogger(logger),
		devtools.WithWriteTimeout(a.cfg.Devtools.WriteTimeout),
	}
	if a.metrics != nil {
		opts = append(opts, devtools.WithMetricsHandler(a.metrics))
	}
	if allowed := a.cfg.Devtools.AllowedOrigins; len(allowed) > 0 {
		opts = append(opts, devtools.WithCheckOrigin(func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(allowed, origin)
		}))
	}
	return devtools.New(a.store, opts...)
}
