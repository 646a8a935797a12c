// Package middleware provides dispatch middleware and observers for
// partition stores.
//
// This package includes:
//   - Structured dispatch logging with log/slog
//   - Prometheus metrics for dispatches and notification passes
//   - OpenTelemetry tracing of dispatches
//
// Middleware is installed when the store is created:
//
//	metrics := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	st := store.New(pt,
//	    store.WithMiddleware(
//	        middleware.Logger(logger),
//	        middleware.OpenTelemetry(),
//	        metrics.Middleware(),
//	    ),
//	    store.WithObserver(metrics),
//	)
//
// # Prometheus Metrics
//
// Metrics collected:
//   - partition_dispatches_total: dispatches by kind and whether state changed
//   - partition_dispatch_duration_seconds: dispatch duration by kind
//   - partition_dispatch_panics_total: dispatches that panicked, by error code
//   - partition_state_version: latest state version by store
//   - partition_notify_passes_total: notification passes
//   - partition_notify_duration_seconds: notification pass duration
//   - partition_listener_calls_total: listener calls made by notification passes
//
// Expose them with promhttp, or mount them on the devtools server.
//
// # OpenTelemetry
//
// OpenTelemetry starts a span per dispatch carrying the store id, part id
// and action type. The tracer comes from the global provider; configure it
// in main before creating stores.
package middleware
