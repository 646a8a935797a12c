package middleware

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	perrors "github.com/vango-dev/partition/internal/errors"
	"github.com/vango-dev/partition/pkg/store"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "partition").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for dispatch and notify durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "partition",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for one or more stores. It is
// both dispatch middleware (see Middleware) and a store.Observer.
type Metrics struct {
	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	dispatchPanics   *prometheus.CounterVec
	stateVersion     *prometheus.GaugeVec
	notifyPasses     prometheus.Counter
	notifyDuration   prometheus.Histogram
	listenerCalls    prometheus.Counter
}

var _ store.Observer = (*Metrics)(nil)

// Prometheus registers the partition metrics and returns them. Call it once
// per registry; the collectors can be shared by any number of stores.
//
// Example:
//
//	metrics := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	st := store.New(pt,
//	    store.WithMiddleware(metrics.Middleware()),
//	    store.WithObserver(metrics),
//	)
//
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		dispatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatches_total",
			Help:        "Total number of dispatched actions",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "changed"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_duration_seconds",
			Help:        "Dispatch duration in seconds, including the notification pass",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		dispatchPanics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dispatch_panics_total",
			Help:        "Total number of dispatches that panicked",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		stateVersion: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "state_version",
			Help:        "Latest state version of each store",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		notifyPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notify_passes_total",
			Help:        "Total number of notification passes",
			ConstLabels: config.ConstLabels,
		}),

		notifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notify_duration_seconds",
			Help:        "Notification pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		listenerCalls: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listener_calls_total",
			Help:        "Total number of listener calls made by notification passes",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Middleware returns dispatch middleware recording dispatch counts and
// durations. Panicking dispatches are counted and re-raised.
func (m *Metrics) Middleware() store.Middleware {
	return func(s *store.Store, next store.DispatchFunc) store.DispatchFunc {
		return func(action any) any {
			kind, _, _ := describe(action)
			start := time.Now()
			before := s.Version()

			defer func() {
				if r := recover(); r != nil {
					m.dispatchPanics.WithLabelValues(panicCode(r)).Inc()
					panic(r)
				}
			}()

			result := next(action)

			changed := s.Version() != before
			m.dispatchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
			m.dispatchesTotal.WithLabelValues(kind, strconv.FormatBool(changed)).Inc()
			return result
		}
	}
}

// OnNotify records a notification pass.
func (m *Metrics) OnNotify(info store.NotifyInfo) {
	m.notifyPasses.Inc()
	m.notifyDuration.Observe(info.Duration.Seconds())
	m.listenerCalls.Add(float64(info.Listeners))
	m.stateVersion.WithLabelValues(info.StoreID).Set(float64(info.Version))
}

// panicCode returns the error code of a coded panic value. This keeps label
// cardinality bounded.
func panicCode(r any) string {
	err, ok := r.(error)
	if !ok {
		return "unknown"
	}
	var pe *perrors.PartitionError
	if errors.As(err, &pe) && pe.Code != "" {
		return pe.Code
	}
	return "internal"
}
