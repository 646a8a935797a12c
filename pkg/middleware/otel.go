package middleware

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/partition/pkg/store"
)

// Default tracer name for partition stores.
const defaultTracerName = "partition"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "partition").
	TracerName string

	// TracerProvider overrides the global tracer provider.
	TracerProvider trace.TracerProvider

	// TraceThunks starts spans for thunks as well as for the actions they
	// dispatch. Disabled by default.
	TraceThunks bool

	// Filter determines which actions to trace.
	// Return true to trace the action, false to skip.
	// If nil, all actions are traced.
	Filter func(action any) bool

	// AttributeExtractor extracts custom attributes from the action.
	// Called for each traced dispatch.
	AttributeExtractor func(action any) []attribute.KeyValue

	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithTraceThunks enables spans for thunks.
func WithTraceThunks(enabled bool) OTelOption {
	return func(c *OTelConfig) {
		c.TraceThunks = enabled
	}
}

// WithActionFilter sets a filter function for actions.
func WithActionFilter(filter func(action any) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(action any) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// OpenTelemetry returns middleware that traces dispatches.
//
// Each span is named after the action type, or "partition.dispatch" for
// actions without one, and carries the store id, part id, action kind, the
// resulting state version and whether the state changed. A panicking
// dispatch records the error on the span before the panic continues.
func OpenTelemetry(opts ...OTelOption) store.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	if config.TracerProvider != nil {
		config.tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		config.tracer = otel.Tracer(config.TracerName)
	}

	return func(s *store.Store, next store.DispatchFunc) store.DispatchFunc {
		return func(action any) any {
			kind, partID, actionType := describe(action)
			if kind == kindThunk && !config.TraceThunks {
				return next(action)
			}
			if config.Filter != nil && !config.Filter(action) {
				return next(action)
			}

			attrs := []attribute.KeyValue{
				attribute.String("partition.store_id", s.ID()),
				attribute.String("partition.kind", kind),
			}
			if kind == kindAction {
				attrs = append(attrs,
					attribute.Int64("partition.part_id", int64(partID)),
					attribute.String("partition.action_type", actionType),
				)
			}
			if config.AttributeExtractor != nil {
				attrs = append(attrs, config.AttributeExtractor(action)...)
			}

			_, span := config.tracer.Start(
				context.Background(),
				spanName(kind, actionType),
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attrs...),
			)
			defer span.End()

			before := s.Version()
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("panic: %v", r)
					}
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					panic(r)
				}
			}()

			result := next(action)

			after := s.Version()
			span.SetAttributes(
				attribute.Bool("partition.changed", after != before),
				attribute.Int64("partition.version", int64(after)),
			)
			span.SetStatus(codes.Ok, "")
			return result
		}
	}
}

func spanName(kind, actionType string) string {
	switch {
	case actionType != "":
		return "partition " + actionType
	case kind == kindThunk:
		return "partition.thunk"
	default:
		return "partition.dispatch"
	}
}
