package activechart

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	capacity       int
	logger         *slog.Logger
	fatal          func(*FatalError)
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

func defaultOptions() options {
	return options{
		capacity:       DefaultRegistryCapacity,
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
	}
}

// Option configures a Processor.
type Option func(*options)

// WithCapacity sets the maximum number of registered objects.
func WithCapacity(n int) Option {
	return func(o *options) {
		o.capacity = n
	}
}

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithFatalHandler replaces the default fatal handler, which logs and
// panics with the *FatalError. A handler that returns lets the failing
// call return the error instead.
func WithFatalHandler(fn func(*FatalError)) Option {
	return func(o *options) {
		o.fatal = fn
	}
}

// WithMetrics registers the processor's Prometheus metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets where dispatch spans go; the default is the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}
