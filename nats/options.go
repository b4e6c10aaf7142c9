package nats

import (
	"github.com/arloliu/tracebind"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

const instrumentationName = "tracebind/nats"

type options struct {
	tracerName   string
	prop         propagation.TextMapPropagator
	processSpans bool
	asyncSpans   bool
	stream       string
}

func defaultOptions() options {
	return options{
		tracerName:   instrumentationName,
		processSpans: true,
		asyncSpans:   true,
	}
}

// Option configures tracing behavior.
type Option func(*options)

// WithTracerName sets the instrumentation scope name of the spans.
// Default is "tracebind/nats".
func WithTracerName(name string) Option {
	return func(o *options) {
		o.tracerName = name
	}
}

// WithPropagator sets the propagator used for message headers.
// If not set, the OpenTelemetry global propagator is used.
func WithPropagator(prop propagation.TextMapPropagator) Option {
	return func(o *options) {
		o.prop = prop
	}
}

// WithProcessSpans enables or disables the process span that
// [MessageHandlerWithTracing] starts around each handler call. When disabled
// the handler still receives the extracted trace and correlation context.
// Default is true.
func WithProcessSpans(enabled bool) Option {
	return func(o *options) {
		o.processSpans = enabled
	}
}

// WithAsyncSpans enables or disables spans and header injection for
// asynchronous publishes. Default is true.
func WithAsyncSpans(enabled bool) Option {
	return func(o *options) {
		o.asyncSpans = enabled
	}
}

// WithStream sets the stream name used for span names and attributes when
// it cannot be read from the message metadata.
func WithStream(stream string) Option {
	return func(o *options) {
		o.stream = stream
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return o
}

// tracer resolves the tracer of the wrappers. A nil tp goes through
// [tracebind.GetTracer], so wrappers built before [tracebind.SetDefault]
// start recording once a default provider is set.
func (o options) tracer(tp tracebind.TracerProvider) tracebind.Tracer {
	version := tracebind.WithInstrumentationVersion(tracebind.SemVersion())
	if tp == nil {
		return tracebind.GetTracer(o.tracerName, version)
	}

	return tp.Tracer(o.tracerName, version)
}

func (o options) propagator() propagation.TextMapPropagator {
	if o.prop != nil {
		return o.prop
	}

	return otel.GetTextMapPropagator()
}
