package tracebind

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracer starts spans for one instrumentation scope.
type Tracer interface {
	// Start creates a span and returns a context in which it is the current
	// span. Tracers that do not record return ctx unchanged with [NoopSpan].
	Start(ctx context.Context, name string, opts ...SpanStartOption) (context.Context, Span)
}

// TracerProvider hands out Tracers by instrumentation name and version.
type TracerProvider interface {
	Tracer(name string, opts ...TracerOption) Tracer
}

type tracerConfig struct {
	version string
}

// TracerOption configures a Tracer request.
type TracerOption func(*tracerConfig)

// WithInstrumentationVersion sets the instrumentation version of the tracer.
func WithInstrumentationVersion(version string) TracerOption {
	return func(c *tracerConfig) {
		c.version = version
	}
}

func newTracerConfig(opts []TracerOption) tracerConfig {
	var cfg tracerConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

type spanStartConfig struct {
	kind       trace.SpanKind
	attributes []attribute.KeyValue
	parent     *SpanContext
	newRoot    bool
	timestamp  time.Time
}

// SpanStartOption configures a span at start.
type SpanStartOption func(*spanStartConfig)

// WithSpanKind sets the span kind. The default is internal.
func WithSpanKind(kind trace.SpanKind) SpanStartOption {
	return func(c *spanStartConfig) {
		c.kind = kind
	}
}

// WithAttributes sets initial attributes, also visible to the sampler.
func WithAttributes(attrs ...attribute.KeyValue) SpanStartOption {
	return func(c *spanStartConfig) {
		c.attributes = append(c.attributes, attrs...)
	}
}

// WithParent uses parent instead of the current span of the context.
func WithParent(parent SpanContext) SpanStartOption {
	return func(c *spanStartConfig) {
		c.parent = &parent
	}
}

// WithNewRoot starts a new trace regardless of any parent.
func WithNewRoot() SpanStartOption {
	return func(c *spanStartConfig) {
		c.newRoot = true
	}
}

// WithTimestamp sets the start time instead of the provider clock.
func WithTimestamp(t time.Time) SpanStartOption {
	return func(c *spanStartConfig) {
		c.timestamp = t
	}
}

func newSpanStartConfig(opts []SpanStartOption) spanStartConfig {
	var cfg spanStartConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.kind == trace.SpanKindUnspecified {
		cfg.kind = trace.SpanKindInternal
	}

	return cfg
}

// parentSpanContext resolves the parent of a new span: an explicit parent
// first, then the current span of ctx, including remote span contexts
// extracted from a carrier.
func (c spanStartConfig) parentSpanContext(ctx context.Context) SpanContext {
	if c.newRoot {
		return SpanContext{}
	}
	if c.parent != nil {
		return *c.parent
	}

	return SpanContextFromContext(ctx)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string, _ ...SpanStartOption) (context.Context, Span) {
	return ctx, NoopSpan()
}

type noopTracerProvider struct{}

func (noopTracerProvider) Tracer(string, ...TracerOption) Tracer { return noopTracer{} }

// NoopTracerProvider returns a provider whose tracers never record.
func NoopTracerProvider() TracerProvider { return noopTracerProvider{} }
