package tracebind

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func packageTracer() Tracer {
	return GetTracer(ScopeName, WithInstrumentationVersion(SemVersion()))
}

// Start begins a span with the module tracer. Before [SetDefault] it returns
// ctx unchanged and [NoopSpan].
func Start(ctx context.Context, operation string, opts ...SpanStartOption) (context.Context, Span) {
	return packageTracer().Start(ctx, operation, opts...)
}

// StartServer begins a new server span (e.g., handling an incoming request).
func StartServer(ctx context.Context, operation string, opts ...SpanStartOption) (context.Context, Span) {
	return Start(ctx, operation, withKind(trace.SpanKindServer, opts)...)
}

// StartClient begins a new client span (e.g., making an outgoing request).
func StartClient(ctx context.Context, operation string, opts ...SpanStartOption) (context.Context, Span) {
	return Start(ctx, operation, withKind(trace.SpanKindClient, opts)...)
}

// StartInternal begins a new internal span.
func StartInternal(ctx context.Context, operation string, opts ...SpanStartOption) (context.Context, Span) {
	return Start(ctx, operation, withKind(trace.SpanKindInternal, opts)...)
}

// StartProducer begins a new producer span (e.g., publishing a message to NATS).
func StartProducer(ctx context.Context, operation string, opts ...SpanStartOption) (context.Context, Span) {
	return Start(ctx, operation, withKind(trace.SpanKindProducer, opts)...)
}

// StartConsumer begins a new consumer span (e.g., processing a message from a queue).
func StartConsumer(ctx context.Context, operation string, opts ...SpanStartOption) (context.Context, Span) {
	return Start(ctx, operation, withKind(trace.SpanKindConsumer, opts)...)
}

// withKind puts the kind first so that an explicit WithSpanKind in opts wins.
func withKind(kind trace.SpanKind, opts []SpanStartOption) []SpanStartOption {
	return append([]SpanStartOption{WithSpanKind(kind)}, opts...)
}

// TraceID returns the trace ID from context, or empty string if none.
func TraceID(ctx context.Context) string {
	sc := SpanContextFromContext(ctx)
	if sc.TraceID().IsValid() {
		return sc.TraceID().String()
	}

	return ""
}

// SpanID returns the span ID from context, or empty string if none.
func SpanID(ctx context.Context) string {
	sc := SpanContextFromContext(ctx)
	if sc.SpanID().IsValid() {
		return sc.SpanID().String()
	}

	return ""
}

// RecordError records an error on the current span and sets the Error status.
// If err is nil, this is a no-op.
func RecordError(ctx context.Context, err error, attrs ...attribute.KeyValue) {
	if err == nil {
		return
	}
	span := SpanFromContext(ctx)
	span.RecordError(err, attrs...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSuccess marks the current span as successful.
func SetSuccess(ctx context.Context) {
	SpanFromContext(ctx).SetStatus(codes.Ok, "")
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	SpanFromContext(ctx).AddEvent(name, attrs...)
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	SpanFromContext(ctx).SetAttributes(attrs...)
}
