package tracebind

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type spanKey struct{}

// ContextWithSpan returns a copy of ctx in which span is the current span.
// The span context is also stored in the OpenTelemetry slot so that
// propagators can inject it.
func ContextWithSpan(ctx context.Context, span Span) context.Context {
	if span == nil {
		return ctx
	}
	ctx = context.WithValue(ctx, spanKey{}, span)

	return trace.ContextWithSpanContext(ctx, span.SpanContext().OTel())
}

// SpanFromContext returns the current span of ctx. A span context extracted
// from a remote peer is returned as a non-recording span. If ctx holds
// neither, the no-op span is returned.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return NoopSpan()
	}
	sc := trace.SpanContextFromContext(ctx)
	s, ok := ctx.Value(spanKey{}).(Span)
	// a span context stored after ours (e.g. by extraction) takes precedence
	if ok && (!sc.IsValid() || s.SpanContext().OTel().Equal(sc)) {
		return s
	}
	if sc.IsValid() {
		return nonRecordingSpan{sc: SpanContextFromOTel(sc)}
	}
	if ok {
		return s
	}

	return NoopSpan()
}

// SpanContextFromContext returns the identity of the current span of ctx.
func SpanContextFromContext(ctx context.Context) SpanContext {
	return SpanFromContext(ctx).SpanContext()
}
