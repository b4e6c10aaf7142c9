package tracebind

import (
	"go.opentelemetry.io/otel/trace"
)

// SpanContextConfig holds the fields used to build a [SpanContext].
type SpanContextConfig struct {
	TraceID    trace.TraceID
	SpanID     trace.SpanID
	TraceFlags trace.TraceFlags
	Remote     bool
}

// SpanContext is the immutable identity of a span: trace id, span id and
// trace flags. It is safe to copy and compare.
type SpanContext struct {
	traceID trace.TraceID
	spanID  trace.SpanID
	flags   trace.TraceFlags
	remote  bool
}

// NewSpanContext creates a SpanContext from cfg.
func NewSpanContext(cfg SpanContextConfig) SpanContext {
	return SpanContext{
		traceID: cfg.TraceID,
		spanID:  cfg.SpanID,
		flags:   cfg.TraceFlags,
		remote:  cfg.Remote,
	}
}

// SpanContextFromOTel converts an OpenTelemetry span context.
func SpanContextFromOTel(sc trace.SpanContext) SpanContext {
	return SpanContext{
		traceID: sc.TraceID(),
		spanID:  sc.SpanID(),
		flags:   sc.TraceFlags(),
		remote:  sc.IsRemote(),
	}
}

// TraceID returns the 128-bit trace identifier.
func (sc SpanContext) TraceID() trace.TraceID { return sc.traceID }

// SpanID returns the 64-bit span identifier.
func (sc SpanContext) SpanID() trace.SpanID { return sc.spanID }

// TraceFlags returns the trace flags.
func (sc SpanContext) TraceFlags() trace.TraceFlags { return sc.flags }

// IsValid reports whether both the trace id and the span id are non-zero.
func (sc SpanContext) IsValid() bool {
	return sc.traceID.IsValid() && sc.spanID.IsValid()
}

// IsSampled reports whether the sampled flag is set.
func (sc SpanContext) IsSampled() bool { return sc.flags.IsSampled() }

// IsRemote reports whether the context was received from a remote peer.
func (sc SpanContext) IsRemote() bool { return sc.remote }

// Equal reports whether sc and other carry the same identity and flags.
func (sc SpanContext) Equal(other SpanContext) bool {
	return sc == other
}

// OTel converts sc into the OpenTelemetry representation used by propagators
// and exporters.
func (sc SpanContext) OTel() trace.SpanContext {
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    sc.traceID,
		SpanID:     sc.spanID,
		TraceFlags: sc.flags,
		Remote:     sc.remote,
	})
}
