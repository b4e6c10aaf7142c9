package tracebind

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
)

// OTelTracerProvider exposes tp through the OpenTelemetry trace API so that
// OpenTelemetry instrumentation (otelhttp, otelgrpc) produces tracebind spans.
// Pass [GlobalTracerProvider] to keep deferred binding.
func OTelTracerProvider(tp TracerProvider) trace.TracerProvider {
	if tp == nil {
		tp = GlobalTracerProvider()
	}

	return &otelTracerProvider{tp: tp}
}

type otelTracerProvider struct {
	embedded.TracerProvider

	tp TracerProvider
}

func (p *otelTracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	cfg := trace.NewTracerConfig(opts...)

	return &otelTracer{
		provider: p,
		tracer:   p.tp.Tracer(name, WithInstrumentationVersion(cfg.InstrumentationVersion())),
	}
}

type otelTracer struct {
	embedded.Tracer

	provider *otelTracerProvider
	tracer   Tracer
}

func (t *otelTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)

	startOpts := []SpanStartOption{
		WithSpanKind(cfg.SpanKind()),
		WithAttributes(cfg.Attributes()...),
	}
	if ts := cfg.Timestamp(); !ts.IsZero() {
		startOpts = append(startOpts, WithTimestamp(ts))
	}
	if cfg.NewRoot() {
		startOpts = append(startOpts, WithNewRoot())
	}

	ctx, span := t.tracer.Start(ctx, name, startOpts...)
	os := &otelSpan{span: span, provider: t.provider}
	if !span.SpanContext().IsValid() {
		return ctx, os
	}

	return trace.ContextWithSpan(ctx, os), os
}

type otelSpan struct {
	embedded.Span

	span     Span
	provider *otelTracerProvider
}

func (s *otelSpan) End(opts ...trace.SpanEndOption) {
	cfg := trace.NewSpanEndConfig(opts...)
	if rs, ok := s.span.(*recordingSpan); ok {
		rs.endAt(cfg.Timestamp())
		return
	}
	s.span.End()
}

func (s *otelSpan) AddEvent(name string, opts ...trace.EventOption) {
	cfg := trace.NewEventConfig(opts...)
	s.span.AddEvent(name, cfg.Attributes()...)
}

// AddLink is not supported; links are ignored.
func (s *otelSpan) AddLink(trace.Link) {}

func (s *otelSpan) IsRecording() bool { return s.span.IsRecording() }

func (s *otelSpan) RecordError(err error, opts ...trace.EventOption) {
	cfg := trace.NewEventConfig(opts...)
	s.span.RecordError(err, cfg.Attributes()...)
}

func (s *otelSpan) SpanContext() trace.SpanContext { return s.span.SpanContext().OTel() }

func (s *otelSpan) SetStatus(code codes.Code, description string) {
	s.span.SetStatus(code, description)
}

func (s *otelSpan) SetName(name string) { s.span.SetName(name) }

func (s *otelSpan) SetAttributes(kv ...attribute.KeyValue) { s.span.SetAttributes(kv...) }

func (s *otelSpan) TracerProvider() trace.TracerProvider { return s.provider }
