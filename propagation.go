package tracebind

import (
	"context"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/metadata"
)

// knownPropagators lists the propagator names accepted in OTEL_PROPAGATORS.
// b3, b3multi, jaeger, xray, ottrace require additional contrib packages.
var knownPropagators = map[string]bool{
	"tracecontext": true,
	"baggage":      true,
	"b3":           true,
	"b3multi":      true,
	"jaeger":       true,
	"xray":         true,
	"ottrace":      true,
	"none":         true,
}

// buildPropagator creates a text map propagator based on configuration.
// Unknown propagator names are reported via otel.Handle and ignored.
func buildPropagator(cfg *PropConfig) propagation.TextMapPropagator {
	if cfg == nil {
		cfg = &PropConfig{Propagators: "tracecontext,baggage"}
	}

	for _, name := range splitPropagators(cfg.Propagators) {
		if !knownPropagators[name] {
			otel.Handle(errors.New("tracebind: unknown propagator \"" + name + "\" in OTEL_PROPAGATORS, ignoring"))
		}
	}

	var propagators []propagation.TextMapPropagator
	if cfg.HasTraceContext() {
		propagators = append(propagators, propagation.TraceContext{})
	}
	if cfg.HasBaggage() {
		propagators = append(propagators, propagation.Baggage{})
	}

	return propagation.NewCompositeTextMapPropagator(propagators...)
}

// Inject writes the current span context and the current correlation context
// (as baggage) of ctx into carrier using the global propagator.
func Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	otel.GetTextMapPropagator().Inject(ContextWithCorrelationBaggage(ctx), carrier)
}

// Extract reads a remote span context and baggage from carrier. The remote
// span becomes the parent of spans started from the returned context and the
// baggage is merged into its correlation context.
func Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	return ContextWithBaggageCorrelation(ctx)
}

// InjectHTTP injects trace and correlation context into HTTP headers.
func InjectHTTP(ctx context.Context, headers http.Header) {
	Inject(ctx, propagation.HeaderCarrier(headers))
}

// ExtractHTTP extracts trace and correlation context from HTTP headers.
func ExtractHTTP(ctx context.Context, headers http.Header) context.Context {
	return Extract(ctx, propagation.HeaderCarrier(headers))
}

// InjectGRPC injects trace and correlation context into gRPC metadata.
func InjectGRPC(ctx context.Context, md metadata.MD) {
	Inject(ctx, metadataCarrier(md))
}

// ExtractGRPC extracts trace and correlation context from gRPC metadata.
func ExtractGRPC(ctx context.Context, md metadata.MD) context.Context {
	return Extract(ctx, metadataCarrier(md))
}

// metadataCarrier adapts gRPC metadata to propagation.TextMapCarrier.
type metadataCarrier metadata.MD

func (m metadataCarrier) Get(key string) string {
	if vals := metadata.MD(m).Get(key); len(vals) > 0 {
		return vals[0]
	}

	return ""
}

func (m metadataCarrier) Set(key string, value string) {
	metadata.MD(m).Set(key, value)
}

func (m metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	return keys
}
