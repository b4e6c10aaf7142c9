package grpc

import (
	"github.com/arloliu/tracebind"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/stats"
)

// ServerHandler returns a stats.Handler that starts a server span per RPC.
// Spans are reported through the tracebind default provider, also when the
// server was built before [tracebind.SetDefault].
func ServerHandler(opts ...otelgrpc.Option) stats.Handler {
	return ServerHandlerWithProviders(nil, nil, nil, opts...)
}

// ServerHandlerWithProviders is [ServerHandler] with explicit providers. A nil
// tp defers to the tracebind default provider; a nil mp or prop falls back to
// the OpenTelemetry globals.
func ServerHandlerWithProviders(
	tp tracebind.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...otelgrpc.Option,
) stats.Handler {
	return otelgrpc.NewServerHandler(append(buildProviderOptions(tp, mp, prop), opts...)...)
}

// ClientHandler returns a stats.Handler that starts a client span per RPC and
// injects the span context into the outgoing metadata.
func ClientHandler(opts ...otelgrpc.Option) stats.Handler {
	return ClientHandlerWithProviders(nil, nil, nil, opts...)
}

// ClientHandlerWithProviders is [ClientHandler] with explicit providers, see
// [ServerHandlerWithProviders] for the nil fallbacks.
func ClientHandlerWithProviders(
	tp tracebind.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...otelgrpc.Option,
) stats.Handler {
	return otelgrpc.NewClientHandler(append(buildProviderOptions(tp, mp, prop), opts...)...)
}

func buildProviderOptions(
	tp tracebind.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
) []otelgrpc.Option {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	return []otelgrpc.Option{
		otelgrpc.WithTracerProvider(tracebind.OTelTracerProvider(tp)),
		otelgrpc.WithMeterProvider(mp),
		otelgrpc.WithPropagators(prop),
	}
}
