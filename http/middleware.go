package http

import (
	"net/http"

	"github.com/arloliu/tracebind"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultOperation is the span name used by [Middleware].
const DefaultOperation = "http.request"

// Handler wraps handler with a server span named operation.
//
// Spans are reported through the tracebind default provider. A handler built
// before [tracebind.SetDefault] starts recording once a default is set.
// Baggage received with the request becomes part of the correlation context
// seen by handler.
func Handler(handler http.Handler, operation string, opts ...otelhttp.Option) http.Handler {
	return HandlerWithProviders(handler, operation, nil, nil, nil, opts...)
}

// HandlerWithProviders is [Handler] with explicit providers. A nil tp
// defers to the tracebind default provider; a nil mp or prop falls back to
// the OpenTelemetry globals.
//
// Usage:
//
//	http.Handle("/api", tbhttp.HandlerWithProviders(
//	    myHandler,
//	    "api.request",
//	    tracerProvider,
//	    meterProvider,
//	    propagator,
//	))
func HandlerWithProviders(
	handler http.Handler,
	operation string,
	tp tracebind.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...otelhttp.Option,
) http.Handler {
	allOpts := append(buildProviderOptions(tp, mp, prop), opts...)

	return otelhttp.NewHandler(withCorrelation(handler), operation, allOpts...)
}

// Middleware returns middleware that traces HTTP requests under
// [DefaultOperation].
//
// Usage:
//
//	http.Handle("/api", tbhttp.Middleware()(myHandler))
func Middleware(opts ...otelhttp.Option) func(http.Handler) http.Handler {
	return MiddlewareWithProviders(nil, nil, nil, opts...)
}

// MiddlewareWithProviders is [Middleware] with explicit providers, see
// [HandlerWithProviders] for the nil fallbacks.
func MiddlewareWithProviders(
	tp tracebind.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...otelhttp.Option,
) func(http.Handler) http.Handler {
	allOpts := append(buildProviderOptions(tp, mp, prop), opts...)

	return func(next http.Handler) http.Handler {
		return otelhttp.NewMiddleware(DefaultOperation, allOpts...)(withCorrelation(next))
	}
}

// withCorrelation runs after otelhttp extracted the request headers.
func withCorrelation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(tracebind.ContextWithBaggageCorrelation(r.Context())))
	})
}

// buildProviderOptions maps tracebind and OpenTelemetry providers to otelhttp
// options.
func buildProviderOptions(
	tp tracebind.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
) []otelhttp.Option {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	return []otelhttp.Option{
		otelhttp.WithTracerProvider(tracebind.OTelTracerProvider(tp)),
		otelhttp.WithMeterProvider(mp),
		otelhttp.WithPropagators(prop),
	}
}
