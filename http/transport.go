package http

import (
	"net/http"

	"github.com/arloliu/tracebind"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// Transport wraps base with a client span per request. The span context and
// the current correlation context are injected into the request headers.
// If base is nil, http.DefaultTransport is used.
//
// Usage:
//
//	client := &http.Client{
//	    Transport: tbhttp.Transport(http.DefaultTransport),
//	}
func Transport(base http.RoundTripper, opts ...otelhttp.Option) http.RoundTripper {
	return TransportWithProviders(base, nil, nil, nil, opts...)
}

// TransportWithProviders is [Transport] with explicit providers. A nil tp
// defers to the tracebind default provider; a nil mp or prop falls back to
// the OpenTelemetry globals.
func TransportWithProviders(
	base http.RoundTripper,
	tp tracebind.TracerProvider,
	mp metric.MeterProvider,
	prop propagation.TextMapPropagator,
	opts ...otelhttp.Option,
) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}

	allOpts := append(buildProviderOptions(tp, mp, prop), opts...)

	return correlationTransport{next: otelhttp.NewTransport(base, allOpts...)}
}

// correlationTransport exposes the correlation context as baggage to the
// wrapped otelhttp transport, which injects it.
type correlationTransport struct {
	next http.RoundTripper
}

func (t correlationTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	if withBag := tracebind.ContextWithCorrelationBaggage(ctx); withBag != ctx {
		r = r.WithContext(withBag)
	}

	return t.next.RoundTrip(r)
}
