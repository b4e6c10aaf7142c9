package nats

import (
	"context"

	"github.com/arloliu/tracebind"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// headerCarrier adapts nats.Header to propagation.TextMapCarrier.
type headerCarrier nats.Header

func (c headerCarrier) Get(key string) string {
	return nats.Header(c).Get(key)
}

func (c headerCarrier) Set(key, value string) {
	nats.Header(c).Set(key, value)
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}

	return keys
}

// inject writes the span context and the correlation context of ctx into
// the headers of msg, allocating them if needed.
func inject(ctx context.Context, msg *nats.Msg, prop propagation.TextMapPropagator) {
	if msg.Header == nil {
		msg.Header = make(nats.Header)
	}

	prop.Inject(tracebind.ContextWithCorrelationBaggage(ctx), headerCarrier(msg.Header))
}

// extract reads a remote span context from header and merges the received
// baggage into the correlation context.
func extract(ctx context.Context, header nats.Header, prop propagation.TextMapPropagator) context.Context {
	if header == nil {
		return ctx
	}

	return tracebind.ContextWithBaggageCorrelation(prop.Extract(ctx, headerCarrier(header)))
}

// InjectNATS injects the trace and correlation context of ctx into the
// headers of msg using the global propagator. A nil msg.Header is
// initialized.
func InjectNATS(ctx context.Context, msg *nats.Msg) {
	inject(ctx, msg, otel.GetTextMapPropagator())
}

// InjectNATSWithPropagator is [InjectNATS] with an explicit propagator.
func InjectNATSWithPropagator(ctx context.Context, msg *nats.Msg, prop propagation.TextMapPropagator) {
	inject(ctx, msg, prop)
}

// ExtractNATS returns a copy of ctx carrying the trace and correlation
// context found in header, using the global propagator. Spans started from
// the returned context are children of the remote span.
func ExtractNATS(ctx context.Context, header nats.Header) context.Context {
	return extract(ctx, header, otel.GetTextMapPropagator())
}

// ExtractNATSWithPropagator is [ExtractNATS] with an explicit propagator.
func ExtractNATSWithPropagator(
	ctx context.Context,
	header nats.Header,
	prop propagation.TextMapPropagator,
) context.Context {
	return extract(ctx, header, prop)
}
