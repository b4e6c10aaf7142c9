package nats

import (
	"context"
	"fmt"

	"github.com/arloliu/tracebind"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

// MessageHandlerWithTracing adapts handler to a jetstream.MessageHandler that
// extracts the trace and correlation context of each message and runs
// handler inside a process span. The stream name is read from the message
// metadata unless [WithStream] is given.
//
// Example:
//
//	consumer.Consume(tbnats.MessageHandlerWithTracing(func(msg *tbnats.TracedMsg) {
//	    processOrder(msg.Context(), msg.Data())
//	    msg.Ack()
//	}))
func MessageHandlerWithTracing(
	handler func(*TracedMsg),
	opts ...Option,
) jetstream.MessageHandler {
	return MessageHandlerWithTracingProviders(handler, nil, nil, opts...)
}

// MessageHandlerWithTracingProviders is [MessageHandlerWithTracing] with
// explicit providers. A nil tp defers to the tracebind default provider and
// a nil prop falls back to the global propagator.
//
// Panics if handler is nil.
func MessageHandlerWithTracingProviders(
	handler func(*TracedMsg),
	tp tracebind.TracerProvider,
	prop propagation.TextMapPropagator,
	opts ...Option,
) jetstream.MessageHandler {
	if handler == nil {
		panic("tracebind/nats: handler must not be nil")
	}
	o := applyOptions(opts)
	if prop != nil {
		o.prop = prop
	}
	tracer := o.tracer(tp)
	propagator := o.propagator()

	return func(msg jetstream.Msg) {
		ctx := extract(context.Background(), msg.Headers(), propagator)
		if !o.processSpans {
			handler(&TracedMsg{Msg: msg, ctx: ctx})
			return
		}

		ctx, span := startProcessSpan(ctx, tracer, describe(msg, o))
		defer func() {
			if r := recover(); r != nil {
				span.RecordError(fmt.Errorf("panic: %v", r))
				span.SetStatus(codes.Error, "panic in handler")
				span.End()
				panic(r)
			}
			span.End()
		}()

		handler(&TracedMsg{Msg: msg, ctx: ctx})
	}
}
