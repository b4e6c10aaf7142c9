package nats

import (
	"context"

	"github.com/arloliu/tracebind"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// TracedConsumer wraps a jetstream.Consumer with receive spans.
type TracedConsumer struct {
	consumer jetstream.Consumer
	stream   string
	tracer   tracebind.Tracer
	prop     propagation.TextMapPropagator
}

// WrapConsumer wraps c, reporting through the tracebind default provider.
func WrapConsumer(c jetstream.Consumer, stream string, opts ...Option) *TracedConsumer {
	return WrapConsumerWithProviders(c, stream, nil, nil, opts...)
}

// WrapConsumerWithProviders wraps c with explicit providers. A nil tp
// defers to the tracebind default provider. A nil prop falls back to
// [WithPropagator], then to the global propagator.
//
// Panics if c is nil.
func WrapConsumerWithProviders(
	c jetstream.Consumer,
	stream string,
	tp tracebind.TracerProvider,
	prop propagation.TextMapPropagator,
	opts ...Option,
) *TracedConsumer {
	if c == nil {
		panic("tracebind/nats: Consumer must not be nil")
	}
	o := applyOptions(opts)
	if prop != nil {
		o.prop = prop
	}

	return &TracedConsumer{
		consumer: c,
		stream:   stream,
		tracer:   o.tracer(tp),
		prop:     o.propagator(),
	}
}

// Consumer returns the underlying jetstream.Consumer for non-traced operations.
func (tc *TracedConsumer) Consumer() jetstream.Consumer {
	return tc.consumer
}

// CachedInfo returns the cached consumer info.
func (tc *TracedConsumer) CachedInfo() *jetstream.ConsumerInfo {
	return tc.consumer.CachedInfo()
}

// Info fetches the latest consumer info.
func (tc *TracedConsumer) Info(ctx context.Context) (*jetstream.ConsumerInfo, error) {
	return tc.consumer.Info(ctx)
}

func (tc *TracedConsumer) startReceive() (context.Context, tracebind.Span) {
	name := ""
	if info := tc.consumer.CachedInfo(); info != nil {
		name = info.Name
	}

	info := msgInfo{stream: tc.stream, consumer: name}

	return tc.tracer.Start(context.Background(), opReceive.spanName(tc.stream),
		tracebind.WithSpanKind(trace.SpanKindClient),
		tracebind.WithAttributes(info.attributes(opReceive)...),
	)
}

// fetch runs pull under a receive span. Messages without propagated
// headers are parented to the receive span.
func (tc *TracedConsumer) fetch(pull func() (jetstream.MessageBatch, error)) (*TracedMessageBatch, error) {
	ctx, span := tc.startReceive()

	batch, err := pull()
	finishSpan(span, err)
	if err != nil {
		return nil, err
	}

	return &TracedMessageBatch{batch: batch, ctx: ctx, prop: tc.prop}, nil
}

// Fetch retrieves up to batch messages under a receive span.
func (tc *TracedConsumer) Fetch(batch int, opts ...jetstream.FetchOpt) (*TracedMessageBatch, error) {
	return tc.fetch(func() (jetstream.MessageBatch, error) {
		return tc.consumer.Fetch(batch, opts...)
	})
}

// FetchBytes retrieves messages up to maxBytes under a receive span.
func (tc *TracedConsumer) FetchBytes(maxBytes int, opts ...jetstream.FetchOpt) (*TracedMessageBatch, error) {
	return tc.fetch(func() (jetstream.MessageBatch, error) {
		return tc.consumer.FetchBytes(maxBytes, opts...)
	})
}

// FetchNoWait retrieves the messages available now.
func (tc *TracedConsumer) FetchNoWait(batch int) (*TracedMessageBatch, error) {
	return tc.fetch(func() (jetstream.MessageBatch, error) {
		return tc.consumer.FetchNoWait(batch)
	})
}

// Messages returns an iterator for continuous consumption. Each message
// carries its extracted context.
func (tc *TracedConsumer) Messages(opts ...jetstream.PullMessagesOpt) (*TracedMessagesContext, error) {
	messagesCtx, err := tc.consumer.Messages(opts...)
	if err != nil {
		return nil, err
	}

	return &TracedMessagesContext{messagesCtx: messagesCtx, prop: tc.prop}, nil
}

// Next retrieves a single message under a receive span.
func (tc *TracedConsumer) Next(opts ...jetstream.FetchOpt) (*TracedMsg, error) {
	_, span := tc.startReceive()

	msg, err := tc.consumer.Next(opts...)
	finishSpan(span, err)
	if err != nil {
		return nil, err
	}

	return tracedMsg(context.Background(), msg, tc.prop), nil
}

// Consume starts callback consumption. Wrap handler with
// [MessageHandlerWithTracing] to get process spans.
func (tc *TracedConsumer) Consume(
	handler jetstream.MessageHandler,
	opts ...jetstream.PullConsumeOpt,
) (jetstream.ConsumeContext, error) {
	return tc.consumer.Consume(handler, opts...)
}
