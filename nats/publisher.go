package nats

import (
	"context"
	"strconv"

	"github.com/arloliu/tracebind"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Publisher wraps JetStream publish operations with producer spans.
type Publisher struct {
	js     jetstream.JetStream
	tracer tracebind.Tracer
	prop   propagation.TextMapPropagator
	opts   options
}

// NewPublisher creates a Publisher reporting through the tracebind default
// provider.
func NewPublisher(js jetstream.JetStream, opts ...Option) *Publisher {
	return NewPublisherWithProviders(js, nil, nil, opts...)
}

// NewPublisherWithProviders creates a Publisher with explicit providers.
// A nil tp defers to the tracebind default provider. A nil prop falls back
// to [WithPropagator], then to the global propagator.
//
// Panics if js is nil.
func NewPublisherWithProviders(
	js jetstream.JetStream,
	tp tracebind.TracerProvider,
	prop propagation.TextMapPropagator,
	opts ...Option,
) *Publisher {
	if js == nil {
		panic("tracebind/nats: JetStream must not be nil")
	}
	o := applyOptions(opts)
	if prop != nil {
		o.prop = prop
	}

	return &Publisher{
		js:     js,
		tracer: o.tracer(tp),
		prop:   o.propagator(),
		opts:   o,
	}
}

// JetStream returns the underlying JetStream client for non-traced operations.
func (p *Publisher) JetStream() jetstream.JetStream {
	return p.js
}

func (p *Publisher) startPublish(ctx context.Context, msg *nats.Msg) (context.Context, tracebind.Span) {
	info := msgInfo{subject: msg.Subject, size: len(msg.Data)}
	ctx, span := p.tracer.Start(ctx, opPublish.spanName(msg.Subject),
		tracebind.WithSpanKind(trace.SpanKindProducer),
		tracebind.WithAttributes(info.attributes(opPublish)...),
	)
	inject(ctx, msg, p.prop)

	return ctx, span
}

// Publish publishes data on subject under a producer span. The span context
// and the correlation context of ctx travel in the message headers.
func (p *Publisher) Publish(
	ctx context.Context,
	subject string,
	data []byte,
	opts ...jetstream.PublishOpt,
) (*jetstream.PubAck, error) {
	return p.PublishMsg(ctx, &nats.Msg{Subject: subject, Data: data}, opts...)
}

// PublishMsg is [Publisher.Publish] for a prepared message. Existing headers
// are kept; a nil msg.Header is initialized.
func (p *Publisher) PublishMsg(
	ctx context.Context,
	msg *nats.Msg,
	opts ...jetstream.PublishOpt,
) (*jetstream.PubAck, error) {
	ctx, span := p.startPublish(ctx, msg)

	ack, err := p.js.PublishMsg(ctx, msg, opts...)
	if err != nil {
		finishSpan(span, err)
		return nil, err
	}
	if ack != nil {
		span.SetAttributes(attribute.String(attrMessagingMessageID, strconv.FormatUint(ack.Sequence, 10)))
	}
	span.End()

	return ack, nil
}

// PublishAsync publishes data without waiting for the acknowledgement. The
// producer span is a root span covering the initiation only, not the ack.
// With WithAsyncSpans(false) no span is started and no headers are injected.
func (p *Publisher) PublishAsync(
	subject string,
	data []byte,
	opts ...jetstream.PublishOpt,
) (jetstream.PubAckFuture, error) {
	return p.PublishAsyncMsg(&nats.Msg{Subject: subject, Data: data}, opts...)
}

// PublishAsyncMsg is [Publisher.PublishAsync] for a prepared message.
func (p *Publisher) PublishAsyncMsg(
	msg *nats.Msg,
	opts ...jetstream.PublishOpt,
) (jetstream.PubAckFuture, error) {
	if !p.opts.asyncSpans {
		return p.js.PublishMsgAsync(msg, opts...)
	}

	_, span := p.startPublish(context.Background(), msg)

	future, err := p.js.PublishMsgAsync(msg, opts...)
	finishSpan(span, err)
	if err != nil {
		return nil, err
	}

	return future, nil
}
