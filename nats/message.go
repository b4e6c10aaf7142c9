package nats

import (
	"context"

	"github.com/arloliu/tracebind"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TracedMsg is a jetstream.Msg together with the trace and correlation
// context extracted from its headers.
type TracedMsg struct {
	jetstream.Msg
	ctx context.Context
}

// Context returns the extracted context, or context.Background() if there is
// none. Pass it to downstream calls to continue the trace.
func (m *TracedMsg) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}

	return m.ctx
}

// StartProcessSpan starts a consumer span named "process {stream}" as a
// child of the extracted context, using the tracebind default provider.
// The returned function ends the span, recording a non-nil error first.
//
// Example:
//
//	consumer.Consume(func(msg jetstream.Msg) {
//	    ctx, end := tbnats.NewTracedMsg(msg).StartProcessSpan()
//	    if err := processOrder(ctx, msg.Data()); err != nil {
//	        end(err)
//	        msg.Nak()
//	        return
//	    }
//	    end(nil)
//	    msg.Ack()
//	})
func (m *TracedMsg) StartProcessSpan(opts ...Option) (context.Context, func(error)) {
	return m.StartProcessSpanWithTracer(nil, opts...)
}

// StartProcessSpanWithTracer is [TracedMsg.StartProcessSpan] with an explicit
// provider. A nil tp defers to the tracebind default provider.
func (m *TracedMsg) StartProcessSpanWithTracer(
	tp tracebind.TracerProvider,
	opts ...Option,
) (context.Context, func(error)) {
	o := applyOptions(opts)
	ctx, span := startProcessSpan(m.Context(), o.tracer(tp), describe(m.Msg, o))

	return ctx, func(err error) { finishSpan(span, err) }
}

// NewTracedMsg wraps msg, extracting its headers with the global propagator.
//
// Use it when messages come from your own consumption loop and you want the
// propagated context without adopting [TracedConsumer]:
//
//	consumer.Consume(func(msg jetstream.Msg) {
//	    ctx := tbnats.NewTracedMsg(msg).Context()
//	    processOrder(ctx, msg)
//	    msg.Ack()
//	})
func NewTracedMsg(msg jetstream.Msg) *TracedMsg {
	return NewTracedMsgWithPropagator(msg, nil)
}

// NewTracedMsgWithPropagator is [NewTracedMsg] with an explicit propagator.
// If prop is nil, the global propagator is used.
func NewTracedMsgWithPropagator(msg jetstream.Msg, prop propagation.TextMapPropagator) *TracedMsg {
	if prop == nil {
		prop = otel.GetTextMapPropagator()
	}

	return tracedMsg(context.Background(), msg, prop)
}

func tracedMsg(ctx context.Context, msg jetstream.Msg, prop propagation.TextMapPropagator) *TracedMsg {
	if msg != nil {
		ctx = extract(ctx, msg.Headers(), prop)
	}

	return &TracedMsg{Msg: msg, ctx: ctx}
}

// TracedMessageBatch wraps a jetstream.MessageBatch, extracting the context
// of every message.
type TracedMessageBatch struct {
	batch   jetstream.MessageBatch
	msgChan chan *TracedMsg
	ctx     context.Context
	prop    propagation.TextMapPropagator
}

// Messages returns a channel of traced messages. The channel is closed when
// the batch completes; check Error afterwards.
func (b *TracedMessageBatch) Messages() <-chan *TracedMsg {
	if b.msgChan != nil {
		return b.msgChan
	}
	b.msgChan = make(chan *TracedMsg)

	go func() {
		defer close(b.msgChan)

		for msg := range b.batch.Messages() {
			b.msgChan <- tracedMsg(b.ctx, msg, b.prop)
		}
	}()

	return b.msgChan
}

// Error returns the error of the fetch, if any.
func (b *TracedMessageBatch) Error() error {
	return b.batch.Error()
}

// TracedMessagesContext wraps a jetstream.MessagesContext.
type TracedMessagesContext struct {
	messagesCtx jetstream.MessagesContext
	prop        propagation.TextMapPropagator
}

// Next blocks until the next message is available and returns it with its
// context extracted.
func (c *TracedMessagesContext) Next() (*TracedMsg, error) {
	msg, err := c.messagesCtx.Next()
	if err != nil {
		return nil, err
	}

	return tracedMsg(context.Background(), msg, c.prop), nil
}

// Stop stops the iterator.
func (c *TracedMessagesContext) Stop() {
	c.messagesCtx.Stop()
}

// Drain lets in-flight messages be processed before stopping.
func (c *TracedMessagesContext) Drain() {
	c.messagesCtx.Drain()
}
