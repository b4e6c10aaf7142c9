// Package nats traces NATS JetStream publish and consume operations with
// tracebind spans.
//
// Spans are reported through the tracebind default provider unless a
// provider is passed explicitly, so wrappers may be created before
// [tracebind.SetDefault] is called. The span context and the current
// correlation context cross the broker in message headers: the correlation
// entries are sent as W3C baggage and merged back into the correlation
// context on the consuming side.
//
// # Publisher
//
//	js, _ := jetstream.New(nc)
//	publisher := tbnats.NewPublisher(js)
//	publisher.Publish(ctx, "orders.created", data)
//
// # Consumer
//
//	consumer, _ := stream.CreateConsumer(ctx, cfg)
//	traced := tbnats.WrapConsumer(consumer, "ORDERS")
//
//	msgs, _ := traced.Fetch(10)
//	for msg := range msgs.Messages() {
//	    processOrder(msg.Context(), msg.Data())
//	    msg.Ack()
//	}
//	if err := msgs.Error(); err != nil {
//	    log.Error("fetch failed", "error", err)
//	}
//
// # Callback consumption
//
//	consumer.Consume(tbnats.MessageHandlerWithTracing(func(msg *tbnats.TracedMsg) {
//	    processOrder(msg.Context(), msg.Data())
//	    msg.Ack()
//	}, tbnats.WithStream("ORDERS")))
//
// # Standalone extraction
//
// [NewTracedMsg] extracts the propagated context of a message received by
// other means; [TracedMsg.StartProcessSpan] adds a process span on top:
//
//	ctx, end := tbnats.NewTracedMsg(msg).StartProcessSpan()
//	end(processOrder(ctx, msg.Data()))
//
// # Semantic conventions
//
// Span names and attributes follow the OpenTelemetry messaging conventions:
//   - producer spans: kind PRODUCER, name "publish {subject}"
//   - receive spans: kind CLIENT, name "receive {stream}"
//   - process spans: kind CONSUMER, name "process {stream}"
package nats
