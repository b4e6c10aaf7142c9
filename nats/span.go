package nats

import (
	"context"
	"strconv"

	"github.com/arloliu/tracebind"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// msgInfo is what the process span reports about a received message.
type msgInfo struct {
	stream   string
	consumer string
	subject  string
	id       string
	size     int
}

func describe(msg jetstream.Msg, o options) msgInfo {
	var info msgInfo
	if msg != nil {
		if md, err := msg.Metadata(); err == nil && md != nil {
			info.stream = md.Stream
			info.consumer = md.Consumer
			if md.Sequence.Stream > 0 {
				info.id = strconv.FormatUint(md.Sequence.Stream, 10)
			}
		}
		info.subject = msg.Subject()
		info.size = len(msg.Data())
	}
	if o.stream != "" {
		info.stream = o.stream
	}

	return info
}

func startProcessSpan(ctx context.Context, tracer tracebind.Tracer, info msgInfo) (context.Context, tracebind.Span) {
	return tracer.Start(ctx, opProcess.spanName(info.stream),
		tracebind.WithSpanKind(trace.SpanKindConsumer),
		tracebind.WithAttributes(info.attributes(opProcess)...),
	)
}

// finishSpan records err, if any, and ends span.
func finishSpan(span tracebind.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
