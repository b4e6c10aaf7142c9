package nats

import (
	"github.com/arloliu/tracebind"
	"go.opentelemetry.io/otel/attribute"
)

const messagingSystem = "nats"

// Messaging semantic convention keys. nats.stream has no convention.
const (
	attrMessagingSystem          = "messaging.system"
	attrMessagingOperationName   = "messaging.operation.name"
	attrMessagingOperationType   = "messaging.operation.type"
	attrMessagingDestinationName = "messaging.destination.name"
	attrMessagingConsumerGroup   = "messaging.consumer.group.name"
	attrMessagingMessageID       = "messaging.message.id"
	attrMessagingMessageBodySize = "messaging.message.body.size"
	attrNATSStream               = "nats.stream"
)

// operation is a messaging operation and its convention type.
type operation struct {
	name string
	typ  string
}

var (
	opPublish = operation{name: "publish", typ: "send"}
	opReceive = operation{name: "receive", typ: "receive"}
	opProcess = operation{name: "process", typ: "process"}
)

func (op operation) spanName(destination string) string {
	return tracebind.NameMessaging(op.name, destination)
}

// attributes describes m for a span of op. Empty fields are left out.
func (m msgInfo) attributes(op operation) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 8)
	attrs = append(attrs,
		attribute.String(attrMessagingSystem, messagingSystem),
		attribute.String(attrMessagingOperationName, op.name),
		attribute.String(attrMessagingOperationType, op.typ),
	)

	if m.stream != "" {
		attrs = append(attrs, attribute.String(attrNATSStream, m.stream))
	}
	if m.subject != "" {
		attrs = append(attrs, attribute.String(attrMessagingDestinationName, m.subject))
	}
	if m.consumer != "" {
		attrs = append(attrs, attribute.String(attrMessagingConsumerGroup, m.consumer))
	}
	if m.id != "" {
		attrs = append(attrs, attribute.String(attrMessagingMessageID, m.id))
	}
	if m.size > 0 {
		attrs = append(attrs, attribute.Int(attrMessagingMessageBodySize, m.size))
	}

	return attrs
}
