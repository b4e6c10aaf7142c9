package nats

import (
	"context"
	"testing"
	"time"

	"github.com/arloliu/tracebind"
	"github.com/arloliu/tracebind/correlation"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var testPropagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})

// mockMsg implements jetstream.Msg.
type mockMsg struct {
	subject  string
	data     []byte
	headers  nats.Header
	metadata *jetstream.MsgMetadata
}

func (m *mockMsg) Subject() string                           { return m.subject }
func (m *mockMsg) Data() []byte                              { return m.data }
func (m *mockMsg) Headers() nats.Header                      { return m.headers }
func (*mockMsg) Reply() string                               { return "" }
func (*mockMsg) Ack() error                                  { return nil }
func (*mockMsg) DoubleAck(_ context.Context) error           { return nil }
func (*mockMsg) Nak() error                                  { return nil }
func (*mockMsg) NakWithDelay(_ time.Duration) error          { return nil }
func (*mockMsg) Term() error                                 { return nil }
func (*mockMsg) TermWithReason(_ string) error               { return nil }
func (*mockMsg) InProgress() error                           { return nil }
func (m *mockMsg) Metadata() (*jetstream.MsgMetadata, error) { return m.metadata, nil }

// fakeJetStream records published messages. Methods it does not override
// panic through the nil embedded interface.
type fakeJetStream struct {
	jetstream.JetStream
	published []*nats.Msg
	ack       *jetstream.PubAck
	err       error
}

func (f *fakeJetStream) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.published = append(f.published, msg)
	if f.err != nil {
		return nil, f.err
	}

	return f.ack, nil
}

func (f *fakeJetStream) PublishMsgAsync(msg *nats.Msg, _ ...jetstream.PublishOpt) (jetstream.PubAckFuture, error) {
	f.published = append(f.published, msg)

	return nil, f.err
}

// fakeBatch serves a fixed set of messages.
type fakeBatch struct {
	jetstream.MessageBatch
	msgs []jetstream.Msg
	err  error
}

func (b *fakeBatch) Messages() <-chan jetstream.Msg {
	ch := make(chan jetstream.Msg, len(b.msgs))
	for _, m := range b.msgs {
		ch <- m
	}
	close(ch)

	return ch
}

func (b *fakeBatch) Error() error { return b.err }

type fakeConsumer struct {
	jetstream.Consumer
	info  *jetstream.ConsumerInfo
	msgs  []jetstream.Msg
	err   error
	calls []string
}

func (c *fakeConsumer) CachedInfo() *jetstream.ConsumerInfo { return c.info }

func (c *fakeConsumer) batch(call string) (jetstream.MessageBatch, error) {
	c.calls = append(c.calls, call)
	if c.err != nil {
		return nil, c.err
	}

	return &fakeBatch{msgs: c.msgs}, nil
}

func (c *fakeConsumer) Fetch(int, ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	return c.batch("fetch")
}

func (c *fakeConsumer) FetchBytes(int, ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	return c.batch("fetch_bytes")
}

func (c *fakeConsumer) FetchNoWait(int) (jetstream.MessageBatch, error) {
	return c.batch("fetch_no_wait")
}

func (c *fakeConsumer) Next(...jetstream.FetchOpt) (jetstream.Msg, error) {
	c.calls = append(c.calls, "next")
	if c.err != nil {
		return nil, c.err
	}

	return c.msgs[0], nil
}

func newProvider(t *testing.T) (*tracebind.Provider, *tracetest.InMemoryExporter) {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	tp := tracebind.NewProvider(
		tracebind.WithSampler(sdktrace.AlwaysSample()),
		tracebind.WithSyncer(exp),
	)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return tp, exp
}

// useCorrelation installs the context carrier for the duration of the test.
func useCorrelation(t *testing.T) {
	t.Helper()

	correlation.SetCarrier(correlation.ContextCarrier{})
	t.Cleanup(correlation.ResetCarrier)
}

// headersFrom returns the headers a publisher would send from ctx.
func headersFrom(ctx context.Context) nats.Header {
	msg := &nats.Msg{}
	InjectNATSWithPropagator(ctx, msg, testPropagator)

	return msg.Header
}

func spanAttrMap(span tracetest.SpanStub) map[string]any {
	return attrMap(span.Attributes)
}
