package tracebind

import (
	"context"
	"testing"

	"github.com/arloliu/tracebind/correlation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newTestProvider returns an always-sampling provider exporting synchronously
// into an in-memory exporter.
func newTestProvider(t *testing.T, opts ...ProviderOption) (*Provider, *tracetest.InMemoryExporter) {
	t.Helper()

	exp := tracetest.NewInMemoryExporter()
	base := []ProviderOption{
		WithSampler(sdktrace.AlwaysSample()),
		WithSyncer(exp),
	}
	tp := NewProvider(append(base, opts...)...)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})

	return tp, exp
}

// resetGlobals clears the default provider and the correlation carrier for
// the duration of a test.
func resetGlobals(t *testing.T) {
	t.Helper()

	Reset()
	correlation.ResetCarrier()
	t.Cleanup(func() {
		Reset()
		correlation.ResetCarrier()
	})
}
