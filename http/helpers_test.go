package http

import (
	"context"
	"testing"

	"github.com/arloliu/tracebind"
	"github.com/arloliu/tracebind/correlation"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var testPropagator = propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})

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

// resetDefault clears the default provider now and after the test.
func resetDefault(t *testing.T) {
	t.Helper()

	tracebind.Reset()
	t.Cleanup(tracebind.Reset)
}

// useDefault installs a fresh default provider with the context carrier.
func useDefault(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	resetDefault(t)
	useCorrelation(t)

	tp, exp := newProvider(t)
	require.NoError(t, tracebind.SetDefault(tp))

	return exp
}
