package engine

import (
	"context"
	"testing"
	"time"

	"github.com/arloliu/tracebind"
	"github.com/arloliu/tracebind/cmd/tracebind-sim/scenario"
	"github.com/arloliu/tracebind/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/log/global"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// newTestEngine builds an engine that records into an in-memory exporter and
// restores the process-wide telemetry state when the test ends.
func newTestEngine(t *testing.T, cfg Config, s *scenario.Scenario) (*Engine, *tracetest.InMemoryExporter) {
	t.Helper()

	prop := otel.GetTextMapPropagator()
	otp := otel.GetTracerProvider()
	lp := global.GetLoggerProvider()
	tracebind.Reset()
	t.Cleanup(func() {
		tracebind.Reset()
		correlation.ResetCarrier()
		otel.SetTextMapPropagator(prop)
		otel.SetTracerProvider(otp)
		global.SetLoggerProvider(lp)
	})

	if cfg.ServiceName == "" {
		cfg.ServiceName = "sim-test"
	}
	cfg.Exporter = "none"

	exp := tracetest.NewInMemoryExporter()
	e, err := New(context.Background(), cfg, s,
		tracebind.WithSampler(sdktrace.AlwaysSample()),
		tracebind.WithSyncer(exp),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })

	return e, exp
}

// fanOutScenario is a zero-duration trace with a parallel fan-out and
// correlation entries at two levels.
func fanOutScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Name: "fan-out",
		RootSpan: scenario.SpanTemplate{
			Name:        "POST /orders",
			Service:     "gateway",
			Kind:        scenario.SpanKindServer,
			Correlation: map[string]string{"tenant.id": "acme"},
			Children: []scenario.SpanTemplate{
				{
					Name:        "PlaceOrder",
					Service:     "orders",
					Kind:        scenario.SpanKindInternal,
					Correlation: map[string]string{"order.id": "o-1"},
					Parallel:    true,
					Attributes:  map[string]string{"order.items": "3"},
					Children: []scenario.SpanTemplate{
						{Name: "Reserve", Service: "inventory", Kind: scenario.SpanKindClient},
						{Name: "Charge", Service: "billing", Kind: scenario.SpanKindClient},
						{Name: "Notify", Service: "mailer", Kind: scenario.SpanKindProducer},
					},
				},
				{Name: "Audit", Service: "audit", Kind: scenario.SpanKindConsumer},
			},
		},
	}
}

func spansByName(spans tracetest.SpanStubs) map[string]tracetest.SpanStub {
	m := make(map[string]tracetest.SpanStub, len(spans))
	for _, s := range spans {
		m[s.Name] = s
	}

	return m
}

func TestNew_NilScenario(t *testing.T) {
	_, err := New(context.Background(), Config{ServiceName: "sim"}, nil)
	require.ErrorIs(t, err, tracebind.ErrInvalidArgument)
}

func TestNew_AlreadyInitialized(t *testing.T) {
	newTestEngine(t, Config{}, fanOutScenario())

	_, err := New(context.Background(), Config{ServiceName: "again", Exporter: "none"}, fanOutScenario())
	require.ErrorIs(t, err, tracebind.ErrAlreadyInitialized)
}

func TestNew_TracersRequestedBeforeSetupRecord(t *testing.T) {
	e, exp := newTestEngine(t, Config{}, fanOutScenario())

	for _, service := range []string{"gateway", "orders", "inventory", "billing", "mailer", "audit"} {
		require.Contains(t, e.tracers, service)
	}
	assert.NotNil(t, e.Telemetry().Tracer)

	require.NoError(t, e.GenerateTrace(context.Background()))
	assert.Len(t, exp.GetSpans(), 6)
}

func TestGenerateTrace_Structure(t *testing.T) {
	e, exp := newTestEngine(t, Config{}, fanOutScenario())

	require.NoError(t, e.GenerateTrace(context.Background()))

	spans := spansByName(exp.GetSpans())
	require.Len(t, spans, 6)

	root := spans["POST /orders"]
	assert.False(t, root.Parent.IsValid())
	assert.Equal(t, trace.SpanKindServer, root.SpanKind)
	assert.Equal(t, "gateway", root.InstrumentationScope.Name)

	place := spans["PlaceOrder"]
	assert.Equal(t, root.SpanContext.SpanID(), place.Parent.SpanID())
	assert.Equal(t, spans["Audit"].Parent.SpanID(), root.SpanContext.SpanID())

	for _, name := range []string{"Reserve", "Charge", "Notify"} {
		child := spans[name]
		assert.Equal(t, place.SpanContext.SpanID(), child.Parent.SpanID(), name)
		assert.Equal(t, root.SpanContext.TraceID(), child.SpanContext.TraceID(), name)
	}
	assert.Equal(t, trace.SpanKindProducer, spans["Notify"].SpanKind)
	assert.Equal(t, trace.SpanKindConsumer, spans["Audit"].SpanKind)
	assert.Contains(t, place.Attributes, attribute.Int64("order.items", 3))
}

func TestGenerateTrace_CorrelationAttributes(t *testing.T) {
	e, exp := newTestEngine(t, Config{}, fanOutScenario())

	ctx := context.Background()
	require.NoError(t, e.GenerateTrace(ctx))

	spans := spansByName(exp.GetSpans())
	tenant := attribute.String("correlation.tenant.id", "acme")
	order := attribute.String("correlation.order.id", "o-1")

	assert.Contains(t, spans["POST /orders"].Attributes, tenant)
	assert.NotContains(t, spans["POST /orders"].Attributes, order)
	for _, name := range []string{"PlaceOrder", "Reserve", "Charge", "Notify"} {
		assert.Contains(t, spans[name].Attributes, tenant, name)
		assert.Contains(t, spans[name].Attributes, order, name)
	}
	assert.Contains(t, spans["Audit"].Attributes, tenant)
	assert.NotContains(t, spans["Audit"].Attributes, order, "scope closed with PlaceOrder")

	assert.Empty(t, correlation.Current(ctx).Entries(), "scopes are released after the trace")
}

func TestGenerateTrace_ServiceNameIsResource(t *testing.T) {
	e, exp := newTestEngine(t, Config{ServiceName: "edge"}, fanOutScenario())

	require.NoError(t, e.GenerateTrace(context.Background()))

	spans := spansByName(exp.GetSpans())
	root := spans["POST /orders"]
	assert.Equal(t, "gateway", root.InstrumentationScope.Name)
	assert.Equal(t, "orders", spans["PlaceOrder"].InstrumentationScope.Name)

	require.NotNil(t, root.Resource)
	name, ok := root.Resource.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "edge", name.AsString())
}

func TestGenerateTrace_Errors(t *testing.T) {
	s := &scenario.Scenario{
		Name: "failing",
		RootSpan: scenario.SpanTemplate{
			Name:        "Charge",
			Service:     "billing",
			Kind:        scenario.SpanKindClient,
			ErrorRate:   1,
			ErrorStatus: "card declined",
		},
	}

	t.Run("enabled", func(t *testing.T) {
		e, exp := newTestEngine(t, Config{}, s)
		require.NoError(t, e.GenerateTrace(context.Background()))

		spans := exp.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, "card declined", spans[0].Status.Description)
		require.Len(t, spans[0].Events, 1)
		assert.Equal(t, "exception", spans[0].Events[0].Name)
	})

	t.Run("disabled", func(t *testing.T) {
		e, exp := newTestEngine(t, Config{DisableErrors: true}, s)
		require.NoError(t, e.GenerateTrace(context.Background()))

		spans := exp.GetSpans()
		require.Len(t, spans, 1)
		assert.Empty(t, spans[0].Events)
	})
}

func TestGenerateTrace_WithLogs(t *testing.T) {
	s := scenario.HealthCheckScenario()
	e, exp := newTestEngine(t, Config{EnableLogs: true}, s)
	require.NotNil(t, e.logger)

	require.NoError(t, e.GenerateTrace(context.Background()))
	assert.Len(t, exp.GetSpans(), s.RootSpan.Count())
}

func TestGenerateTrace_Canceled(t *testing.T) {
	s := &scenario.Scenario{
		Name: "slow",
		RootSpan: scenario.SpanTemplate{
			Name:     "slow",
			Service:  "svc",
			Kind:     scenario.SpanKindInternal,
			Duration: scenario.Duration(time.Hour),
		},
	}
	e, exp := newTestEngine(t, Config{}, s)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, e.GenerateTrace(ctx), context.Canceled)
	assert.Len(t, exp.GetSpans(), 1, "span is ended on cancellation")
}

func TestGenerateTrace_PaymentScenario(t *testing.T) {
	s, ok := scenario.Get("payment")
	require.True(t, ok)
	e, exp := newTestEngine(t, Config{}, s)

	require.NoError(t, e.GenerateTrace(context.Background()))
	assert.Len(t, exp.GetSpans(), s.RootSpan.Count())
}

func TestSleep(t *testing.T) {
	require.NoError(t, sleep(context.Background(), 0))
	require.NoError(t, sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
}

func TestToTraceSpanKind(t *testing.T) {
	tests := []struct {
		input    scenario.SpanKind
		expected trace.SpanKind
	}{
		{scenario.SpanKindServer, trace.SpanKindServer},
		{scenario.SpanKindClient, trace.SpanKindClient},
		{scenario.SpanKindProducer, trace.SpanKindProducer},
		{scenario.SpanKindConsumer, trace.SpanKindConsumer},
		{scenario.SpanKindInternal, trace.SpanKindInternal},
		{"UNKNOWN", trace.SpanKindInternal}, // Default case
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			result := toTraceSpanKind(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestToLogSeverity(t *testing.T) {
	tests := []struct {
		input    string
		expected string // Compare string representation
	}{
		{"DEBUG", "DEBUG"},
		{"INFO", "INFO"},
		{"WARN", "WARN"},
		{"ERROR", "ERROR"},
		{"UNKNOWN", "INFO"}, // Default case
		{"", "INFO"},        // Empty string
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := toLogSeverity(tt.input)
			assert.Equal(t, tt.expected, result.String())
		})
	}
}

func TestParseAttributes_StringValues(t *testing.T) {
	attrs := map[string]string{
		"string.key":  "string-value",
		"another.key": "another-value",
	}

	result := parseAttributes(attrs)

	assert.Len(t, result, 2)

	resultMap := attrMapFromSlice(result)
	assert.Equal(t, "string-value", resultMap["string.key"])
	assert.Equal(t, "another-value", resultMap["another.key"])
}

func TestParseAttributes_IntValues(t *testing.T) {
	attrs := map[string]string{
		"int.key":      "42",
		"negative.key": "-10",
	}

	result := parseAttributes(attrs)

	assert.Len(t, result, 2)

	resultMap := attrMapFromSlice(result)
	assert.Equal(t, int64(42), resultMap["int.key"])
	assert.Equal(t, int64(-10), resultMap["negative.key"])
}

func TestParseAttributes_FloatValues(t *testing.T) {
	attrs := map[string]string{
		"float.key":   "3.14",
		"percent.key": "0.95",
	}

	result := parseAttributes(attrs)

	assert.Len(t, result, 2)

	resultMap := attrMapFromSlice(result)
	assert.Equal(t, 3.14, resultMap["float.key"])
	assert.Equal(t, 0.95, resultMap["percent.key"])
}

func TestParseAttributes_BoolValues(t *testing.T) {
	attrs := map[string]string{
		"true.key":  "true",
		"false.key": "false",
	}

	result := parseAttributes(attrs)

	assert.Len(t, result, 2)

	resultMap := attrMapFromSlice(result)
	assert.Equal(t, true, resultMap["true.key"])
	assert.Equal(t, false, resultMap["false.key"])
}

func TestParseAttributes_MixedValues(t *testing.T) {
	attrs := map[string]string{
		"string": "hello",
		"int":    "100",
		"float":  "1.5",
		"bool":   "true",
	}

	result := parseAttributes(attrs)

	assert.Len(t, result, 4)

	resultMap := attrMapFromSlice(result)
	assert.Equal(t, "hello", resultMap["string"])
	assert.Equal(t, int64(100), resultMap["int"])
	assert.Equal(t, 1.5, resultMap["float"])
	assert.Equal(t, true, resultMap["bool"])
}

func TestParseAttributes_EmptyMap(t *testing.T) {
	result := parseAttributes(map[string]string{})
	assert.Empty(t, result)
}

func TestEngine_ApplyJitter_ZeroPercent(t *testing.T) {
	e := &Engine{jitterPct: 0}
	d := 100 * time.Millisecond

	result := e.applyJitter(d)

	assert.Equal(t, d, result)
}

func TestEngine_ApplyJitter_NegativePercent(t *testing.T) {
	e := &Engine{jitterPct: -10}
	d := 100 * time.Millisecond

	result := e.applyJitter(d)

	assert.Equal(t, d, result)
}

func TestEngine_ApplyJitter_WithJitter(t *testing.T) {
	e := &Engine{jitterPct: 50}
	d := 100 * time.Millisecond

	// Run multiple times to verify jitter is applied
	seenDifferent := false
	for range 100 {
		result := e.applyJitter(d)
		// Result should be within 50% of original
		assert.GreaterOrEqual(t, result, 50*time.Millisecond)
		assert.LessOrEqual(t, result, 150*time.Millisecond)

		if result != d {
			seenDifferent = true
		}
	}

	// Should have seen at least one different value
	assert.True(t, seenDifferent, "jitter should produce varied results")
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}

	assert.Empty(t, cfg.Endpoint)
	assert.Empty(t, cfg.ServiceName)
	assert.False(t, cfg.UseHTTP)
	assert.False(t, cfg.Insecure)
	assert.False(t, cfg.EnableLogs)
	assert.Zero(t, cfg.JitterPct)
	assert.Empty(t, cfg.Exporter)
	assert.False(t, cfg.DisableErrors)
}

// Helper to convert attribute slice to map for easier testing.
func attrMapFromSlice(attrs []attribute.KeyValue) map[string]any {
	result := make(map[string]any)
	for _, kv := range attrs {
		result[string(kv.Key)] = kv.Value.AsInterface()
	}

	return result
}
