package tracebind

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opt struct {
	kind string
	val  string
}

func testOptionSet(withURL bool) otlpOptionSet[opt] {
	s := otlpOptionSet[opt]{
		endpoint: func(v string) opt { return opt{kind: "endpoint", val: v} },
		headers:  func(map[string]string) opt { return opt{kind: "headers"} },
		timeout:  func(d time.Duration) opt { return opt{kind: "timeout", val: d.String()} },
		insecure: func() opt { return opt{kind: "insecure"} },
		gzip:     func() opt { return opt{kind: "compression"} },
	}
	if withURL {
		s.endpointURL = func(v string) opt { return opt{kind: "endpointURL", val: v} }
	}

	return s
}

func TestNormalizeExporterType(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: "otlp"},
		{name: "stdout", input: "stdout", want: "console"},
		{name: "noop", input: "noop", want: "nop"},
		{name: "mixed case", input: " OTLP ", want: "otlp"},
		{name: "passthrough", input: "console", want: "console"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeExporterType(tt.input))
		})
	}
}

func TestResolveExporterParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		p := resolveExporterParams(nil, "", "")
		assert.Equal(t, "otlp", p.Type)
		assert.Equal(t, "grpc", p.Protocol)
		assert.Equal(t, "localhost:4317", p.Endpoint)
		assert.Equal(t, 10*time.Second, p.Timeout)
		assert.True(t, p.Insecure)
	})

	t.Run("signal overrides shared settings", func(t *testing.T) {
		cfg := &TelemetryConfig{OTLP: &OTLPConfig{
			Endpoint: "collector:4317",
			Protocol: "http/protobuf",
			Insecure: boolPtr(false),
			Timeout:  5, // numeric env value in milliseconds
		}}
		p := resolveExporterParams(cfg, "stdout", "http://traces:4318/v1/traces")
		assert.Equal(t, "console", p.Type)
		assert.Equal(t, "http/protobuf", p.Protocol)
		assert.Equal(t, "http://traces:4318/v1/traces", p.Endpoint)
		assert.Equal(t, 5*time.Millisecond, p.Timeout)
		assert.False(t, p.Insecure)
	})
}

func TestOTLPOptionSet_HTTP(t *testing.T) {
	params := exporterParams{
		Endpoint:    "http://localhost:4318/v1/logs",
		Headers:     map[string]string{"k": "v"},
		Timeout:     5 * time.Second,
		Insecure:    true,
		Compression: "gzip",
	}

	opts := testOptionSet(true).build(params)
	require.NotEmpty(t, opts)
	assert.Equal(t, "endpointURL", opts[0].kind)
	assert.Contains(t, kinds(opts), "headers")
	assert.Contains(t, kinds(opts), "timeout")
	assert.Contains(t, kinds(opts), "insecure")
	assert.Contains(t, kinds(opts), "compression")

	params.Endpoint = "localhost:4317"
	opts = testOptionSet(true).build(params)
	assert.Equal(t, "endpoint", opts[0].kind)
}

func TestOTLPOptionSet_GRPC(t *testing.T) {
	params := exporterParams{
		Endpoint: "http://localhost:4317",
		Timeout:  2 * time.Second,
	}

	opts := testOptionSet(false).build(params)
	require.NotEmpty(t, opts)
	assert.Equal(t, "endpoint", opts[0].kind, "gRPC clients have no URL option")
	assert.Equal(t, []string{"endpoint", "timeout"}, kinds(opts))
}

func TestBuildTraceExporter_Nop(t *testing.T) {
	cfg := &TelemetryConfig{Traces: &TracesConfig{Exporter: "none"}}
	exp, err := buildTraceExporter(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, nopSpanExporter{}, exp)
	assert.NoError(t, exp.ExportSpans(context.Background(), nil))
}

func kinds(opts []opt) []string {
	out := make([]string, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.kind)
	}

	return out
}
