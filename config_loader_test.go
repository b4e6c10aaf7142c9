package tracebind

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arloliu/tracebind/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func TestLoadConfig(t *testing.T) {
	content := []byte(`
enabled: true
serviceName: "test-service-file"
traces:
  enabled: true
  exporter: "console"
`)
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(tmpFile, content, 0o644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, *cfg.Enabled)
	assert.Equal(t, "test-service-file", cfg.ServiceName)
	assert.Equal(t, "console", cfg.Traces.Exporter)

	t.Setenv("OTEL_SERVICE_NAME", "override-service")
	cfg, err = LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, "override-service", cfg.ServiceName)
}

func TestParseConfig(t *testing.T) {
	yamlData := []byte(`
enabled: true
serviceName: "test-service-bytes"
metrics:
  enabled: true
  interval: 5s
`)
	cfg, err := ParseConfig(yamlData)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.True(t, *cfg.Enabled)
	assert.Equal(t, "test-service-bytes", cfg.ServiceName)
	assert.NotNil(t, cfg.Metrics)
	assert.True(t, *cfg.Metrics.Enabled)
}

func TestParseConfig_TracesSections(t *testing.T) {
	yamlData := []byte(`
enabled: true
serviceName: "svc"
traces:
  exporter: "none"
  sampling:
    sampler: "traceidratio"
    samplerArg: 0.25
  batch:
    maxQueueSize: 64
    scheduleDelay: 1s
  limits:
    attributeCountLimit: 16
propagation:
  propagators: "tracecontext"
  carrier: "noop"
`)
	cfg, err := ParseConfig(yamlData)
	require.NoError(t, err)

	require.NotNil(t, cfg.Traces.Sampling)
	assert.Equal(t, "traceidratio", cfg.Traces.Sampling.Sampler)
	assert.InDelta(t, 0.25, cfg.Traces.Sampling.SamplerArg, 1e-9)

	require.NotNil(t, cfg.Traces.Batch)
	assert.Equal(t, 64, cfg.Traces.Batch.MaxQueueSize)
	assert.Equal(t, time.Second, cfg.Traces.Batch.ScheduleDelay)

	require.NotNil(t, cfg.Traces.Limits)
	assert.Equal(t, 16, cfg.Traces.Limits.SpanLimits().AttributeCountLimit)

	assert.Equal(t, CarrierNoop, cfg.Propagation.CarrierName())
	assert.False(t, cfg.Propagation.HasBaggage())
}

func TestParseConfig_InvalidCarrier(t *testing.T) {
	_, err := ParseConfig([]byte(`
enabled: true
serviceName: "svc"
propagation:
  carrier: "thread-local"
`))
	assert.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	// Load empty config to check defaults
	cfg, err := ParseConfig([]byte("{}"))
	require.NoError(t, err)

	// Check defaults from struct tags
	// Enabled default is false
	assert.False(t, *cfg.Enabled)
	// Environment default is development
	assert.Equal(t, "development", cfg.Environment)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent.yaml")
}

func TestSetupFromFile(t *testing.T) {
	resetGlobals(t)
	restoreOTelGlobals(t)

	path := writeConfig(t, `
enabled: true
serviceName: "file-service"
traces:
  exporter: "none"
  sampling:
    sampler: "always_on"
propagation:
  carrier: "context"
`)

	early := GetTracer("early")
	exp := tracetest.NewInMemoryExporter()
	tel, err := SetupFromFile(context.Background(), path, WithSyncer(exp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	assert.IsType(t, correlation.ContextCarrier{}, correlation.CurrentCarrier())

	_, span := early.Start(context.Background(), "from-file")
	span.End()
	require.Len(t, exp.GetSpans(), 1)

	_, err = SetupFromFile(context.Background(), path)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestSetupFromFile_Invalid(t *testing.T) {
	resetGlobals(t)

	path := writeConfig(t, `
enabled: true
serviceName: "svc"
propagation:
  carrier: "thread-local"
`)
	_, err := SetupFromFile(context.Background(), path)
	require.Error(t, err)
	assert.False(t, IsInitialized())
}
