package tracebind

import (
	"context"
	"fmt"

	"github.com/arloliu/fuda"
)

// LoadConfig reads a TelemetryConfig from a YAML or JSON file. Environment
// variables named in the struct tags override file values; defaults fill
// the rest and the result is validated.
func LoadConfig(path string) (*TelemetryConfig, error) {
	cfg := new(TelemetryConfig)
	if err := fuda.LoadFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load telemetry config %s: %w", path, err)
	}

	return cfg, nil
}

// ParseConfig is [LoadConfig] for in-memory YAML or JSON.
func ParseConfig(data []byte) (*TelemetryConfig, error) {
	cfg := new(TelemetryConfig)
	if err := fuda.LoadBytes(data, cfg); err != nil {
		return nil, fmt.Errorf("parse telemetry config: %w", err)
	}

	return cfg, nil
}

// SetupFromFile loads path with [LoadConfig] and passes it to [Setup].
func SetupFromFile(ctx context.Context, path string, opts ...ProviderOption) (*Telemetry, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	return Setup(ctx, cfg, opts...)
}
