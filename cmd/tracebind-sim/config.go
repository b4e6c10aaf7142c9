package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/arloliu/fuda"
)

// Config is the CLI configuration. Defaults and environment bindings come
// from the fuda struct tags; flags override both.
type Config struct {
	Endpoint    string `yaml:"endpoint" default:"localhost:4317" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	UseHTTP     bool   `yaml:"http" default:"false"`
	Insecure    *bool  `yaml:"insecure" default:"true" env:"OTEL_EXPORTER_OTLP_INSECURE"`
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME"`
	Exporter    string `yaml:"exporter" default:"otlp" env:"TRACEBIND_SIM_EXPORTER"`

	Scenario     string `yaml:"scenario" default:"payment"`
	ScenarioFile string `yaml:"scenarioFile"`

	EnableLogs    bool `yaml:"logs" default:"false"`
	DisableErrors bool `yaml:"noErrors" default:"false"`
	Verbosity     int  `yaml:"verbosity" default:"0" env:"TRACEBIND_SIM_VERBOSITY"`

	// quick mode
	Count int `yaml:"count" default:"10"`

	// run mode
	Duration time.Duration `yaml:"duration" default:"1m"`
	Rate     float64       `yaml:"rate" default:"1"`
	Jitter   int           `yaml:"jitter" default:"20"`
}

var errInvalidConfig = errors.New("invalid configuration")

// IsInsecure reports whether TLS verification is skipped. Unset means true.
func (c *Config) IsInsecure() bool {
	return c.Insecure == nil || *c.Insecure
}

func (c *Config) validate() error {
	switch c.Exporter {
	case "", "otlp", "console", "none":
	default:
		return fmt.Errorf("%w: exporter %q", errInvalidConfig, c.Exporter)
	}
	if c.Count < 0 {
		return fmt.Errorf("%w: count %d", errInvalidConfig, c.Count)
	}
	if c.Rate <= 0 {
		return fmt.Errorf("%w: rate %v", errInvalidConfig, c.Rate)
	}
	if c.Jitter < 0 || c.Jitter > 100 {
		return fmt.Errorf("%w: jitter %d%%", errInvalidConfig, c.Jitter)
	}

	return nil
}

func newConfig() *Config {
	cfg := &Config{}
	_ = fuda.SetDefaults(cfg)

	return cfg
}

func (c *Config) bindCommonFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "OTLP endpoint")
	fs.BoolVar(&c.UseHTTP, "http", c.UseHTTP, "Use HTTP instead of gRPC")
	fs.Func("insecure", "Skip TLS verification (default: true)", func(s string) error {
		val := s == "true" || s == "1"
		c.Insecure = &val

		return nil
	})
	fs.StringVar(&c.ServiceName, "service-name", c.ServiceName, "Override service name")
	fs.StringVar(&c.Exporter, "exporter", c.Exporter, "Exporter: otlp, console or none")
	fs.StringVar(&c.Scenario, "scenario", c.Scenario, "Scenario name")
	fs.StringVar(&c.ScenarioFile, "scenario-file", c.ScenarioFile, "Custom YAML scenario file")
	fs.BoolVar(&c.EnableLogs, "logs", c.EnableLogs, "Enable log generation")
	fs.BoolVar(&c.DisableErrors, "no-errors", c.DisableErrors, "Disable error simulation")
	fs.IntVar(&c.Verbosity, "verbosity", c.Verbosity, "SDK diagnostic log verbosity")
}

// applyEnvOverrides reads the env tags. Pointer fields let env override
// non-zero defaults.
func (c *Config) applyEnvOverrides() {
	_ = fuda.LoadEnv(c)
}
