// Package scenario defines the trace shapes played by the simulator.
package scenario

import (
	"slices"
	"time"
)

// Scenario is a named trace shape.
type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Services    []Service    `yaml:"services"`
	RootSpan    SpanTemplate `yaml:"rootSpan"`
}

// Service represents a microservice in the scenario.
type Service struct {
	Name       string            `yaml:"name"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
}

// SpanTemplate defines a span and its children.
type SpanTemplate struct {
	Name       string            `yaml:"name"`
	Service    string            `yaml:"service"`
	Kind       SpanKind          `yaml:"kind"`
	Duration   Duration          `yaml:"duration"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Children   []SpanTemplate    `yaml:"children,omitempty"`
	Logs       []LogTemplate     `yaml:"logs,omitempty"`

	// Correlation entries are added to the correlation context for this span
	// and its subtree, and recorded as span attributes.
	Correlation map[string]string `yaml:"correlation,omitempty"`

	// Parallel runs the children concurrently.
	Parallel bool `yaml:"parallel,omitempty"`

	ErrorRate   float64 `yaml:"errorRate,omitempty"` // 0.0-1.0
	ErrorStatus string  `yaml:"errorStatus,omitempty"`
}

// Count returns the number of spans in the subtree rooted at t.
func (t SpanTemplate) Count() int {
	n := 1
	for _, c := range t.Children {
		n += c.Count()
	}

	return n
}

// LogTemplate defines a log entry within a span.
type LogTemplate struct {
	Level      string            `yaml:"level"` // INFO, WARN, ERROR, DEBUG
	Message    string            `yaml:"message"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Delay      Duration          `yaml:"delay,omitempty"` // Delay after span start
}

// SpanKind represents the type of span.
type SpanKind string

const (
	SpanKindServer   SpanKind = "SERVER"
	SpanKindClient   SpanKind = "CLIENT"
	SpanKindProducer SpanKind = "PRODUCER"
	SpanKindConsumer SpanKind = "CONSUMER"
	SpanKindInternal SpanKind = "INTERNAL"
)

// Duration is a wrapper for time.Duration that supports YAML parsing.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)

	return nil
}

// AsDuration converts Duration to time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// Registry holds all available scenarios.
var Registry = map[string]*Scenario{}

func init() {
	Register(PaymentScenario())
	Register(HealthCheckScenario())
}

// Register adds a scenario to the registry.
func Register(s *Scenario) {
	Registry[s.Name] = s
}

// Get retrieves a scenario by name.
func Get(name string) (*Scenario, bool) {
	s, ok := Registry[name]
	return s, ok
}

// List returns the registered scenario names, sorted.
func List() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
