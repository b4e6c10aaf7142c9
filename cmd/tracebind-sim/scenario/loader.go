package scenario

import (
	"errors"
	"fmt"

	"github.com/arloliu/fuda"
)

// ErrMissingName is returned for a scenario file without a name.
var ErrMissingName = errors.New("scenario name is required")

// LoadFromFile loads a scenario from a YAML file using fuda for parsing.
func LoadFromFile(path string) (*Scenario, error) {
	var s Scenario
	if err := fuda.LoadFile(path, &s); err != nil {
		return nil, fmt.Errorf("failed to load scenario file: %w", err)
	}

	if s.Name == "" {
		return nil, ErrMissingName
	}
	if err := s.RootSpan.validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}

	return &s, nil
}

func (t SpanTemplate) validate() error {
	switch t.Kind {
	case "", SpanKindServer, SpanKindClient, SpanKindProducer, SpanKindConsumer, SpanKindInternal:
	default:
		return fmt.Errorf("span %q: unknown kind %q", t.Name, t.Kind)
	}
	if t.ErrorRate < 0 || t.ErrorRate > 1 {
		return fmt.Errorf("span %q: errorRate %v outside [0, 1]", t.Name, t.ErrorRate)
	}
	for _, c := range t.Children {
		if err := c.validate(); err != nil {
			return err
		}
	}

	return nil
}
