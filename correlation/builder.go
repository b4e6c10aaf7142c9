package correlation

import "context"

// Mutator applies ordered add and remove operations inside
// [Builder.Correlations].
type Mutator struct {
	working map[string]string
}

// Add sets key to value, replacing an earlier value. Empty keys are ignored.
func (m *Mutator) Add(key, value string) *Mutator {
	if key != "" {
		m.working[key] = value
	}

	return m
}

// Remove deletes key if present.
func (m *Mutator) Remove(key string) *Mutator {
	delete(m.working, key)
	return m
}

// Builder constructs a new [DistributedContext]. It never modifies an
// existing context and building does not change what is current.
type Builder struct {
	mu Mutator
}

// NewBuilder creates a builder. If inheritCurrent is true the builder starts
// from the current context of ctx as reported by the active carrier;
// otherwise it starts empty.
func NewBuilder(ctx context.Context, inheritCurrent bool) *Builder {
	var seed DistributedContext
	if inheritCurrent {
		seed = Current(ctx)
	}

	return From(seed)
}

// From creates a builder seeded with the entries of dc.
func From(dc DistributedContext) *Builder {
	return &Builder{mu: Mutator{working: dc.toMap()}}
}

// Add sets key to value.
func (b *Builder) Add(key, value string) *Builder {
	b.mu.Add(key, value)
	return b
}

// Remove deletes key. A later Add for the same key adds it again.
func (b *Builder) Remove(key string) *Builder {
	b.mu.Remove(key)
	return b
}

// Correlations applies fn's operations in order.
func (b *Builder) Correlations(fn func(m *Mutator)) *Builder {
	if fn != nil {
		fn(&b.mu)
	}

	return b
}

// Build returns the resulting immutable context. The builder can be reused.
func (b *Builder) Build() DistributedContext {
	return fromMap(b.mu.working)
}
