// Package correlation carries an immutable set of key/value correlation
// entries through a process, scoped and inherited along context.Context.
//
// A [DistributedContext] never changes after it is built. What is "current"
// is decided by the active [Carrier]: the default [NoopCarrier] always
// reports [Empty], while [ContextCarrier] stores the value in the context
// so that goroutines started with a derived context inherit it, and their own
// changes stay invisible to the parent and to siblings.
//
//	ctx, scope := correlation.SetCurrent(ctx, correlation.New(
//	    correlation.Entry{Key: "tenant", Value: "acme"},
//	))
//	defer scope.Close()
package correlation

import (
	"slices"
	"strings"
)

// Entry is one correlation key/value pair.
type Entry struct {
	Key   string
	Value string
}

// DistributedContext is an immutable set of entries with unique keys.
// The zero value is empty. Two contexts are equal when their entry sets are
// equal, independent of construction order; equal contexts are also
// reflect.DeepEqual.
type DistributedContext struct {
	entries []Entry
}

// Empty is the context without entries.
var Empty = DistributedContext{}

// New builds a context from entries. For duplicate keys the last entry wins;
// entries with an empty key are ignored.
func New(entries ...Entry) DistributedContext {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		m[e.Key] = e.Value
	}

	return fromMap(m)
}

func fromMap(m map[string]string) DistributedContext {
	if len(m) == 0 {
		return Empty
	}

	entries := make([]Entry, 0, len(m))
	for k, v := range m {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Key, b.Key)
	})

	return DistributedContext{entries: entries}
}

// Entries returns a copy of the entries ordered by key.
func (dc DistributedContext) Entries() []Entry {
	return slices.Clone(dc.entries)
}

// Get returns the value for key.
func (dc DistributedContext) Get(key string) (string, bool) {
	i, ok := slices.BinarySearchFunc(dc.entries, key, func(e Entry, k string) int {
		return strings.Compare(e.Key, k)
	})
	if !ok {
		return "", false
	}

	return dc.entries[i].Value, true
}

// Len returns the number of entries.
func (dc DistributedContext) Len() int { return len(dc.entries) }

// IsEmpty reports whether dc has no entries.
func (dc DistributedContext) IsEmpty() bool { return len(dc.entries) == 0 }

// Equal reports whether dc and other hold the same entry set.
func (dc DistributedContext) Equal(other DistributedContext) bool {
	return slices.Equal(dc.entries, other.entries)
}

// String renders the entries as "k1=v1,k2=v2".
func (dc DistributedContext) String() string {
	var b strings.Builder
	for i, e := range dc.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.Key)
		b.WriteByte('=')
		b.WriteString(e.Value)
	}

	return b.String()
}

func (dc DistributedContext) toMap() map[string]string {
	m := make(map[string]string, len(dc.entries))
	for _, e := range dc.entries {
		m[e.Key] = e.Value
	}

	return m
}
