// Package tracker holds write-once binding state shared by the tracebind
// package.
package tracker

import (
	"sync"
	"sync/atomic"
)

// Registry is a write-once binding point. Until it is bound it issues
// placeholders keyed by K, returning the same placeholder for the same key.
// Bind stores the target and lets the caller rebind every placeholder issued
// so far; afterwards requests resolve against the target.
//
// The zero value is ready to use.
type Registry[K comparable, P any, T any] struct {
	mu     sync.Mutex
	issued map[K]P
	target atomic.Pointer[T]
}

// Target returns the bound target, or nil before Bind succeeded.
// It never blocks.
func (r *Registry[K, P, T]) Target() *T {
	return r.target.Load()
}

// Issue returns the placeholder for key, creating it with newFn on first use.
// If the registry is already bound it returns the target instead and newFn is
// not called.
func (r *Registry[K, P, T]) Issue(key K, newFn func(K) P) (P, *T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero P
	if t := r.target.Load(); t != nil {
		return zero, t
	}
	if p, ok := r.issued[key]; ok {
		return p, nil
	}
	if r.issued == nil {
		r.issued = make(map[K]P)
	}
	p := newFn(key)
	r.issued[key] = p

	return p, nil
}

// Bind stores target exactly once. rebind is called for every issued
// placeholder before the target becomes visible, all under the registry lock,
// so no caller observes a partially bound registry. Bind reports false if a
// target was already bound; nothing is changed in that case.
func (r *Registry[K, P, T]) Bind(target *T, rebind func(K, P)) bool {
	if target == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target.Load() != nil {
		return false
	}
	for k, p := range r.issued {
		rebind(k, p)
	}
	r.target.Store(target)

	return true
}

// Len returns the number of placeholders issued since the last reset.
func (r *Registry[K, P, T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.issued)
}

// Reset forgets the target and all issued placeholders.
func (r *Registry[K, P, T]) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.issued = nil
	r.target.Store(nil)
}
