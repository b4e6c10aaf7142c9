package correlation

import (
	"context"
	"sync/atomic"
)

// Carrier decides where the current [DistributedContext] lives.
type Carrier interface {
	// Current returns the context active for ctx, or Empty.
	Current(ctx context.Context) DistributedContext
	// SetCurrent makes dc current for the returned context and everything
	// derived from it. The context passed in is unchanged, so the caller
	// returns to the previous value by continuing with it.
	SetCurrent(ctx context.Context, dc DistributedContext) (context.Context, *Scope)
}

// Scope is returned by SetCurrent and marks the region in which the value
// is current. Close is safe to call more than once and on a nil Scope. It
// never changes what any context observes: contexts handed to goroutines
// inside the scope keep the value they were given.
type Scope struct {
	closed atomic.Bool
}

// Close ends the scope.
func (s *Scope) Close() {
	if s == nil {
		return
	}
	s.closed.Store(true)
}

// Closed reports whether Close was called.
func (s *Scope) Closed() bool {
	return s != nil && s.closed.Load()
}

// NoopCarrier never stores anything. Current is always Empty and SetCurrent
// returns ctx unchanged.
type NoopCarrier struct{}

// Current implements [Carrier].
func (NoopCarrier) Current(context.Context) DistributedContext { return Empty }

// SetCurrent implements [Carrier].
func (NoopCarrier) SetCurrent(ctx context.Context, _ DistributedContext) (context.Context, *Scope) {
	return ctx, &Scope{}
}

// ContextCarrier keeps the current value in the context.Context. A goroutine
// started with a context derived inside a scope sees the value of that scope
// for as long as it holds the context; values it sets itself never reach the
// parent or its siblings.
type ContextCarrier struct{}

type currentKey struct{}

// Current implements [Carrier].
func (ContextCarrier) Current(ctx context.Context) DistributedContext {
	if ctx == nil {
		return Empty
	}
	if dc, ok := ctx.Value(currentKey{}).(DistributedContext); ok {
		return dc
	}

	return Empty
}

// SetCurrent implements [Carrier].
func (ContextCarrier) SetCurrent(ctx context.Context, dc DistributedContext) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, currentKey{}, dc), &Scope{}
}

type carrierRef struct {
	carrier Carrier
}

var active atomic.Pointer[carrierRef]

// SetCarrier installs the process-wide carrier. A nil carrier selects
// [NoopCarrier].
func SetCarrier(c Carrier) {
	if c == nil {
		c = NoopCarrier{}
	}
	active.Store(&carrierRef{carrier: c})
}

// CurrentCarrier returns the process-wide carrier; [NoopCarrier] until
// [SetCarrier] is called.
func CurrentCarrier() Carrier {
	if ref := active.Load(); ref != nil {
		return ref.carrier
	}

	return NoopCarrier{}
}

// ResetCarrier restores the default carrier. Meant for tests.
func ResetCarrier() {
	active.Store(nil)
}

// Current returns the current context of ctx from the active carrier.
func Current(ctx context.Context) DistributedContext {
	return CurrentCarrier().Current(ctx)
}

// SetCurrent makes dc current through the active carrier. The caller must
// Close the scope, typically with defer.
func SetCurrent(ctx context.Context, dc DistributedContext) (context.Context, *Scope) {
	return CurrentCarrier().SetCurrent(ctx, dc)
}

// WithCurrent runs fn with dc current and closes the scope when fn returns or
// panics.
func WithCurrent(ctx context.Context, dc DistributedContext, fn func(ctx context.Context) error) error {
	ctx, scope := SetCurrent(ctx, dc)
	defer scope.Close()

	return fn(ctx)
}

// ContextWith returns a context in which dc is current for the lifetime of
// that context. It suits request-scoped contexts that are discarded rather
// than closed, such as those produced by extraction.
func ContextWith(ctx context.Context, dc DistributedContext) context.Context {
	ctx, _ = SetCurrent(ctx, dc)
	return ctx
}
