package correlation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func useCarrier(t *testing.T, c Carrier) {
	t.Helper()
	SetCarrier(c)
	t.Cleanup(ResetCarrier)
}

var (
	k1   = New(Entry{Key: "k1", Value: "v1"})
	k1k2 = New(Entry{Key: "k1", Value: "v1"}, Entry{Key: "k2", Value: "v2"})
)

func TestCurrentCarrier_DefaultsToNoop(t *testing.T) {
	ResetCarrier()

	assert.IsType(t, NoopCarrier{}, CurrentCarrier())

	SetCarrier(nil)
	t.Cleanup(ResetCarrier)
	assert.IsType(t, NoopCarrier{}, CurrentCarrier())
}

func TestNoopCarrier(t *testing.T) {
	useCarrier(t, NoopCarrier{})

	ctx := context.Background()
	assert.Equal(t, Empty, Current(ctx))

	ctx2, scope := SetCurrent(ctx, k1)
	assert.Equal(t, ctx, ctx2)
	assert.Equal(t, Empty, Current(ctx2))

	scope.Close()
	assert.Equal(t, Empty, Current(ctx2))
}

func TestContextCarrier_NestedScopes(t *testing.T) {
	useCarrier(t, ContextCarrier{})

	ctx := context.Background()
	require.Equal(t, Empty, Current(ctx))

	outerCtx, outer := SetCurrent(ctx, k1)
	assert.Equal(t, k1, Current(outerCtx))

	innerCtx, inner := SetCurrent(outerCtx, k1k2)
	assert.Equal(t, k1k2, Current(innerCtx))

	inner.Close()
	assert.True(t, inner.Closed())
	assert.Equal(t, k1, Current(outerCtx))

	outer.Close()
	assert.True(t, outer.Closed())
	assert.Equal(t, Empty, Current(ctx))
}

func TestContextCarrier_CloseIsIdempotent(t *testing.T) {
	useCarrier(t, ContextCarrier{})

	outerCtx, outer := SetCurrent(context.Background(), k1)
	defer outer.Close()

	_, inner := SetCurrent(outerCtx, k1k2)
	inner.Close()
	inner.Close()

	assert.True(t, inner.Closed())
	assert.False(t, outer.Closed())
	assert.Equal(t, k1, Current(outerCtx))

	var nilScope *Scope
	assert.NotPanics(t, nilScope.Close)
	assert.False(t, nilScope.Closed())
}

func TestContextCarrier_ForkInheritNoMergeBack(t *testing.T) {
	useCarrier(t, ContextCarrier{})

	ctx, scope := SetCurrent(context.Background(), k1)
	defer scope.Close()

	childSet := make(chan struct{})
	var sibling DistributedContext

	var g errgroup.Group
	g.Go(func() error {
		if !Current(ctx).Equal(k1) {
			return errors.New("child did not inherit parent context")
		}
		childCtx, childScope := SetCurrent(ctx, k1k2)
		defer childScope.Close()

		if !Current(childCtx).Equal(k1k2) {
			return errors.New("child context not applied")
		}
		close(childSet)

		return nil
	})
	g.Go(func() error {
		<-childSet
		sibling = Current(ctx)
		return nil
	})
	require.NoError(t, g.Wait())

	assert.Equal(t, k1, sibling)
	assert.Equal(t, k1, Current(ctx))
}

func TestContextCarrier_ChildOutlivesParentScope(t *testing.T) {
	useCarrier(t, ContextCarrier{})

	parentCtx, parentScope := SetCurrent(context.Background(), k1)
	childCtx, childScope := SetCurrent(parentCtx, k1k2)

	parentScope.Close()
	assert.Equal(t, k1k2, Current(childCtx))
	assert.Equal(t, k1, Current(parentCtx), "closing does not alter a held context")

	childScope.Close()
	assert.Equal(t, k1k2, Current(childCtx))
}

func TestContextCarrier_ForkedGoroutineKeepsValueAfterParentClose(t *testing.T) {
	useCarrier(t, ContextCarrier{})

	ctx, scope := SetCurrent(context.Background(), k1)

	seen := make(chan DistributedContext)
	closed := make(chan struct{})
	done := make(chan DistributedContext)
	go func(ctx context.Context) {
		seen <- Current(ctx)
		<-closed
		done <- Current(ctx)
	}(ctx)

	assert.Equal(t, k1, <-seen)
	scope.Close()
	close(closed)
	assert.Equal(t, k1, <-done, "forked goroutine keeps its inherited context")
}

func TestContextCarrier_ConcurrentChildren(t *testing.T) {
	useCarrier(t, ContextCarrier{})

	ctx, scope := SetCurrent(context.Background(), k1)
	defer scope.Close()

	g, gctx := errgroup.WithContext(ctx)
	for i := range 16 {
		g.Go(func() error {
			own := NewBuilder(gctx, true).Add("worker", string(rune('a'+i))).Build()
			return WithCurrent(gctx, own, func(ctx context.Context) error {
				if !Current(ctx).Equal(own) {
					return errors.New("worker context not applied")
				}
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, k1, Current(ctx))
}

func TestWithCurrent_PanicLeavesCallerContext(t *testing.T) {
	useCarrier(t, ContextCarrier{})

	var inner context.Context
	assert.Panics(t, func() {
		_ = WithCurrent(context.Background(), k1, func(ctx context.Context) error {
			inner = ctx
			panic("boom")
		})
	})
	require.NotNil(t, inner)
	assert.Equal(t, k1, Current(inner))
	assert.Equal(t, Empty, Current(context.Background()))
}

func TestWithCurrent_ClosesScope(t *testing.T) {
	spy := &scopeSpy{}
	useCarrier(t, spy)

	assert.Panics(t, func() {
		_ = WithCurrent(context.Background(), k1, func(context.Context) error {
			panic("boom")
		})
	})
	require.NotNil(t, spy.scope)
	assert.True(t, spy.scope.Closed())
}

// scopeSpy is a ContextCarrier that remembers the last scope it issued.
type scopeSpy struct {
	ContextCarrier
	scope *Scope
}

func (s *scopeSpy) SetCurrent(ctx context.Context, dc DistributedContext) (context.Context, *Scope) {
	ctx, s.scope = s.ContextCarrier.SetCurrent(ctx, dc)
	return ctx, s.scope
}

func TestWithCurrent_ReturnsError(t *testing.T) {
	useCarrier(t, ContextCarrier{})

	errBoom := errors.New("boom")
	err := WithCurrent(context.Background(), k1, func(ctx context.Context) error {
		assert.Equal(t, k1, Current(ctx))
		return errBoom
	})
	assert.ErrorIs(t, err, errBoom)
}

func TestContextWith(t *testing.T) {
	useCarrier(t, ContextCarrier{})

	ctx := ContextWith(context.Background(), k1)
	assert.Equal(t, k1, Current(ctx))
}
