package tracebind

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// IDGenerator creates trace and span identifiers.
type IDGenerator = sdktrace.IDGenerator

type randomIDGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newRandomIDGenerator() *randomIDGenerator {
	var seed [32]byte
	_, _ = crand.Read(seed[:])

	return &randomIDGenerator{rng: rand.New(rand.NewChaCha8(seed))}
}

// NewIDs returns a non-zero trace id and span id.
func (g *randomIDGenerator) NewIDs(_ context.Context) (trace.TraceID, trace.SpanID) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var tid trace.TraceID
	for !tid.IsValid() {
		binary.BigEndian.PutUint64(tid[:8], g.rng.Uint64())
		binary.BigEndian.PutUint64(tid[8:], g.rng.Uint64())
	}

	return tid, g.newSpanIDLocked()
}

// NewSpanID returns a non-zero span id.
func (g *randomIDGenerator) NewSpanID(_ context.Context, _ trace.TraceID) trace.SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.newSpanIDLocked()
}

func (g *randomIDGenerator) newSpanIDLocked() trace.SpanID {
	var sid trace.SpanID
	for !sid.IsValid() {
		binary.BigEndian.PutUint64(sid[:], g.rng.Uint64())
	}

	return sid
}
