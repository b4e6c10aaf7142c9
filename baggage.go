package tracebind

import (
	"context"
	"errors"
	"fmt"

	"github.com/arloliu/tracebind/correlation"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/baggage"
)

// BaggageFromCorrelation converts dc into W3C baggage.
//
// Keys must be valid HTTP header tokens; values are percent-encoded on the
// wire as needed. Entries that violate the baggage format are skipped and
// reported in the returned error, the remaining entries are kept.
func BaggageFromCorrelation(dc correlation.DistributedContext) (baggage.Baggage, error) {
	return mergeBaggage(baggage.Baggage{}, dc)
}

func mergeBaggage(bag baggage.Baggage, dc correlation.DistributedContext) (baggage.Baggage, error) {
	var errs []error
	for _, e := range dc.Entries() {
		member, err := baggage.NewMemberRaw(e.Key, e.Value)
		if err != nil {
			errs = append(errs, fmt.Errorf("correlation entry %q: %w", e.Key, err))
			continue
		}
		next, err := bag.SetMember(member)
		if err != nil {
			errs = append(errs, fmt.Errorf("correlation entry %q: %w", e.Key, err))
			continue
		}
		bag = next
	}

	return bag, errors.Join(errs...)
}

// CorrelationFromBaggage converts W3C baggage into a correlation context.
// Member properties are dropped.
func CorrelationFromBaggage(bag baggage.Baggage) correlation.DistributedContext {
	members := bag.Members()
	if len(members) == 0 {
		return correlation.Empty
	}

	entries := make([]correlation.Entry, 0, len(members))
	for _, m := range members {
		entries = append(entries, correlation.Entry{Key: m.Key(), Value: m.Value()})
	}

	return correlation.New(entries...)
}

// ContextWithCorrelationBaggage copies the current correlation context of
// ctx into the baggage of ctx, so that a baggage propagator sends it.
// Correlation entries replace baggage members with the same key.
func ContextWithCorrelationBaggage(ctx context.Context) context.Context {
	dc := correlation.Current(ctx)
	if dc.IsEmpty() {
		return ctx
	}

	bag, err := mergeBaggage(baggage.FromContext(ctx), dc)
	if err != nil {
		otel.Handle(err)
	}

	return baggage.ContextWithBaggage(ctx, bag)
}

// ContextWithBaggageCorrelation makes the baggage of ctx part of the current
// correlation context. Existing entries are kept unless the baggage carries
// the same key.
func ContextWithBaggageCorrelation(ctx context.Context) context.Context {
	bag := baggage.FromContext(ctx)
	if bag.Len() == 0 {
		return ctx
	}

	b := correlation.NewBuilder(ctx, true)
	for _, m := range bag.Members() {
		b.Add(m.Key(), m.Value())
	}

	return correlation.ContextWith(ctx, b.Build())
}
