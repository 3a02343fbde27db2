package warehouse

import (
	"context"
	"errors"

	"github.com/noah-isme/toko-checkout/internal/resilience"
)

// GuardedLedger routes ledger calls through a circuit breaker so a failing
// backend is rejected fast with resilience.ErrOpenCircuit. Not-listed and
// out-of-stock answers are regular outcomes and keep the circuit closed.
type GuardedLedger struct {
	Ledger  Ledger
	Breaker *resilience.Breaker
}

func (g GuardedLedger) Quantity(ctx context.Context, id string) (qty int, held bool, err error) {
	err = g.call(ctx, func(ctx context.Context) error {
		var callErr error
		qty, held, callErr = g.Ledger.Quantity(ctx, id)
		return callErr
	})
	return qty, held, err
}

func (g GuardedLedger) Increment(ctx context.Context, id string, qty int) (left int, err error) {
	err = g.call(ctx, func(ctx context.Context) error {
		var callErr error
		left, callErr = g.Ledger.Increment(ctx, id, qty)
		return callErr
	})
	return left, err
}

func (g GuardedLedger) Decrement(ctx context.Context, id string, qty int) (left int, err error) {
	err = g.call(ctx, func(ctx context.Context) error {
		var callErr error
		left, callErr = g.Ledger.Decrement(ctx, id, qty)
		return callErr
	})
	return left, err
}

func (g GuardedLedger) call(ctx context.Context, fn func(context.Context) error) error {
	if g.Breaker == nil {
		return fn(ctx)
	}
	return g.Breaker.Do(ctx, fn, backendFailure)
}

func backendFailure(err error) bool {
	return !errors.Is(err, ErrNotListed) && !errors.Is(err, ErrOutOfStock)
}
