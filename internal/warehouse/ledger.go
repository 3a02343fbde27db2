package warehouse

import (
	"context"
	"sync"
)

// Ledger stores per-item stock counts. An absent entry means the item is not
// listed; Decrement removes the entry once it reaches zero.
type Ledger interface {
	// Quantity returns the stock for id and whether an entry exists.
	Quantity(ctx context.Context, id string) (int, bool, error)
	// Increment adds qty units, creating the entry when missing, and returns the new count.
	Increment(ctx context.Context, id string, qty int) (int, error)
	// Decrement atomically subtracts qty units when enough are available and
	// returns the remaining count. It fails with ErrNotListed when the entry
	// is missing and ErrOutOfStock when fewer than qty units are held.
	Decrement(ctx context.Context, id string, qty int) (int, error)
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryLedger constructs an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{counts: make(map[string]int)}
}

// Quantity implements Ledger.
func (m *MemoryLedger) Quantity(_ context.Context, id string) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.counts[id]
	return qty, ok, nil
}

// Increment implements Ledger. Adding zero units to a missing id stores an
// entry holding zero: stocking an item with nothing still lists it, and only
// a decrement reaching zero drops the entry.
func (m *MemoryLedger) Increment(_ context.Context, id string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[id] += qty
	return m.counts[id], nil
}

// Decrement implements Ledger.
func (m *MemoryLedger) Decrement(_ context.Context, id string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.counts[id]
	if !ok {
		return 0, ErrNotListed
	}
	if current < qty {
		return current, ErrOutOfStock
	}
	left := current - qty
	if left == 0 {
		delete(m.counts, id)
	} else {
		m.counts[id] = left
	}
	return left, nil
}
