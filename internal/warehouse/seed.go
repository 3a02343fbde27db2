package warehouse

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-checkout/internal/catalog"
)

const (
	seedMinPrice    = 5.0
	seedMaxPrice    = 100.0
	seedMaxQuantity = 50
)

// Seed is one generated inventory entry.
type Seed struct {
	Item     *catalog.Item
	Quantity int
}

// Generate creates n random items registered in reg, with ids A0001..An,
// prices in [5.00, 100.00] and quantities in [1, 50].
func Generate(reg *catalog.Registry, n int, rng *rand.Rand) ([]Seed, error) {
	if n < 0 {
		return nil, fmt.Errorf("generate %d items: %w", n, ErrInvalidParameter)
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	seeds := make([]Seed, 0, n)
	for i := 1; i <= n; i++ {
		raw := seedMinPrice + rng.Float64()*(seedMaxPrice-seedMinPrice)
		price := decimal.NewFromFloat(raw).Round(2)
		item, err := reg.NewItem(fmt.Sprintf("A%04d", i), price)
		if err != nil {
			return nil, err
		}
		seeds = append(seeds, Seed{Item: item, Quantity: 1 + rng.Intn(seedMaxQuantity)})
	}
	return seeds, nil
}

// Seed stocks every generated entry. Ids the ledger already holds, as when
// another lane sharing the Redis ledger seeded first, are listed with their
// existing stock instead of being restocked.
func (w *Warehouse) Seed(ctx context.Context, seeds []Seed) error {
	adopted := 0
	for _, s := range seeds {
		_, held, err := w.ledger.Quantity(ctx, s.Item.ID())
		if err != nil {
			return fmt.Errorf("seed %s: %w", s.Item.ID(), err)
		}
		if held {
			w.mu.Lock()
			w.track(s.Item)
			w.mu.Unlock()
			adopted++
			continue
		}
		if err := w.AddItem(ctx, s.Item, s.Quantity); err != nil {
			return fmt.Errorf("seed %s: %w", s.Item.ID(), err)
		}
	}
	w.logger.Info().Int("items", len(seeds)).Int("adopted", adopted).Msg("inventory seeded")
	return nil
}
