package warehouse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-checkout/internal/catalog"
	"github.com/noah-isme/toko-checkout/internal/discount"
)

var (
	// ErrNotListed indicates the item id is absent from the inventory.
	ErrNotListed = errors.New("item not listed in store")
	// ErrOutOfStock indicates fewer units are held than requested.
	ErrOutOfStock = errors.New("item out of stock")
	// ErrInvalidParameter is returned for negative quantities.
	ErrInvalidParameter = catalog.ErrInvalidParameter
)

// DefaultCurrency is used when Config.Currency is empty.
const DefaultCurrency = "€"

// Line is a snapshot of one inventory entry.
type Line struct {
	Item     *catalog.Item
	Quantity int
	Rule     discount.Rule
}

// Config groups Warehouse dependencies.
type Config struct {
	Ledger   Ledger
	Currency string
	Logger   *zerolog.Logger
}

// Warehouse is the inventory authority: it tracks the stock of each listed
// item and the discount rule bound to it.
type Warehouse struct {
	ledger   Ledger
	currency string
	logger   zerolog.Logger

	mu    sync.RWMutex
	items map[string]*catalog.Item
	order []string
	rules map[string]discount.Rule
}

// New constructs a warehouse. A nil ledger defaults to an in-memory one.
func New(cfg Config) *Warehouse {
	ledger := cfg.Ledger
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	currency := strings.TrimSpace(cfg.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "warehouse").Logger()
	}
	return &Warehouse{
		ledger:   ledger,
		currency: currency,
		logger:   logger,
		items:    make(map[string]*catalog.Item),
		rules:    make(map[string]discount.Rule),
	}
}

// Currency returns the currency symbol prices are quoted in.
func (w *Warehouse) Currency() string {
	return w.currency
}

// AddItem stocks quantity units of item. An existing entry is incremented and
// its stored item reference replaced by item.
func (w *Warehouse) AddItem(ctx context.Context, item *catalog.Item, quantity int) error {
	if item == nil {
		return fmt.Errorf("add item: item required: %w", ErrInvalidParameter)
	}
	if quantity < 0 {
		return fmt.Errorf("cannot add negative amount %d of %s to inventory: %w", quantity, item.ID(), ErrInvalidParameter)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	total, err := w.ledger.Increment(ctx, item.ID(), quantity)
	if err != nil {
		return err
	}
	if total == quantity && quantity > 0 {
		// the ledger held nothing before: a relisted id goes to the end
		w.unlist(item.ID())
	}
	w.track(item)
	w.logger.Debug().Str("item_id", item.ID()).Int("quantity", quantity).Int("stock", total).Msg("item stocked")
	return nil
}

// RemoveItem takes quantity units of item out of stock, deleting the entry
// when nothing is left. A missing entry is reported as ErrOutOfStock.
func (w *Warehouse) RemoveItem(ctx context.Context, item *catalog.Item, quantity int) error {
	if item == nil {
		return fmt.Errorf("remove item: item required: %w", ErrInvalidParameter)
	}
	if quantity < 0 {
		return fmt.Errorf("cannot remove negative amount %d of %s from inventory: %w", quantity, item.ID(), ErrInvalidParameter)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	left, err := w.ledger.Decrement(ctx, item.ID(), quantity)
	switch {
	case errors.Is(err, ErrNotListed):
		return fmt.Errorf("item %s does not exist in inventory: %w", item.ID(), ErrOutOfStock)
	case errors.Is(err, ErrOutOfStock):
		return fmt.Errorf("not enough %s in inventory: %w", item.ID(), ErrOutOfStock)
	case err != nil:
		return err
	}
	w.track(item)
	w.logger.Debug().Str("item_id", item.ID()).Int("quantity", quantity).Int("stock", left).Msg("item removed")
	return nil
}

// TakeItem checks that quantity units of id are available and returns the
// stored item. Stock is not changed; see Reserve.
func (w *Warehouse) TakeItem(ctx context.Context, id string, quantity int) (*catalog.Item, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("cannot take negative amount %d of %s: %w", quantity, id, ErrInvalidParameter)
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	item, ok := w.items[id]
	if !ok {
		return nil, notListed(id)
	}
	current, ok, err := w.ledger.Quantity(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notListed(id)
	}
	if current < quantity {
		return nil, fmt.Errorf("not enough %s in inventory (%d < %d): %w", id, current, quantity, ErrOutOfStock)
	}
	return item, nil
}

// Reserve atomically checks and decrements stock for id, returning the stored
// item. On failure the inventory is left untouched.
func (w *Warehouse) Reserve(ctx context.Context, id string, quantity int) (*catalog.Item, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("cannot reserve negative amount %d of %s: %w", quantity, id, ErrInvalidParameter)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	item, ok := w.items[id]
	if !ok {
		return nil, notListed(id)
	}
	left, err := w.ledger.Decrement(ctx, id, quantity)
	switch {
	case errors.Is(err, ErrNotListed):
		return nil, notListed(id)
	case errors.Is(err, ErrOutOfStock):
		return nil, fmt.Errorf("not enough %s in inventory: %w", id, ErrOutOfStock)
	case err != nil:
		return nil, err
	}
	w.logger.Debug().Str("item_id", id).Int("quantity", quantity).Int("stock", left).Msg("item reserved")
	return item, nil
}

// AddDiscountRule binds rule to id, replacing any earlier binding.
func (w *Warehouse) AddDiscountRule(ctx context.Context, id string, rule discount.Rule) error {
	if rule == nil {
		return fmt.Errorf("discount rule required: %w", ErrInvalidParameter)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.items[id]; !ok {
		return notListed(id)
	}
	if _, ok, err := w.ledger.Quantity(ctx, id); err != nil {
		return err
	} else if !ok {
		return notListed(id)
	}
	w.rules[id] = rule
	w.logger.Debug().Str("item_id", id).Str("rule", rule.Kind()).Msg("discount rule bound")
	return nil
}

// RemoveDiscountRule unbinds any rule from id.
func (w *Warehouse) RemoveDiscountRule(id string) {
	w.mu.Lock()
	delete(w.rules, id)
	w.mu.Unlock()
}

// DiscountRule returns the rule currently bound to id.
func (w *Warehouse) DiscountRule(id string) (discount.Rule, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	rule, ok := w.rules[id]
	return rule, ok
}

// DiscountAvailable reports whether a rule is bound to id.
func (w *Warehouse) DiscountAvailable(id string) bool {
	_, ok := w.DiscountRule(id)
	return ok
}

// Item returns the item last stocked under id, even when it is sold out.
func (w *Warehouse) Item(id string) (*catalog.Item, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	item, ok := w.items[id]
	return item, ok
}

// Quantity returns the units in stock for id. Unlisted items hold zero.
func (w *Warehouse) Quantity(ctx context.Context, id string) (int, error) {
	qty, _, err := w.ledger.Quantity(ctx, id)
	return qty, err
}

// ListInventory returns a snapshot of the inventory in insertion order.
func (w *Warehouse) ListInventory(ctx context.Context) ([]Line, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	lines := make([]Line, 0, len(w.order))
	for _, id := range w.order {
		qty, ok, err := w.ledger.Quantity(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		lines = append(lines, Line{Item: w.items[id], Quantity: qty, Rule: w.rules[id]})
	}
	return lines, nil
}

// PrintInventory writes one line per inventory entry to out.
func (w *Warehouse) PrintInventory(ctx context.Context, out io.Writer) error {
	lines, err := w.ListInventory(ctx)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(out, "Item ID: %s, Price: %s%s, Quantity: %d\n",
			line.Item.ID(), line.Item.Price().StringFixed(2), w.currency, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// track remembers item and its listing position. Entries are never dropped:
// whether an id is listed is decided by the ledger, which other lanes may
// restock. Callers hold w.mu.
func (w *Warehouse) track(item *catalog.Item) {
	if _, ok := w.items[item.ID()]; !ok {
		w.order = append(w.order, item.ID())
	}
	w.items[item.ID()] = item
}

// unlist drops id from the listing order. Callers hold w.mu.
func (w *Warehouse) unlist(id string) {
	if _, ok := w.items[id]; !ok {
		return
	}
	delete(w.items, id)
	for i, listed := range w.order {
		if listed == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			return
		}
	}
}

func notListed(id string) error {
	return fmt.Errorf("the item with the id %s is not listed by the store: %w", id, ErrNotListed)
}
