package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrDuplicateIdentifier is returned when an item id is already reserved in the registry.
	ErrDuplicateIdentifier = errors.New("item id already exists")
	// ErrImmutableField is returned when attempting to change an item's id.
	ErrImmutableField = errors.New("field is immutable")
	// ErrInvalidParameter is returned for out-of-range arguments. Shared by the
	// discount and warehouse packages.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Item is a catalog entry. The id never changes after construction; the price
// may be updated at any time and is read at the moment it is needed.
type Item struct {
	id string

	mu    sync.RWMutex
	price decimal.Decimal
}

// ID returns the immutable item identifier.
func (i *Item) ID() string {
	return i.id
}

// SetID always fails: item ids are fixed for the lifetime of the registry.
func (i *Item) SetID(string) error {
	return fmt.Errorf("item %s: id: %w", i.id, ErrImmutableField)
}

// Price returns the current unit price.
func (i *Item) Price() decimal.Decimal {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.price
}

// SetPrice replaces the unit price. Negative prices are rejected.
func (i *Item) SetPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("item %s: negative price %s: %w", i.id, price, ErrInvalidParameter)
	}
	i.mu.Lock()
	i.price = price
	i.mu.Unlock()
	return nil
}

func (i *Item) String() string {
	return fmt.Sprintf("Item(id=%s, price=%s)", i.id, i.Price().StringFixed(2))
}

// Registry reserves item ids. Uniqueness is scoped to one registry and ids
// stay reserved for as long as the registry lives.
type Registry struct {
	mu    sync.Mutex
	items map[string]*Item
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]*Item)}
}

// NewItem reserves id and returns a new item priced at price.
func (r *Registry) NewItem(id string, price decimal.Decimal) (*Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("item id required: %w", ErrInvalidParameter)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("item %s: negative price %s: %w", id, price, ErrInvalidParameter)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.items == nil {
		r.items = make(map[string]*Item)
	}
	if _, ok := r.items[id]; ok {
		return nil, fmt.Errorf("item id %s already used by another item: %w", id, ErrDuplicateIdentifier)
	}
	item := &Item{id: id, price: price}
	r.items[id] = item
	return item, nil
}

// MustNewItem is like NewItem but panics on error. Intended for fixtures.
func (r *Registry) MustNewItem(id string, price decimal.Decimal) *Item {
	item, err := r.NewItem(id, price)
	if err != nil {
		panic(err)
	}
	return item
}

// Lookup returns the item issued for id.
func (r *Registry) Lookup(id string) (*Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[strings.TrimSpace(id)]
	return item, ok
}

// Reserved reports whether id has been handed out by the registry.
func (r *Registry) Reserved(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// Len returns the number of reserved ids.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
